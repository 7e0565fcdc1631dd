// Package bundle assembles the macOS .app directory structure from the
// stage outputs: the wrapper executable, the packaged backend distribution,
// and the frontend asset tree, plus the bundle metadata files and an
// optional codesign pass.
package bundle

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/macbundler/internal/config"
	"git.home.luguber.info/inful/macbundler/internal/errors"
	"git.home.luguber.info/inful/macbundler/internal/runner"
	"git.home.luguber.info/inful/macbundler/internal/ui"
	"git.home.luguber.info/inful/macbundler/internal/workspace"
)

// Assembler builds the .app bundle from finished stage outputs. It must
// only run after every build stage has resolved.
type Assembler struct {
	cfg    config.Config
	layout workspace.Layout
	runner *runner.Runner
}

// New returns an Assembler over the given configuration and path layout.
func New(cfg config.Config, layout workspace.Layout, r *runner.Runner) *Assembler {
	return &Assembler{cfg: cfg, layout: layout, runner: r}
}

// Assemble produces the complete bundle. Steps run in dependency order:
// skeleton, wrapper executable, backend distribution, frontend assets,
// icon, metadata. Missing stage outputs abort with an artifact error; the
// icon step alone is best-effort.
func (a *Assembler) Assemble() error {
	ui.Headline("Assembling app bundle: %s", a.layout.AppBundle)

	contents := filepath.Join(a.layout.AppBundle, "Contents")
	for _, dir := range []string{
		filepath.Join(contents, "MacOS"),
		filepath.Join(contents, "Resources"),
	} {
		if err := os.MkdirAll(dir, workspace.DirMode); err != nil {
			return errors.FilesystemError("create bundle skeleton", err)
		}
	}

	if err := a.placeWrapper(); err != nil {
		return err
	}

	backendTarget := filepath.Join(contents, "Resources", "backend_server")
	if err := a.placeBackend(backendTarget); err != nil {
		return err
	}
	if err := a.placeFrontend(filepath.Join(backendTarget, "webapp_dist")); err != nil {
		return err
	}

	hasIcon := a.buildAppIcon()
	if err := writeInfoPlist(a.layout.AppBundle, plistData{
		AppName:     a.cfg.AppName,
		BundleID:    a.cfg.BundleID,
		AppVersion:  a.cfg.AppVersion,
		BuildNumber: a.cfg.BuildNumber,
		HasIcon:     hasIcon,
	}); err != nil {
		return err
	}
	if err := writePkgInfo(a.layout.AppBundle); err != nil {
		return err
	}

	// Refresh the bundle mtime so Finder and the Dock notice icon changes.
	now := time.Now()
	_ = os.Chtimes(a.layout.AppBundle, now, now)

	return nil
}

// Sign codesigns the finished bundle when an identity is configured.
func (a *Assembler) Sign() error {
	if !a.cfg.Signing() {
		ui.Skip("Skipping codesign (set CODESIGN_IDENTITY to enable)")
		return nil
	}

	ui.Headline("Codesigning (identity: %s)", a.cfg.CodesignIdentity)
	return a.runner.RunSync(runner.Command{
		Program: "codesign",
		Args: []string{
			"--force", "--deep",
			"--options", "runtime",
			"--sign", a.cfg.CodesignIdentity,
			a.layout.AppBundle,
		},
	})
}

// placeWrapper installs the wrapper executable as Contents/MacOS/<AppName>.
func (a *Assembler) placeWrapper() error {
	src := a.layout.WrapperBin
	if info, err := os.Stat(src); err != nil || !info.Mode().IsRegular() {
		return errors.MissingArtifact("wrapper build", src)
	}

	dst := filepath.Join(a.layout.AppBundle, "Contents", "MacOS", a.cfg.AppName)
	return copyExecutable(src, dst)
}

// placeBackend mirrors the one-folder backend distribution into the bundle.
func (a *Assembler) placeBackend(target string) error {
	src := a.layout.BackendProductDir()
	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		return errors.MissingArtifact("backend build", src)
	}
	return Mirror(src, target)
}

// placeFrontend mirrors the static asset tree into the backend
// distribution, where the bundled server serves it from.
func (a *Assembler) placeFrontend(target string) error {
	src := a.layout.FrontendDist()
	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		return errors.MissingArtifact("frontend build", src)
	}
	return Mirror(src, target)
}

// copyExecutable copies a binary with 0755 permissions.
func copyExecutable(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.FilesystemError("open wrapper executable", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return errors.FilesystemError("create bundle executable", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.FilesystemError("copy bundle executable", err)
	}
	if err := out.Close(); err != nil {
		return errors.FilesystemError("write bundle executable", err)
	}
	// O_CREATE perms are masked by umask; make the mode explicit.
	if err := os.Chmod(dst, 0o755); err != nil {
		return errors.FilesystemError("mark bundle executable", err)
	}
	return nil
}
