// Package workspace resolves the project root and lays out the build
// directories used by the pipeline: the output directory, the private work
// directory with its stamp cache, and the app bundle path.
package workspace

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/macbundler/internal/errors"
)

// Default permission mode for directories created by the build.
const DirMode os.FileMode = 0o755

// Names of the three project subdirectories a valid root must contain.
const (
	FrontendDirName = "webapp"
	BackendDirName  = "backend"
	WrapperDirName  = "macos-app"
)

// Layout describes every path the pipeline reads or writes, derived from
// the project root and the application name.
type Layout struct {
	Root string

	FrontendDir string // webapp/
	BackendDir  string // backend/
	WrapperDir  string // macos-app/
	WrapperBin  string // macos-app/.build/release/MacWrapper

	OutDir     string // dist/
	WorkDir    string // .mac_build/
	StampsDir  string // .mac_build/stamps/
	BackendOut string // .mac_build/backend_dist/
	SwiftHome  string // .mac_build/swift_home/

	AppBundle string // dist/<AppName>.app
}

// NewLayout derives the full path layout for a project root.
func NewLayout(root, appName string) Layout {
	workDir := filepath.Join(root, ".mac_build")
	outDir := filepath.Join(root, "dist")

	return Layout{
		Root: root,

		FrontendDir: filepath.Join(root, FrontendDirName),
		BackendDir:  filepath.Join(root, BackendDirName),
		WrapperDir:  filepath.Join(root, WrapperDirName),
		WrapperBin:  filepath.Join(root, WrapperDirName, ".build", "release", "MacWrapper"),

		OutDir:     outDir,
		WorkDir:    workDir,
		StampsDir:  filepath.Join(workDir, "stamps"),
		BackendOut: filepath.Join(workDir, "backend_dist"),
		SwiftHome:  filepath.Join(workDir, "swift_home"),

		AppBundle: filepath.Join(outDir, appName+".app"),
	}
}

// BackendProductDir is the one-folder PyInstaller distribution produced by
// the backend build stage.
func (l Layout) BackendProductDir() string {
	return filepath.Join(l.BackendOut, "backend_server")
}

// FrontendDist is the static asset tree produced by the frontend build
// stage.
func (l Layout) FrontendDist() string {
	return filepath.Join(l.FrontendDir, "dist")
}

// HistoryDB is the build-history database location.
func (l Layout) HistoryDB() string {
	return filepath.Join(l.WorkDir, "history.db")
}

// Stamp returns the path of a named stamp file in the stamp cache.
func (l Layout) Stamp(name string) string {
	return filepath.Join(l.StampsDir, name)
}

// Prepare creates the writable build directories.
func (l Layout) Prepare() error {
	for _, dir := range []string{l.OutDir, l.WorkDir, l.StampsDir, l.BackendOut} {
		if err := os.MkdirAll(dir, DirMode); err != nil {
			return errors.FilesystemError("create build directory", err)
		}
	}
	return nil
}

// Clean removes the work directory and the output app bundle. Used by the
// CLEAN toggle for full rebuilds.
func (l Layout) Clean() error {
	for _, path := range []string{l.WorkDir, l.AppBundle} {
		if err := os.RemoveAll(path); err != nil {
			return errors.FilesystemError("clean build directory", err)
		}
	}
	return nil
}
