package bundle

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"git.home.luguber.info/inful/macbundler/internal/icon"
	"git.home.luguber.info/inful/macbundler/internal/runner"
	"git.home.luguber.info/inful/macbundler/internal/ui"
	"git.home.luguber.info/inful/macbundler/internal/workspace"
)

// iconSizes is the iconset ladder macOS expects: each point size plus its
// @2x retina variant.
var iconSizes = []struct {
	Pixels int
	Name   string
}{
	{16, "icon_16x16.png"},
	{32, "icon_16x16@2x.png"},
	{32, "icon_32x32.png"},
	{64, "icon_32x32@2x.png"},
	{128, "icon_128x128.png"},
	{256, "icon_128x128@2x.png"},
	{256, "icon_256x256.png"},
	{512, "icon_256x256@2x.png"},
	{512, "icon_512x512.png"},
	{1024, "icon_512x512@2x.png"},
}

// iconSourceCandidates are tried in order inside webapp/public/favicon.
var iconSourceCandidates = []string{
	"favicon-512.png",
	"apple-touch-icon.png",
	"favicon-256.png",
}

// buildAppIcon compiles Contents/Resources/appicon.icns from the frontend
// favicon assets. Icon generation is best-effort: every failure is reported
// as a warning and the bundle ships without an icon. Returns whether the
// .icns file was produced.
func (a *Assembler) buildAppIcon() bool {
	sourceDir := filepath.Join(a.layout.FrontendDir, "public", "favicon")
	iconsetDir := filepath.Join(a.layout.WorkDir, "appicon.iconset")
	icnsPath := filepath.Join(a.layout.AppBundle, "Contents", "Resources", "appicon.icns")

	if info, err := os.Stat(sourceDir); err != nil || !info.IsDir() {
		ui.Warn("Icon source directory not found: %s", sourceDir)
		return false
	}

	var source string
	for _, name := range iconSourceCandidates {
		candidate := filepath.Join(sourceDir, name)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			source = candidate
			break
		}
	}
	if source == "" {
		ui.Warn("No suitable icon source file found in %s", sourceDir)
		return false
	}

	ui.Headline("Creating app icon (%s)", filepath.Base(source))

	// macOS draws a halo around icons with transparent corners; flatten the
	// favicon against its own background before resizing.
	flattened := filepath.Join(a.layout.WorkDir, "appicon_source_macos.png")
	if err := icon.FlattenFile(source, flattened); err != nil {
		ui.Warn("Icon flattening failed: %v", err)
		return false
	}

	if err := os.RemoveAll(iconsetDir); err != nil {
		ui.Warn("Could not reset iconset directory: %v", err)
		return false
	}
	if err := os.MkdirAll(iconsetDir, workspace.DirMode); err != nil {
		ui.Warn("Could not create iconset directory: %v", err)
		return false
	}

	for _, size := range iconSizes {
		px := strconv.Itoa(size.Pixels)
		cmd := runner.Command{
			Program: "sips",
			Args:    []string{"-z", px, px, flattened, "--out", filepath.Join(iconsetDir, size.Name)},
		}
		if err := a.runner.RunSync(cmd); err != nil {
			ui.Warn("Icon resize failed: %v", err)
			return false
		}
	}

	_ = os.Remove(icnsPath)
	if convertIconset(iconsetDir, icnsPath) {
		return true
	}

	// iconutil missing or failed; sips can write a single-resolution icns.
	slog.Debug("Falling back to sips for icns conversion")
	quietRun("sips", "-s", "format", "icns", flattened, "--out", icnsPath)
	if !nonEmptyFile(icnsPath) {
		ui.Warn("Failed to generate %s", icnsPath)
		return false
	}
	return true
}

// convertIconset runs iconutil over the generated ladder. Conversion output
// is suppressed; success is judged solely by the resulting file.
func convertIconset(iconsetDir, icnsPath string) bool {
	if _, err := exec.LookPath("iconutil"); err != nil {
		return false
	}
	quietRun("iconutil", "-c", "icns", iconsetDir, "-o", icnsPath)
	return nonEmptyFile(icnsPath)
}

func quietRun(program string, args ...string) {
	cmd := exec.Command(program, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	_ = cmd.Run()
}

func nonEmptyFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
