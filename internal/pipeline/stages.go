package pipeline

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/macbundler/internal/config"
	"git.home.luguber.info/inful/macbundler/internal/incremental"
	"git.home.luguber.info/inful/macbundler/internal/runner"
	"git.home.luguber.info/inful/macbundler/internal/workspace"
)

// Stage names, used for announcements, task registration, and the history
// record.
const (
	stageFrontendDeps  = "frontend deps"
	stageFrontendBuild = "frontend build"
	stageBackendDeps   = "backend deps"
	stageBackendBuild  = "backend build"
	stageWrapperBuild  = "wrapper build"
)

// frontendParams is the parameter set baked into a release frontend build.
// It is recorded as a snapshot next to the stamp; changing any value forces
// a rebuild even when no source file changed.
type frontendParams struct {
	APIMode    string `yaml:"api_mode"`
	APIBaseURL string `yaml:"api_base_url"`
}

var releaseFrontendParams = frontendParams{
	APIMode:    "real",
	APIBaseURL: "",
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// frontendDepsStage installs node modules. npm ci is used when a lockfile
// pins the dependency set, npm install otherwise.
func frontendDepsStage(cfg config.Config, layout workspace.Layout) (incremental.StageSpec, runner.Command) {
	lockPath := filepath.Join(layout.FrontendDir, "package-lock.json")

	args := []string{"install", "--no-audit", "--fund=false"}
	if fileExists(lockPath) {
		args = []string{"ci", "--no-audit", "--fund=false"}
	}

	spec := incremental.StageSpec{
		Name:      stageFrontendDeps,
		OutputDir: filepath.Join(layout.FrontendDir, "node_modules"),
		StampPath: layout.Stamp("webapp_deps.stamp"),
		WatchFiles: []string{
			filepath.Join(layout.FrontendDir, "package.json"),
			lockPath,
		},
		Force: cfg.ForceFrontend,
		Skip:  cfg.SkipFrontend,
	}
	cmd := runner.Command{Program: "npm", Args: args, Dir: layout.FrontendDir}
	return spec, cmd
}

// frontendBuildStage produces the static asset tree under webapp/dist.
func frontendBuildStage(cfg config.Config, layout workspace.Layout) (incremental.StageSpec, runner.Command, error) {
	params, err := incremental.EncodeParams(releaseFrontendParams)
	if err != nil {
		return incremental.StageSpec{}, runner.Command{}, err
	}

	spec := incremental.StageSpec{
		Name:      stageFrontendBuild,
		OutputDir: layout.FrontendDist(),
		StampPath: layout.Stamp("webapp_build.stamp"),
		WatchFiles: []string{
			filepath.Join(layout.FrontendDir, "package.json"),
			filepath.Join(layout.FrontendDir, "package-lock.json"),
			filepath.Join(layout.FrontendDir, "index.html"),
			filepath.Join(layout.FrontendDir, "vite.config.ts"),
			filepath.Join(layout.FrontendDir, "vite.config.js"),
			filepath.Join(layout.FrontendDir, "vite.config.mts"),
			filepath.Join(layout.FrontendDir, "vite.config.mjs"),
		},
		WatchDirs: []string{
			filepath.Join(layout.FrontendDir, "src"),
			filepath.Join(layout.FrontendDir, "public"),
		},
		ParamsPath: layout.Stamp("webapp_build.params.yaml"),
		Params:     params,
		Force:      cfg.ForceFrontend,
		Skip:       cfg.SkipFrontend,
	}
	cmd := runner.Command{
		Program: "npm",
		Args:    []string{"run", "build"},
		Dir:     layout.FrontendDir,
		Env: map[string]string{
			"VITE_API_MODE":     releaseFrontendParams.APIMode,
			"VITE_API_BASE_URL": releaseFrontendParams.APIBaseURL,
		},
	}
	return spec, cmd, nil
}

// backendDepsStage syncs the Python virtual environment. The lockfile is
// honored exactly when present.
func backendDepsStage(cfg config.Config, layout workspace.Layout) (incremental.StageSpec, runner.Command) {
	lockPath := filepath.Join(layout.BackendDir, "uv.lock")

	args := []string{"sync"}
	if fileExists(lockPath) {
		args = []string{"sync", "--frozen"}
	}

	spec := incremental.StageSpec{
		Name:      stageBackendDeps,
		OutputDir: filepath.Join(layout.BackendDir, ".venv"),
		StampPath: layout.Stamp("backend_deps.stamp"),
		WatchFiles: []string{
			filepath.Join(layout.BackendDir, "pyproject.toml"),
			lockPath,
		},
		Force: cfg.ForceBackend,
		Skip:  cfg.SkipBackend,
	}
	cmd := runner.Command{Program: "uv", Args: args, Dir: layout.BackendDir}
	return spec, cmd
}

// backendBuildStage packages the backend into a one-folder distribution
// with PyInstaller. The analysis cache is kept between runs (no --clean),
// UPX is skipped, and modules FastAPI never needs are excluded; together
// these cut repeat build times substantially.
func backendBuildStage(cfg config.Config, layout workspace.Layout) (incremental.StageSpec, runner.Command) {
	spec := incremental.StageSpec{
		Name:      stageBackendBuild,
		OutputDir: layout.BackendProductDir(),
		StampPath: layout.Stamp("backend_build.stamp"),
		WatchFiles: []string{
			filepath.Join(layout.BackendDir, "macapp_entry.py"),
			// A fresh dependency sync invalidates the packaged executable.
			layout.Stamp("backend_deps.stamp"),
		},
		WatchDirs: []string{
			filepath.Join(layout.BackendDir, "app"),
		},
		Force: cfg.ForceBackend,
		Skip:  cfg.SkipBackend,
	}

	args := []string{
		"run", "--with", "pyinstaller", "--", "pyinstaller",
		"--noconfirm",
		"--noupx",
		"--log-level", "ERROR",
		"--name", "backend_server",
		"--distpath", layout.BackendOut,
		"--workpath", filepath.Join(layout.WorkDir, "backend_work"),
		"--specpath", filepath.Join(layout.WorkDir, "backend_spec"),
		"--collect-all", "uvicorn",
		"--collect-all", "fastapi",
		"--collect-all", "starlette",
	}
	for _, mod := range []string{
		"tkinter", "matplotlib",
		"PyQt5", "PyQt6", "PySide2", "PySide6",
		"numpy.distutils", "setuptools", "distutils",
		"test", "unittest", "pytest",
	} {
		args = append(args, "--exclude-module", mod)
	}
	args = append(args, "macapp_entry.py")

	cmd := runner.Command{Program: "uv", Args: args, Dir: layout.BackendDir}
	return spec, cmd
}

// wrapperBuildCommand builds the native wrapper. SwiftPM keeps its own
// incremental cache, so the stage carries no stamp and runs whenever it is
// not skipped. HOME is pinned to a work-dir sandbox so SwiftPM caches stay
// inside the build tree.
func wrapperBuildCommand(layout workspace.Layout) runner.Command {
	return runner.Command{
		Program: "swift",
		Args:    []string{"build", "-c", "release", "--disable-sandbox"},
		Dir:     layout.WrapperDir,
		Env:     map[string]string{"HOME": layout.SwiftHome},
	}
}
