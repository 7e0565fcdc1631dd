// Package pipeline orchestrates the build: toolchain checks, staleness
// gating per stage, concurrent stage execution, bundle assembly, and the
// run record. Dependency installs run synchronously; the three build
// stages run concurrently and are finalized in launch order.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"git.home.luguber.info/inful/macbundler/internal/bundle"
	"git.home.luguber.info/inful/macbundler/internal/config"
	"git.home.luguber.info/inful/macbundler/internal/errors"
	"git.home.luguber.info/inful/macbundler/internal/history"
	"git.home.luguber.info/inful/macbundler/internal/incremental"
	"git.home.luguber.info/inful/macbundler/internal/runner"
	"git.home.luguber.info/inful/macbundler/internal/ui"
	"git.home.luguber.info/inful/macbundler/internal/workspace"
)

// requiredTool pairs a command with its install hint.
type requiredTool struct {
	Name string
	Hint string
}

var requiredTools = []requiredTool{
	{"npm", "brew install node"},
	{"node", "brew install node"},
	{"uv", "brew install uv"},
	{"swift", "xcode-select --install"},
	{"xcrun", "xcode-select --install"},
}

var optionalTools = []string{"sips", "iconutil"}

// Pipeline runs one build over a resolved project root.
type Pipeline struct {
	cfg    config.Config
	layout workspace.Layout
	runner *runner.Runner
	coord  *runner.Coordinator

	// stagesRun collects the stages that actually executed, for the run
	// record.
	stagesRun []string

	// checkTools is disabled by tests that exercise orchestration on
	// machines without the macOS toolchain.
	checkTools bool
}

// New builds a Pipeline for the given configuration and project root.
func New(cfg config.Config, root string) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		layout:     workspace.NewLayout(root, cfg.AppName),
		runner:     &runner.Runner{DryRun: cfg.DryRun},
		coord:      &runner.Coordinator{},
		checkTools: true,
	}
}

// Build runs the full pipeline. In dry-run mode it stops after planning
// with no filesystem mutation and no process spawned.
func (p *Pipeline) Build(ctx context.Context) error {
	start := time.Now()

	if p.checkTools {
		if err := p.verifyToolchain(); err != nil {
			return err
		}
	}

	slog.Debug("Build configuration",
		"app", p.cfg.AppName,
		"bundle_id", p.cfg.BundleID,
		"version", p.cfg.AppVersion,
		"build", p.cfg.BuildNumber,
		"dry_run", p.cfg.DryRun,
	)

	if p.cfg.Clean {
		if p.cfg.DryRun {
			ui.Plan("rm -rf %s %s", p.layout.WorkDir, p.layout.AppBundle)
		} else {
			ui.Headline("CLEAN=1: clearing build cache + output app bundle")
			if err := p.layout.Clean(); err != nil {
				return err
			}
		}
	}

	if !p.cfg.DryRun {
		if err := p.layout.Prepare(); err != nil {
			return err
		}
	}

	if err := p.runFrontendDeps(); err != nil {
		return err
	}
	if err := p.launchFrontendBuild(); err != nil {
		return err
	}
	if err := p.runBackendDeps(); err != nil {
		return err
	}
	if err := p.launchBackendBuild(); err != nil {
		return err
	}
	if err := p.launchWrapperBuild(); err != nil {
		return err
	}

	if p.cfg.DryRun {
		ui.Plan("plan complete (no commands executed)")
		return nil
	}

	if err := p.coord.WaitAll(); err != nil {
		p.record(ctx, start, "failed")
		return err
	}

	assembler := bundle.New(p.cfg, p.layout, p.runner)
	if err := assembler.Assemble(); err != nil {
		p.record(ctx, start, "failed")
		return err
	}
	if err := assembler.Sign(); err != nil {
		p.record(ctx, start, "failed")
		return err
	}

	p.record(ctx, start, "success")

	elapsed := time.Since(start).Round(time.Second)
	ui.Success("Build complete in %s", elapsed)
	fmt.Printf("App: %s\n", p.layout.AppBundle)
	fmt.Printf("Run: open %q\n", p.layout.AppBundle)
	return nil
}

// verifyToolchain fails fast before any mutation when a required command is
// absent from PATH.
func (p *Pipeline) verifyToolchain() error {
	for _, tool := range requiredTools {
		if err := runner.Require(tool.Name, tool.Hint); err != nil {
			return err
		}
	}
	for _, tool := range optionalTools {
		runner.WarnIfMissing(tool)
	}
	return nil
}

// runFrontendDeps installs node modules synchronously when stale.
func (p *Pipeline) runFrontendDeps() error {
	spec, cmd := frontendDepsStage(p.cfg, p.layout)

	stale, reason, err := incremental.IsStale(spec)
	if err != nil {
		return err
	}
	if !stale {
		p.announceFresh(spec.Name, reason)
		return nil
	}
	slog.Debug("Stage is stale", "stage", spec.Name, "reason", reason)

	ui.Headline("Installing frontend dependencies...")
	if err := p.runner.RunSync(cmd); err != nil {
		return err
	}
	p.stagesRun = append(p.stagesRun, spec.Name)

	if p.cfg.DryRun {
		return nil
	}
	return incremental.WriteStamp(spec.StampPath)
}

// launchFrontendBuild starts the asset build in the background. Its
// finalizer records the parameter snapshot before the stamp, so an
// interrupted finalization is re-run rather than trusted.
func (p *Pipeline) launchFrontendBuild() error {
	spec, cmd, err := frontendBuildStage(p.cfg, p.layout)
	if err != nil {
		return err
	}

	stale, reason, err := incremental.IsStale(spec)
	if err != nil {
		return err
	}
	if !stale {
		p.announceFresh(spec.Name, reason)
		return nil
	}
	slog.Debug("Stage is stale", "stage", spec.Name, "reason", reason)

	ui.Headline("Building frontend (webapp/dist)...")
	p.stagesRun = append(p.stagesRun, spec.Name)

	if p.cfg.DryRun {
		return p.runner.RunSync(cmd)
	}

	task, err := p.runner.SpawnAsync(spec.Name, cmd, func() error {
		if err := incremental.WriteParams(spec.ParamsPath, spec.Params); err != nil {
			return err
		}
		return incremental.WriteStamp(spec.StampPath)
	})
	if err != nil {
		return err
	}
	p.coord.Register(task)
	return nil
}

// runBackendDeps syncs the Python environment synchronously when stale.
func (p *Pipeline) runBackendDeps() error {
	spec, cmd := backendDepsStage(p.cfg, p.layout)

	stale, reason, err := incremental.IsStale(spec)
	if err != nil {
		return err
	}
	if !stale {
		p.announceFresh(spec.Name, reason)
		return nil
	}
	slog.Debug("Stage is stale", "stage", spec.Name, "reason", reason)

	ui.Headline("Syncing backend dependencies (uv)...")
	if err := p.runner.RunSync(cmd); err != nil {
		return err
	}
	p.stagesRun = append(p.stagesRun, spec.Name)

	if p.cfg.DryRun {
		return nil
	}
	return incremental.WriteStamp(spec.StampPath)
}

// launchBackendBuild starts PyInstaller in the background.
func (p *Pipeline) launchBackendBuild() error {
	spec, cmd := backendBuildStage(p.cfg, p.layout)

	stale, reason, err := incremental.IsStale(spec)
	if err != nil {
		return err
	}
	if !stale {
		p.announceFresh(spec.Name, reason)
		return nil
	}
	slog.Debug("Stage is stale", "stage", spec.Name, "reason", reason)

	ui.Headline("Building backend executable with PyInstaller...")
	p.stagesRun = append(p.stagesRun, spec.Name)

	if p.cfg.DryRun {
		return p.runner.RunSync(cmd)
	}

	task, err := p.runner.SpawnAsync(spec.Name, cmd, func() error {
		return incremental.WriteStamp(spec.StampPath)
	})
	if err != nil {
		return err
	}
	p.coord.Register(task)
	return nil
}

// launchWrapperBuild starts the native wrapper build. SwiftPM handles its
// own incrementality, so there is no staleness gate beyond the skip flag.
func (p *Pipeline) launchWrapperBuild() error {
	if p.cfg.SkipWrapper {
		ui.Skip("Skipping wrapper build")
		return nil
	}
	if p.cfg.ForceWrapper {
		slog.Debug("FORCE_SWIFT set; SwiftPM remains incremental")
	}

	ui.Headline("Building native wrapper...")
	p.stagesRun = append(p.stagesRun, stageWrapperBuild)

	cmd := wrapperBuildCommand(p.layout)
	if p.cfg.DryRun {
		return p.runner.RunSync(cmd)
	}

	if err := os.MkdirAll(p.layout.SwiftHome, workspace.DirMode); err != nil {
		return errors.FilesystemError("create wrapper build sandbox", err)
	}

	task, err := p.runner.SpawnAsync(stageWrapperBuild, cmd, nil)
	if err != nil {
		return err
	}
	p.coord.Register(task)
	return nil
}

func (p *Pipeline) announceFresh(stage, reason string) {
	if reason == "stage skipped" {
		ui.Skip("Skipping %s", stage)
		return
	}
	ui.Skip("%s unchanged; skipping", stage)
}

// record inserts the run into the build history. History is best-effort:
// failures degrade to a warning so a finished build is never reported as
// failed because of bookkeeping.
func (p *Pipeline) record(ctx context.Context, start time.Time, status string) {
	if p.cfg.DryRun {
		return
	}

	store, err := history.Open(p.layout.HistoryDB())
	if err != nil {
		ui.Warn("Could not open build history: %v", err)
		return
	}
	defer store.Close()

	finished := time.Now()
	rec := history.Record{
		ID:          history.NewRunID(),
		StartedAt:   start,
		FinishedAt:  finished,
		Duration:    finished.Sub(start),
		Status:      status,
		Stages:      strings.Join(p.stagesRun, ","),
		AppVersion:  p.cfg.AppVersion,
		BuildNumber: p.cfg.BuildNumber,
		GitCommit:   workspace.HeadCommit(p.layout.Root),
	}
	if err := store.Insert(ctx, rec); err != nil {
		ui.Warn("Could not record build history: %v", err)
	}
}
