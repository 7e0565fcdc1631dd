package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/macbundler/internal/config"
	"git.home.luguber.info/inful/macbundler/internal/history"
	"git.home.luguber.info/inful/macbundler/internal/icon"
	"git.home.luguber.info/inful/macbundler/internal/pipeline"
	"git.home.luguber.info/inful/macbundler/internal/version"
	"git.home.luguber.info/inful/macbundler/internal/watch"
	"git.home.luguber.info/inful/macbundler/internal/workspace"
)

var CLI struct {
	Root    string `help:"Project root (default: auto-detected)"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
	} `cmd:"" default:"1" help:"Build the app bundle (incremental)"`

	Watch struct {
	} `cmd:"" help:"Rebuild on frontend changes (dev mode, never signs)"`

	FlattenIcon struct {
		Input  string `arg:"" help:"Source PNG with alpha"`
		Output string `arg:"" help:"Destination for the opaque PNG"`
	} `cmd:"" name:"flatten-icon" help:"Flatten a PNG's alpha channel against its background"`

	History struct {
		Limit int `short:"n" default:"20" help:"Number of runs to show"`
	} `cmd:"" help:"Show recent build runs"`

	Version struct {
	} `cmd:"" help:"Show version information"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg := config.FromEnv()
	if CLI.Verbose {
		cfg.Verbose = true
	}

	logLevel := slog.LevelInfo
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(kctx.Command(), cfg); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func run(command string, cfg config.Config) error {
	switch command {
	case "build":
		root, err := projectRoot()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return pipeline.New(cfg, root).Build(ctx)

	case "watch":
		root, err := projectRoot()
		if err != nil {
			return err
		}
		w, err := watch.New(cfg, root)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return w.Run(ctx)

	case "flatten-icon <input> <output>":
		return icon.FlattenFile(CLI.FlattenIcon.Input, CLI.FlattenIcon.Output)

	case "history":
		root, err := projectRoot()
		if err != nil {
			return err
		}
		return showHistory(root, cfg.AppName, CLI.History.Limit)

	case "version":
		fmt.Println("macbundler " + version.String())
		return nil
	}
	return fmt.Errorf("unknown command: %s", command)
}

// projectRoot resolves the root from --root or by auto-detection.
func projectRoot() (string, error) {
	if CLI.Root != "" {
		return CLI.Root, nil
	}
	return workspace.FindRoot()
}

func showHistory(root, appName string, limit int) error {
	layout := workspace.NewLayout(root, appName)
	store, err := history.Open(layout.HistoryDB())
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No recorded builds.")
		return nil
	}

	for _, rec := range records {
		commit := rec.GitCommit
		if commit == "" {
			commit = "-"
		}
		fmt.Printf("%s  %-7s  %8s  v%s (%s)  %s  [%s]\n",
			rec.StartedAt.Format("2006-01-02 15:04:05"),
			rec.Status,
			rec.Duration.Round(100*time.Millisecond),
			rec.AppVersion,
			rec.BuildNumber,
			commit,
			rec.Stages,
		)
	}
	return nil
}
