// Package config resolves the immutable build configuration once at process
// start. Every component receives the resulting Config value explicitly;
// nothing reads the ambient environment after FromEnv returns.
package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all settings for one build run. It is read-only after
// construction.
type Config struct {
	AppName     string
	BundleID    string
	AppVersion  string
	BuildNumber string

	Clean         bool
	ForceFrontend bool
	ForceBackend  bool
	ForceWrapper  bool

	SkipFrontend bool
	SkipBackend  bool
	SkipWrapper  bool

	DevMode bool
	Verbose bool
	DryRun  bool

	CodesignIdentity string
}

// FromEnv builds a Config from the named environment variables, after
// loading .env/.env.local files. Variables already present in the process
// environment always win over file contents.
func FromEnv() Config {
	loadEnvFiles()

	cfg := Config{
		AppName:     envString("APP_NAME", "Budget"),
		BundleID:    envString("BUNDLE_ID", "com.budget.app"),
		AppVersion:  envString("APP_VERSION", "0.1.0"),
		BuildNumber: envString("BUILD_NUMBER", "1"),

		Clean:         envBool("CLEAN"),
		ForceFrontend: envBool("FORCE_FRONTEND"),
		ForceBackend:  envBool("FORCE_BACKEND"),
		ForceWrapper:  envBool("FORCE_SWIFT"),

		SkipFrontend: envBool("SKIP_FRONTEND"),
		SkipBackend:  envBool("SKIP_BACKEND"),
		SkipWrapper:  envBool("SKIP_SWIFT"),

		DevMode: envBool("DEV_MODE"),
		Verbose: envBool("VERBOSE"),
		DryRun:  envBool("DRY_RUN"),

		CodesignIdentity: strings.TrimSpace(envString("CODESIGN_IDENTITY", "")),
	}

	if cfg.DevMode {
		cfg = cfg.withDevMode()
	}

	return cfg
}

// withDevMode returns a copy with the dev-mode implications applied:
// frontend-only updates, no signing.
func (c Config) withDevMode() Config {
	c.DevMode = true
	c.SkipBackend = true
	c.SkipWrapper = true
	c.CodesignIdentity = ""
	return c
}

// Signing reports whether a codesign identity is configured.
func (c Config) Signing() bool {
	return c.CodesignIdentity != ""
}

// loadEnvFiles loads the first .env file found. Process environment wins:
// godotenv.Load never overrides existing variables.
func loadEnvFiles() {
	for _, path := range []string{".env", ".env.local"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("Failed to load env file", "path", path, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "path", path)
		return
	}
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// envBool treats "1", "true", and "yes" (case-insensitive) as true.
func envBool(key string) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return false
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}
