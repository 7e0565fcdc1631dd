package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	require.Equal(t, "Budget", cfg.AppName)
	require.Equal(t, "com.budget.app", cfg.BundleID)
	require.Equal(t, "0.1.0", cfg.AppVersion)
	require.Equal(t, "1", cfg.BuildNumber)
	require.False(t, cfg.Clean)
	require.False(t, cfg.DryRun)
	require.False(t, cfg.Signing())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("APP_NAME", "Widget")
	t.Setenv("BUNDLE_ID", "com.x.widget")
	t.Setenv("APP_VERSION", "2.3.0")
	t.Setenv("BUILD_NUMBER", "7")
	t.Setenv("CODESIGN_IDENTITY", "  Developer ID Application: X  ")

	cfg := FromEnv()
	require.Equal(t, "Widget", cfg.AppName)
	require.Equal(t, "com.x.widget", cfg.BundleID)
	require.Equal(t, "2.3.0", cfg.AppVersion)
	require.Equal(t, "7", cfg.BuildNumber)
	require.Equal(t, "Developer ID Application: X", cfg.CodesignIdentity)
	require.True(t, cfg.Signing())
}

func TestEnvBoolParsing(t *testing.T) {
	for _, truthy := range []string{"1", "true", "TRUE", "yes", "Yes"} {
		t.Setenv("CLEAN", truthy)
		require.True(t, FromEnv().Clean, "value %q", truthy)
	}
	for _, falsy := range []string{"0", "false", "no", "", "2"} {
		t.Setenv("CLEAN", falsy)
		require.False(t, FromEnv().Clean, "value %q", falsy)
	}
}

func TestDevModeImplications(t *testing.T) {
	t.Setenv("DEV_MODE", "1")
	t.Setenv("CODESIGN_IDENTITY", "Developer ID")

	cfg := FromEnv()
	require.True(t, cfg.DevMode)
	require.True(t, cfg.SkipBackend)
	require.True(t, cfg.SkipWrapper)
	require.False(t, cfg.SkipFrontend)
	require.False(t, cfg.Signing(), "dev mode must disable signing")
}
