package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"expensetracker/internal/config"
	"expensetracker/internal/log"
)

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("EXPENSE_CLI_TEST=from-file\nEXPENSE_CLI_KEEP=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EXPENSE_CLI_TEST", "")
	os.Unsetenv("EXPENSE_CLI_TEST")
	t.Setenv("EXPENSE_CLI_KEEP", "from-env")

	LoadEnvFile(path)
	if got := os.Getenv("EXPENSE_CLI_TEST"); got != "from-file" {
		t.Errorf("EXPENSE_CLI_TEST = %q, want from-file", got)
	}
	if got := os.Getenv("EXPENSE_CLI_KEEP"); got != "from-env" {
		t.Errorf("EXPENSE_CLI_KEEP = %q, environment should win", got)
	}

	LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
}

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := SetupLogger(&config.Config{LogLevel: "warn", LogFormat: "json"}, log.ComponentWorker)
	if logger.Component() != log.ComponentWorker {
		t.Errorf("component = %q", logger.Component())
	}
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be filtered at warn level")
	}
	if !logger.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be enabled")
	}
}

func TestShutdownContextCancel(t *testing.T) {
	ctx, cancel := ShutdownContext(log.Discard())
	cancel()
	<-ctx.Done()
}
