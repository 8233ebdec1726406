package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recpub/internal/logging"
)

func TestNewWritesConsoleLinesToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.log")

	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	component := logging.NewComponentLogger(logger, "encoder")
	component.Info("stage started", logging.String("artifact", "audio"))
	component.Debug("suppressed at info level")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "INFO encoder: stage started artifact=audio") {
		t.Fatalf("unexpected console line: %q", out)
	}
	if strings.Contains(out, "suppressed") {
		t.Fatalf("debug line should be filtered: %q", out)
	}
}

func TestNewJSONFormat(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.json")

	logger, err := logging.New(logging.Options{
		Level:       "debug",
		Format:      "json",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hello", logging.Int("n", 3))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"msg":"hello"`, `"level":"info"`, `"n":3`} {
		if !strings.Contains(out, want) {
			t.Fatalf("json output missing %s: %q", want, out)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestWithContextAddsStageAndRunID(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "ctx.log")

	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := logging.WithRunID(logging.WithStage(context.Background(), "replicating"), "run-1")
	logging.WithContext(ctx, logger).Info("copy complete")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "stage=replicating") || !strings.Contains(out, "run_id=run-1") {
		t.Fatalf("context fields missing: %q", out)
	}
}
