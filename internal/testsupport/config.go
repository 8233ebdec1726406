// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"recpub/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.SourceDir = filepath.Join(base, "videos")
	cfgVal.Paths.TitleFile = filepath.Join(base, "title.txt")
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.OriginalsDir = filepath.Join(base, "dest", "originals")
	cfgVal.Paths.VideoDir = filepath.Join(base, "dest", "video")
	cfgVal.Paths.AudioDir = filepath.Join(base, "dest", "audio")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}

	if err := os.MkdirAll(cfgVal.Paths.SourceDir, 0o755); err != nil {
		t.Fatalf("mkdir source dir: %v", err)
	}
	if err := cfgVal.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithRetryAttempts sets the encode retry count on the test config.
func WithRetryAttempts(attempts int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoding.RetryAttempts = attempts
	}
}

// WithTagTitle sets the embedded stream title tag on the test config.
func WithTagTitle(title string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoding.TagTitle = title
	}
}
