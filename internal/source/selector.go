// Package source acquires the candidate recording a run operates on.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"recpub/internal/logging"
	"recpub/internal/media/ffprobe"
	"recpub/internal/services"
)

// Recording describes one candidate source file.
type Recording struct {
	Path        string
	DisplayName string
	Extension   string
	ModTime     time.Time
	SizeBytes   int64
	// Duration is filled best-effort via ffprobe and may be zero.
	Duration time.Duration
}

// recordingExtensions mirrors the video formats the recorder produces.
var recordingExtensions = map[string]struct{}{
	".mp4": {},
	".mkv": {},
	".mov": {},
	".avi": {},
	".flv": {},
}

// Selector lists candidate recordings and validates explicit paths.
type Selector struct {
	sourceDir    string
	limit        int
	probeBinary  string
	probeTimeout time.Duration
	logger       *slog.Logger
}

// NewSelector constructs a selector over the configured source directory.
func NewSelector(sourceDir string, limit int, probeBinary string, probeTimeout time.Duration, logger *slog.Logger) *Selector {
	if limit <= 0 {
		limit = 5
	}
	if probeTimeout <= 0 {
		probeTimeout = 10 * time.Second
	}
	return &Selector{
		sourceDir:    sourceDir,
		limit:        limit,
		probeBinary:  probeBinary,
		probeTimeout: probeTimeout,
		logger:       logging.NewComponentLogger(logger, "source"),
	}
}

// FromPath resolves an explicit path to a Recording, failing with
// services.ErrSourceNotFound unless it names an existing regular file.
func (s *Selector) FromPath(path string) (Recording, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Recording{}, services.Wrap(services.ErrSourceNotFound, "source", "stat recording", fmt.Sprintf("path %s", path), err)
	}
	if !info.Mode().IsRegular() {
		return Recording{}, services.Wrap(services.ErrSourceNotFound, "source", "stat recording",
			fmt.Sprintf("%s is not a regular file", path), nil)
	}
	absolute, err := filepath.Abs(path)
	if err != nil {
		return Recording{}, services.Wrap(services.ErrSourceNotFound, "source", "resolve recording", fmt.Sprintf("path %s", path), err)
	}
	return Recording{
		Path:        absolute,
		DisplayName: filepath.Base(absolute),
		Extension:   filepath.Ext(absolute),
		ModTime:     info.ModTime(),
		SizeBytes:   info.Size(),
	}, nil
}

// Candidates returns the most-recently-modified recordings from the source
// directory, newest first, capped at the configured limit. Duration is
// enriched best-effort via ffprobe; probe failures are logged and ignored.
func (s *Selector) Candidates(ctx context.Context) ([]Recording, error) {
	entries, err := os.ReadDir(s.sourceDir)
	if err != nil {
		return nil, services.Wrap(services.ErrSourceNotFound, "source", "scan source dir", fmt.Sprintf("directory %s", s.sourceDir), err)
	}

	var candidates []Recording
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := recordingExtensions[ext]; !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, Recording{
			Path:        filepath.Join(s.sourceDir, entry.Name()),
			DisplayName: entry.Name(),
			Extension:   filepath.Ext(entry.Name()),
			ModTime:     info.ModTime(),
			SizeBytes:   info.Size(),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ModTime.After(candidates[j].ModTime)
	})
	if len(candidates) > s.limit {
		candidates = candidates[:s.limit]
	}

	for i := range candidates {
		candidates[i].Duration = s.probeDuration(ctx, candidates[i].Path)
	}
	return candidates, nil
}

func (s *Selector) probeDuration(ctx context.Context, path string) time.Duration {
	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()
	result, err := ffprobe.Inspect(probeCtx, s.probeBinary, path)
	if err != nil {
		s.logger.Debug("candidate probe failed", logging.String("path", path), logging.Error(err))
		return 0
	}
	return result.Duration()
}
