package metadata

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"recpub/internal/logging"
	"recpub/internal/services"
)

// Resolver produces a validated Metadata value from explicit overrides or
// the configured title source file.
type Resolver struct {
	titleFile    string
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewResolver constructs a resolver for the given title source file.
func NewResolver(titleFile string, pollInterval time.Duration, logger *slog.Logger) *Resolver {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Resolver{
		titleFile:    titleFile,
		pollInterval: pollInterval,
		logger:       logging.NewComponentLogger(logger, "metadata"),
	}
}

// Resolve returns Metadata from explicit values when both are supplied, or
// from a one-shot read of the title file otherwise. It fails with
// services.ErrMissingMetadata when neither source yields both fields.
func (r *Resolver) Resolve(explicitTitle, explicitArtist string) (Metadata, error) {
	if md, ok := explicit(explicitTitle, explicitArtist); ok {
		r.logger.Debug("using explicit metadata", logging.String("title", md.Title))
		return md, nil
	}

	title, artist, ready, err := readTitleSource(r.titleFile)
	if err != nil {
		return Metadata{}, services.Wrap(services.ErrMissingMetadata, "metadata", "read title source", fmt.Sprintf("cannot read %s", r.titleFile), err)
	}
	if !ready {
		return Metadata{}, services.Wrap(services.ErrMissingMetadata, "metadata", "read title source",
			fmt.Sprintf("%s must contain at least two non-blank lines (title, artist)", r.titleFile), nil)
	}
	return New(title, artist), nil
}

// WaitForTitleSource polls the title file until it contains two non-blank
// lines, then returns the Metadata. Used by interactive runs where the
// operator may still be typing the title. Respects context cancellation.
func (r *Resolver) WaitForTitleSource(ctx context.Context, explicitTitle, explicitArtist string) (Metadata, error) {
	if md, ok := explicit(explicitTitle, explicitArtist); ok {
		return md, nil
	}

	logged := false
	for {
		title, artist, ready, err := readTitleSource(r.titleFile)
		if err == nil && ready {
			return New(title, artist), nil
		}
		if !logged {
			r.logger.Info("waiting for title source",
				logging.String("path", r.titleFile),
				logging.String("reason", "needs two non-blank lines"))
			logged = true
		}
		select {
		case <-ctx.Done():
			return Metadata{}, ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
}

// WriteBack persists the confirmed title and artist to the title file so a
// re-run resolves identical metadata.
func (r *Resolver) WriteBack(md Metadata) error {
	content := md.NormalizedTitle + "\n" + md.Artist + "\n"
	if err := os.WriteFile(r.titleFile, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write title source: %w", err)
	}
	return nil
}

func explicit(title, artist string) (Metadata, bool) {
	md := New(title, artist)
	if md.Valid() {
		return md, true
	}
	return Metadata{}, false
}

// readTitleSource reads the first two non-blank lines of the title file.
// ready is false when the file is missing or has fewer than two such lines.
func readTitleSource(path string) (title, artist string, ready bool, err error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", false, nil
		}
		return "", "", false, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == 2 {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", "", false, err
	}
	if len(lines) < 2 {
		return "", "", false, nil
	}
	return lines[0], lines[1], true, nil
}
