// Package lockwait blocks a run until the source recording is no longer
// held open for writing.
package lockwait

import (
	"context"
	"log/slog"
	"os"
	"time"

	"recpub/internal/logging"
)

// Prober is the capability used to decide whether any other process still
// holds the recording open for writing. Implementations may substitute
// filesystem-event detection where available.
type Prober interface {
	Probe(path string) (bool, error)
}

// Waiter polls a recording at a fixed interval until the prober reports it
// free and its size and mtime have stopped changing between polls. There is
// no maximum wait: a recording may run arbitrarily long.
type Waiter struct {
	prober   Prober
	interval time.Duration
	logger   *slog.Logger
}

// NewWaiter constructs a waiter with the given probe interval.
func NewWaiter(prober Prober, interval time.Duration, logger *slog.Logger) *Waiter {
	if prober == nil {
		prober = FlockProber{}
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Waiter{
		prober:   prober,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "lockwait"),
	}
}

// Wait blocks until the recording settles. It returns early only when the
// context is cancelled, which for this pipeline means the whole process is
// shutting down.
func (w *Waiter) Wait(ctx context.Context, path string) error {
	w.logger.Info("waiting for recording to finish", logging.String("path", path))

	var lastSize int64 = -1
	var lastMod time.Time
	haveBaseline := false

	for {
		free, err := w.prober.Probe(path)
		if err != nil {
			w.logger.Debug("lock probe failed", logging.String("path", path), logging.Error(err))
			free = false
		}

		if free {
			info, statErr := os.Stat(path)
			if statErr == nil {
				stable := haveBaseline && info.Size() == lastSize && info.ModTime().Equal(lastMod)
				if stable {
					w.logger.Info("recording settled",
						logging.String("path", path),
						logging.Int64("size_bytes", info.Size()))
					return nil
				}
				lastSize = info.Size()
				lastMod = info.ModTime()
				haveBaseline = true
			} else {
				haveBaseline = false
			}
		} else {
			haveBaseline = false
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
}
