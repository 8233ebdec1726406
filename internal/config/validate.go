package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	required := []struct {
		name  string
		value string
	}{
		{"paths.source_dir", c.Paths.SourceDir},
		{"paths.title_file", c.Paths.TitleFile},
		{"paths.staging_dir", c.Paths.StagingDir},
		{"paths.originals_dir", c.Paths.OriginalsDir},
		{"paths.video_dir", c.Paths.VideoDir},
		{"paths.audio_dir", c.Paths.AudioDir},
		{"paths.log_dir", c.Paths.LogDir},
	}
	seen := make(map[string]string, len(required))
	for _, field := range required {
		if field.value == "" {
			return fmt.Errorf("%s must be set", field.name)
		}
		seen[field.value] = field.name
	}
	// The three destination roots must be distinct from the staging dir so
	// the existence checks in replication stay meaningful.
	for _, dest := range []string{c.Paths.OriginalsDir, c.Paths.VideoDir, c.Paths.AudioDir} {
		if dest == c.Paths.StagingDir {
			return errors.New("destination roots must differ from paths.staging_dir")
		}
	}
	return nil
}

func (c *Config) validateEncoding() error {
	if c.Encoding.VideoCRF < 0 || c.Encoding.VideoCRF > 51 {
		return errors.New("encoding.video_crf must be between 0 and 51")
	}
	if c.Encoding.VideoScaleHeight < 0 {
		return errors.New("encoding.video_scale_height must not be negative")
	}
	if c.Encoding.VideoFPS < 0 {
		return errors.New("encoding.video_fps must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
