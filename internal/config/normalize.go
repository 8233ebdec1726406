package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEncoding()
	c.normalizeWorkflow()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"paths.source_dir", &c.Paths.SourceDir},
		{"paths.title_file", &c.Paths.TitleFile},
		{"paths.staging_dir", &c.Paths.StagingDir},
		{"paths.originals_dir", &c.Paths.OriginalsDir},
		{"paths.video_dir", &c.Paths.VideoDir},
		{"paths.audio_dir", &c.Paths.AudioDir},
		{"paths.log_dir", &c.Paths.LogDir},
	}
	for _, field := range fields {
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeEncoding() {
	e := &c.Encoding
	e.FFmpegBinary = strings.TrimSpace(e.FFmpegBinary)
	e.FFprobeBinary = strings.TrimSpace(e.FFprobeBinary)
	if e.RetryAttempts < 0 {
		e.RetryAttempts = 0
	}
	if strings.TrimSpace(e.AudioCodec) == "" {
		e.AudioCodec = defaultAudioCodec
	}
	if strings.TrimSpace(e.AudioBitrate) == "" {
		e.AudioBitrate = defaultAudioBitrate
	}
	if strings.TrimSpace(e.AudioExtension) == "" {
		e.AudioExtension = defaultAudioExtension
	}
	if strings.TrimSpace(e.VideoCodec) == "" {
		e.VideoCodec = defaultVideoCodec
	}
	if strings.TrimSpace(e.VideoPreset) == "" {
		e.VideoPreset = defaultVideoPreset
	}
	if e.VideoCRF <= 0 {
		e.VideoCRF = defaultVideoCRF
	}
	if strings.TrimSpace(e.VideoExtension) == "" {
		e.VideoExtension = defaultVideoExtension
	}
	if !strings.HasPrefix(e.AudioExtension, ".") {
		e.AudioExtension = "." + e.AudioExtension
	}
	if !strings.HasPrefix(e.VideoExtension, ".") {
		e.VideoExtension = "." + e.VideoExtension
	}
	e.TagTitle = strings.TrimSpace(e.TagTitle)
}

func (c *Config) normalizeWorkflow() {
	w := &c.Workflow
	if w.LockPollSeconds <= 0 {
		w.LockPollSeconds = defaultLockPollSeconds
	}
	if w.TitlePollMillis <= 0 {
		w.TitlePollMillis = defaultTitlePollMillis
	}
	if w.CandidateLimit <= 0 {
		w.CandidateLimit = defaultCandidateLimit
	}
	if w.ProbeTimeoutSecond <= 0 {
		w.ProbeTimeoutSecond = defaultProbeTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}
