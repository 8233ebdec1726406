package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directory layout for one pipeline run.
type Paths struct {
	SourceDir    string `toml:"source_dir"`
	TitleFile    string `toml:"title_file"`
	StagingDir   string `toml:"staging_dir"`
	OriginalsDir string `toml:"originals_dir"`
	VideoDir     string `toml:"video_dir"`
	AudioDir     string `toml:"audio_dir"`
	LogDir       string `toml:"log_dir"`
}

// Encoding contains the declarative encode profiles handed to ffmpeg.
// The pipeline treats these as opaque configuration data.
type Encoding struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	RetryAttempts int    `toml:"retry_attempts"`

	AudioCodec       string `toml:"audio_codec"`
	AudioBitrate     string `toml:"audio_bitrate"`
	AudioApplication string `toml:"audio_application"`
	AudioExtension   string `toml:"audio_extension"`

	VideoCodec       string `toml:"video_codec"`
	VideoPreset      string `toml:"video_preset"`
	VideoCRF         int    `toml:"video_crf"`
	VideoScaleHeight int    `toml:"video_scale_height"`
	VideoFPS         int    `toml:"video_fps"`
	VideoExtension   string `toml:"video_extension"`

	// TagTitle is embedded as the stream title tag on both artifacts.
	TagTitle string `toml:"tag_title"`
}

// Workflow contains polling intervals and selection limits.
type Workflow struct {
	LockPollSeconds    int `toml:"lock_poll_seconds"`
	TitlePollMillis    int `toml:"title_poll_millis"`
	CandidateLimit     int `toml:"candidate_limit"`
	ProbeTimeoutSecond int `toml:"probe_timeout_seconds"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains optional ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config encapsulates all configuration values for recpub.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Encoding      Encoding      `toml:"encoding"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/recpub/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("recpub.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the staging and log directories. Destination
// roots are created on a best-effort basis so config load still succeeds
// when archive storage is temporarily offline; replication surfaces the
// real error when it actually needs them.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, dir := range []string{c.Paths.OriginalsDir, c.Paths.VideoDir, c.Paths.AudioDir} {
		if strings.TrimSpace(dir) != "" {
			_ = os.MkdirAll(dir, 0o755)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	if strings.TrimSpace(c.Encoding.FFmpegBinary) != "" {
		return c.Encoding.FFmpegBinary
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for candidate
// inspection.
func (c *Config) FFprobeBinary() string {
	if strings.TrimSpace(c.Encoding.FFprobeBinary) != "" {
		return c.Encoding.FFprobeBinary
	}
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
