package config

const (
	defaultSourceDir    = "~/Videos"
	defaultTitleFile    = "~/Desktop/title.txt"
	defaultStagingDir   = "~/.local/share/recpub/staging"
	defaultOriginalsDir = "~/archive/originals"
	defaultVideoDir     = "~/archive/compressed"
	defaultAudioDir     = "~/archive/audio"
	defaultLogDir       = "~/.local/share/recpub/logs"

	defaultAudioCodec       = "libopus"
	defaultAudioBitrate     = "18k"
	defaultAudioApplication = "voip"
	defaultAudioExtension   = ".opus"
	defaultVideoCodec       = "libx265"
	defaultVideoPreset      = "veryfast"
	defaultVideoCRF         = 24
	defaultVideoScaleHeight = 480
	defaultVideoFPS         = 25
	defaultVideoExtension   = ".mp4"

	defaultLockPollSeconds     = 1
	defaultTitlePollMillis     = 500
	defaultCandidateLimit      = 5
	defaultProbeTimeoutSeconds = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultNotifyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SourceDir:    defaultSourceDir,
			TitleFile:    defaultTitleFile,
			StagingDir:   defaultStagingDir,
			OriginalsDir: defaultOriginalsDir,
			VideoDir:     defaultVideoDir,
			AudioDir:     defaultAudioDir,
			LogDir:       defaultLogDir,
		},
		Encoding: Encoding{
			AudioCodec:       defaultAudioCodec,
			AudioBitrate:     defaultAudioBitrate,
			AudioApplication: defaultAudioApplication,
			AudioExtension:   defaultAudioExtension,
			VideoCodec:       defaultVideoCodec,
			VideoPreset:      defaultVideoPreset,
			VideoCRF:         defaultVideoCRF,
			VideoScaleHeight: defaultVideoScaleHeight,
			VideoFPS:         defaultVideoFPS,
			VideoExtension:   defaultVideoExtension,
		},
		Workflow: Workflow{
			LockPollSeconds:    defaultLockPollSeconds,
			TitlePollMillis:    defaultTitlePollMillis,
			CandidateLimit:     defaultCandidateLimit,
			ProbeTimeoutSecond: defaultProbeTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
	}
}
