package encoding

import (
	"fmt"
	"strings"

	"recpub/internal/config"
	"recpub/internal/metadata"
)

// Profile is the declarative encode configuration handed to ffmpeg. Stage
// logic never inspects its contents; it is opaque configuration data
// supplied by the caller.
type Profile struct {
	Name string

	// AudioOnly drops the video streams and extracts the first audio
	// stream.
	AudioOnly bool

	Codec       string
	Bitrate     string // audio quality target
	Application string // opus application mode
	Preset      string // video encoder preset
	CRF         int    // video quality target
	ScaleHeight int    // target height, width derived (-2 keeps aspect)
	FPS         int

	// Tags are embedded into the output; source metadata is stripped.
	TagTitle       string
	TagAlbumArtist string
}

// AudioProfile builds the audio-extract profile from config and run
// metadata.
func AudioProfile(enc config.Encoding, md metadata.Metadata) Profile {
	return Profile{
		Name:           "audio",
		AudioOnly:      true,
		Codec:          enc.AudioCodec,
		Bitrate:        enc.AudioBitrate,
		Application:    enc.AudioApplication,
		TagTitle:       tagTitle(enc, md),
		TagAlbumArtist: md.Artist,
	}
}

// VideoProfile builds the compressed-video profile from config and run
// metadata.
func VideoProfile(enc config.Encoding, md metadata.Metadata) Profile {
	return Profile{
		Name:        "video",
		Codec:       enc.VideoCodec,
		Preset:      enc.VideoPreset,
		CRF:         enc.VideoCRF,
		ScaleHeight: enc.VideoScaleHeight,
		FPS:         enc.VideoFPS,
		TagTitle:    tagTitle(enc, md),
	}
}

func tagTitle(enc config.Encoding, md metadata.Metadata) string {
	if enc.TagTitle != "" {
		return enc.TagTitle
	}
	return md.NormalizedTitle
}

// Args renders the ffmpeg argument list for one invocation. Idempotency is
// owned by the stage, so -y is safe here: ffmpeg only runs when the output
// is absent.
func (p Profile) Args(inputPath, outputPath string) []string {
	args := []string{"-y", "-i", inputPath}

	if p.AudioOnly {
		args = append(args, "-map", "0:a:0", "-vn", "-c:a", p.Codec)
		if p.Application != "" {
			args = append(args, "-application", p.Application)
		}
		if p.Bitrate != "" {
			args = append(args, "-b:a", p.Bitrate)
		}
		args = append(args, "-map_metadata", "-1")
		if p.TagTitle != "" {
			args = append(args, "-metadata", "title="+p.TagTitle)
		}
		if p.TagAlbumArtist != "" {
			args = append(args, "-metadata", "album_artist="+p.TagAlbumArtist)
		}
		if p.TagTitle != "" {
			args = append(args, "-metadata:s:a:0", "title="+p.TagTitle)
		}
		return append(args, outputPath)
	}

	if p.ScaleHeight > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=-2:%d", p.ScaleHeight))
	}
	args = append(args, "-map_metadata", "-1", "-c:v", p.Codec)
	if p.Preset != "" {
		args = append(args, "-preset", p.Preset)
	}
	args = append(args, "-crf", fmt.Sprintf("%d", p.CRF))
	if p.FPS > 0 {
		args = append(args, "-r", fmt.Sprintf("%d", p.FPS))
	}
	args = append(args, "-c:a", "copy", "-c:s", "copy", "-map_chapters", "0")
	if p.TagTitle != "" {
		args = append(args, "-metadata:s:a:0", "title="+p.TagTitle)
	}
	return append(args, outputPath)
}

// String returns a loggable one-line summary of the profile.
func (p Profile) String() string {
	parts := []string{p.Name, p.Codec}
	if p.Bitrate != "" {
		parts = append(parts, p.Bitrate)
	}
	if p.CRF > 0 && !p.AudioOnly {
		parts = append(parts, fmt.Sprintf("crf=%d", p.CRF))
	}
	if p.ScaleHeight > 0 {
		parts = append(parts, fmt.Sprintf("h=%d", p.ScaleHeight))
	}
	return strings.Join(parts, " ")
}
