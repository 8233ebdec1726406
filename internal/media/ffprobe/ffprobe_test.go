package ffprobe_test

import (
	"encoding/json"
	"testing"
	"time"

	"recpub/internal/media/ffprobe"
)

const sampleOutput = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "avg_frame_rate": "30000/1001", "width": 1920, "height": 1080},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "channels": 2}
  ],
  "format": {"filename": "rec.mkv", "duration": "125.500000", "size": "1048576", "format_name": "matroska"}
}`

func TestResultParsing(t *testing.T) {
	var result ffprobe.Result
	if err := json.Unmarshal([]byte(sampleOutput), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got := result.Duration(); got != 125500*time.Millisecond {
		t.Fatalf("Duration = %v", got)
	}
	fps := result.AverageFPS()
	if fps < 29.9 || fps > 30.0 {
		t.Fatalf("AverageFPS = %v", fps)
	}
}

func TestResultZeroValuesWhenUnavailable(t *testing.T) {
	var result ffprobe.Result
	if result.Duration() != 0 {
		t.Fatal("expected zero duration")
	}
	if result.AverageFPS() != 0 {
		t.Fatal("expected zero fps")
	}
}
