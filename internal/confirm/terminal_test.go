package confirm

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"recpub/internal/metadata"
	"recpub/internal/source"
)

func testMetadata() metadata.Metadata {
	return metadata.New("Weekly Sync", "Pat")
}

func TestTerminalConfirmMetadataAccept(t *testing.T) {
	var out bytes.Buffer
	terminal := NewTerminal(strings.NewReader("y\n"), &out)

	decision, err := terminal.ConfirmMetadata(context.Background(), testMetadata(), false, true)
	if err != nil {
		t.Fatalf("ConfirmMetadata: %v", err)
	}
	if !decision.Accepted {
		t.Fatal("expected acceptance")
	}
	if decision.Title != "Weekly Sync" || decision.Artist != "Pat" {
		t.Errorf("decision kept wrong fields: %+v", decision)
	}
	if decision.SkipAudio || !decision.SkipVideo {
		t.Errorf("skip flags not carried through: %+v", decision)
	}
}

func TestTerminalConfirmMetadataEdit(t *testing.T) {
	// Edit title, keep artist, toggle skip-audio on, keep skip-video off,
	// then accept.
	input := "e\nStandup Notes\n\ny\n\ny\n"
	var out bytes.Buffer
	terminal := NewTerminal(strings.NewReader(input), &out)

	decision, err := terminal.ConfirmMetadata(context.Background(), testMetadata(), false, false)
	if err != nil {
		t.Fatalf("ConfirmMetadata: %v", err)
	}
	if !decision.Accepted {
		t.Fatal("expected acceptance after edit")
	}
	if decision.Title != "Standup Notes" {
		t.Errorf("Title = %q, want %q", decision.Title, "Standup Notes")
	}
	if decision.Artist != "Pat" {
		t.Errorf("Artist = %q, want %q", decision.Artist, "Pat")
	}
	if !decision.SkipAudio || decision.SkipVideo {
		t.Errorf("skip flags = audio %v video %v, want audio true video false", decision.SkipAudio, decision.SkipVideo)
	}
}

func TestTerminalConfirmMetadataDecline(t *testing.T) {
	for _, input := range []string{"n\n", ""} {
		var out bytes.Buffer
		terminal := NewTerminal(strings.NewReader(input), &out)
		decision, err := terminal.ConfirmMetadata(context.Background(), testMetadata(), false, false)
		if err != nil {
			t.Fatalf("ConfirmMetadata(%q): %v", input, err)
		}
		if decision.Accepted {
			t.Errorf("input %q: expected decline", input)
		}
	}
}

func TestTerminalSelectRecordingByNumber(t *testing.T) {
	candidates := []source.Recording{
		{Path: "/rec/a.mkv", DisplayName: "a.mkv", ModTime: time.Now(), SizeBytes: 1 << 20},
		{Path: "/rec/b.mkv", DisplayName: "b.mkv", ModTime: time.Now(), SizeBytes: 2 << 20},
	}
	var out bytes.Buffer
	terminal := NewTerminal(strings.NewReader("2\n"), &out)

	decision, err := terminal.SelectRecording(context.Background(), candidates)
	if err != nil {
		t.Fatalf("SelectRecording: %v", err)
	}
	if !decision.Accepted || decision.Path != "/rec/b.mkv" {
		t.Fatalf("decision = %+v, want candidate 2", decision)
	}
	if !strings.Contains(out.String(), "b.mkv") {
		t.Error("candidate table not rendered")
	}
}

func TestTerminalSelectRecordingByPath(t *testing.T) {
	browsed := filepath.Join(t.TempDir(), "other.mkv")
	if err := os.WriteFile(browsed, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// First answer is out of range, second is a real file.
	input := "9\n" + browsed + "\n"
	var out bytes.Buffer
	terminal := NewTerminal(strings.NewReader(input), &out)

	decision, err := terminal.SelectRecording(context.Background(), nil)
	if err != nil {
		t.Fatalf("SelectRecording: %v", err)
	}
	if !decision.Accepted || decision.Path != browsed {
		t.Fatalf("decision = %+v, want browsed path", decision)
	}
}

func TestTerminalSelectRecordingCancel(t *testing.T) {
	var out bytes.Buffer
	terminal := NewTerminal(strings.NewReader("q\n"), &out)
	decision, err := terminal.SelectRecording(context.Background(), nil)
	if err != nil {
		t.Fatalf("SelectRecording: %v", err)
	}
	if decision.Accepted {
		t.Fatal("expected cancellation")
	}
}

func TestTerminalConfirmReplication(t *testing.T) {
	var out bytes.Buffer
	terminal := NewTerminal(strings.NewReader("\n"), &out)
	err := terminal.ConfirmReplication(context.Background(), "20260204 Weekly Sync", []string{"/dest/originals", "/dest/audio"})
	if err != nil {
		t.Fatalf("ConfirmReplication: %v", err)
	}
	if !strings.Contains(out.String(), "/dest/audio") {
		t.Error("destinations not listed")
	}
}

func TestAutoProvider(t *testing.T) {
	var auto Auto
	decision, err := auto.ConfirmMetadata(context.Background(), testMetadata(), true, false)
	if err != nil {
		t.Fatal(err)
	}
	if !decision.Accepted || !decision.SkipAudio || decision.SkipVideo {
		t.Fatalf("decision = %+v", decision)
	}

	selected, err := auto.SelectRecording(context.Background(), []source.Recording{{Path: "/rec/a.mkv"}})
	if err != nil {
		t.Fatal(err)
	}
	if selected.Accepted {
		t.Fatal("non-interactive selection must decline")
	}

	if err := auto.ConfirmReplication(context.Background(), "base", nil); err != nil {
		t.Fatalf("ConfirmReplication: %v", err)
	}
}
