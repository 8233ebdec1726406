package confirm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"recpub/internal/fileutil"
	"recpub/internal/metadata"
	"recpub/internal/source"
)

// Terminal prompts on in/out. EOF on any prompt is treated as a decline.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal constructs a terminal provider over the given streams.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

func (t *Terminal) ConfirmMetadata(ctx context.Context, md metadata.Metadata, skipAudio, skipVideo bool) (MetadataDecision, error) {
	decision := MetadataDecision{
		Title:     md.Title,
		Artist:    md.Artist,
		SkipAudio: skipAudio,
		SkipVideo: skipVideo,
	}
	for {
		if err := ctx.Err(); err != nil {
			return MetadataDecision{}, err
		}
		fmt.Fprintf(t.out, "\nTitle:  %s\nArtist: %s\n", decision.Title, decision.Artist)
		fmt.Fprintf(t.out, "Skip audio: %v  Skip video: %v\n", decision.SkipAudio, decision.SkipVideo)
		answer, ok := t.prompt("Proceed? [Y/n/e(dit)]: ")
		if !ok {
			return MetadataDecision{}, nil
		}
		switch strings.ToLower(answer) {
		case "", "y", "yes":
			decision.Accepted = true
			return decision, nil
		case "n", "no":
			return MetadataDecision{}, nil
		case "e", "edit":
			if !t.editMetadata(&decision) {
				return MetadataDecision{}, nil
			}
		}
	}
}

// editMetadata prompts for each field; an empty answer keeps the current
// value. Returns false on EOF.
func (t *Terminal) editMetadata(decision *MetadataDecision) bool {
	answer, ok := t.prompt(fmt.Sprintf("Title [%s]: ", decision.Title))
	if !ok {
		return false
	}
	if answer != "" {
		decision.Title = answer
	}
	answer, ok = t.prompt(fmt.Sprintf("Artist [%s]: ", decision.Artist))
	if !ok {
		return false
	}
	if answer != "" {
		decision.Artist = answer
	}
	skipAudio, ok := t.promptBool("Skip audio encode?", decision.SkipAudio)
	if !ok {
		return false
	}
	decision.SkipAudio = skipAudio
	skipVideo, ok := t.promptBool("Skip video encode?", decision.SkipVideo)
	if !ok {
		return false
	}
	decision.SkipVideo = skipVideo
	return true
}

func (t *Terminal) SelectRecording(ctx context.Context, candidates []source.Recording) (SourceDecision, error) {
	if len(candidates) > 0 {
		fmt.Fprintln(t.out)
		fmt.Fprintln(t.out, renderCandidates(candidates))
	} else {
		fmt.Fprintln(t.out, "No recordings found in the source directory.")
	}
	for {
		if err := ctx.Err(); err != nil {
			return SourceDecision{}, err
		}
		answer, ok := t.prompt("Select a recording (number, path, or q to cancel): ")
		if !ok {
			return SourceDecision{}, nil
		}
		switch {
		case answer == "" || strings.EqualFold(answer, "q"):
			return SourceDecision{}, nil
		case isCandidateIndex(answer, len(candidates)):
			index, _ := strconv.Atoi(answer)
			return SourceDecision{Accepted: true, Path: candidates[index-1].Path}, nil
		case fileutil.IsRegularFile(answer):
			return SourceDecision{Accepted: true, Path: answer}, nil
		default:
			fmt.Fprintf(t.out, "Not a candidate number or an existing file: %s\n", answer)
		}
	}
}

func (t *Terminal) ConfirmReplication(ctx context.Context, baseName string, destinations []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fmt.Fprintf(t.out, "\nReplicating %q to:\n", baseName)
	for _, dest := range destinations {
		fmt.Fprintf(t.out, "  %s\n", dest)
	}
	t.prompt("Press Enter to start replication... ")
	return nil
}

// prompt reads one trimmed line; ok is false on EOF.
func (t *Terminal) prompt(question string) (string, bool) {
	fmt.Fprint(t.out, question)
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.TrimSpace(line), true
}

func (t *Terminal) promptBool(question string, current bool) (bool, bool) {
	hint := "[y/N]"
	if current {
		hint = "[Y/n]"
	}
	answer, ok := t.prompt(fmt.Sprintf("%s %s: ", question, hint))
	if !ok {
		return false, false
	}
	switch strings.ToLower(answer) {
	case "":
		return current, true
	case "y", "yes":
		return true, true
	default:
		return false, true
	}
}

func isCandidateIndex(answer string, count int) bool {
	index, err := strconv.Atoi(answer)
	return err == nil && index >= 1 && index <= count
}

func renderCandidates(candidates []source.Recording) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Recording", "Modified", "Duration", "Size"})
	for i, candidate := range candidates {
		tw.AppendRow(table.Row{
			i + 1,
			candidate.DisplayName,
			candidate.ModTime.Format("2006-01-02 15:04"),
			formatDuration(candidate.Duration),
			formatSize(candidate.SizeBytes),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
