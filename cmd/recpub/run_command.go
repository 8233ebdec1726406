package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"recpub/internal/confirm"
	"recpub/internal/history"
	"recpub/internal/logging"
	"recpub/internal/notifications"
	"recpub/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		sourceFlag    string
		titleFlag     string
		artistFlag    string
		skipAudioFlag bool
		skipVideoFlag bool
		debugFlag     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the finalize-and-publish pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			interactive := confirm.IsInteractive(os.Stdin) && confirm.IsInteractive(os.Stdout)
			var provider confirm.Provider
			if interactive {
				provider = confirm.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout())
			} else {
				provider = confirm.Auto{}
			}

			store, storeErr := history.Open(cfg)
			if storeErr != nil {
				logger.Warn("run history unavailable", logging.Error(storeErr))
			} else {
				defer func() { _ = store.Close() }()
			}

			orch := pipeline.New(cfg, provider, store, notifications.NewService(cfg), logger)
			report, err := orch.Run(cmd.Context(), pipeline.RunConfig{
				Source:      sourceFlag,
				Title:       titleFlag,
				Artist:      artistFlag,
				SkipAudio:   skipAudioFlag,
				SkipVideo:   skipVideoFlag,
				Debug:       debugFlag,
				Interactive: interactive,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if report.State == pipeline.StateCancelled {
				fmt.Fprintln(out, "Run cancelled.")
				return nil
			}
			fmt.Fprintf(out, "Published %s\n", report.BaseName)
			fmt.Fprintln(out, renderStageResults(report))
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceFlag, "source", "", "Explicit recording path (skips candidate selection)")
	cmd.Flags().StringVar(&titleFlag, "title", "", "Title override for the title file")
	cmd.Flags().StringVar(&artistFlag, "artist", "", "Artist override for the title file")
	cmd.Flags().BoolVar(&skipAudioFlag, "skip-audio", false, "Skip the audio extract and its replication")
	cmd.Flags().BoolVar(&skipVideoFlag, "skip-video", false, "Skip the compressed video and its replication")
	cmd.Flags().BoolVar(&debugFlag, "debug", false, "Encode into staging but bypass replication")
	return cmd
}

func renderStageResults(report pipeline.Report) string {
	names := make([]string, 0, len(report.StageResults))
	for name := range report.StageResults {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, string(report.StageResults[name])})
	}
	return renderTable([]string{"Stage", "Result"}, rows)
}
