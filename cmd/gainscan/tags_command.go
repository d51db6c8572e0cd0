package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"gainscan/internal/decode"
	"gainscan/internal/library"
	"gainscan/internal/loudness"
	"gainscan/internal/scan"
	"gainscan/internal/tags"
)

func newTagsCommand(ctx *commandContext) *cobra.Command {
	tagsCmd := &cobra.Command{
		Use:   "tags",
		Short: "Tag maintenance utilities",
	}

	tagsCmd.AddCommand(newTagsClearCommand(ctx))

	return tagsCmd
}

func newTagsClearCommand(ctx *commandContext) *cobra.Command {
	var recursive bool
	var extensions []string

	cmd := &cobra.Command{
		Use:   "clear [paths...]",
		Short: "Remove ReplayGain and R128 tags from files",
		Long: `Clear identifies each file's container and codec, then strips every
ReplayGain and R128 tag it carries. No loudness is measured.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("recursive") {
				cfg.Scan.Recursive = recursive
			}
			if cmd.Flags().Changed("extensions") {
				cfg.Scan.Extensions = extensions
			}
			if err := cfg.Finalize(); err != nil {
				return err
			}
			log, err := ctx.logger()
			if err != nil {
				return err
			}

			files, err := library.Discover(args, library.Options{
				Recursive:  cfg.Scan.Recursive,
				Extensions: cfg.Scan.Extensions,
			})
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return errors.New("no audio files found")
			}

			opener, err := decode.New(cfg.FFmpeg.FFmpegBinary, cfg.FFmpeg.FFprobeBinary)
			if err != nil {
				return err
			}
			backend, err := loudness.NewFFmpegBackend(cfg.FFmpeg.FFmpegBinary)
			if err != nil {
				return err
			}

			lock, err := acquireRunLock()
			if err != nil {
				return err
			}
			defer func() { _ = lock.Unlock() }()

			runner := library.NewRunner(library.RunnerOptions{
				Scanner: scan.NewScanner(opener, backend, log),
				Meters:  backend,
				Sink:    nopSink{},
				Tagger:  tags.NewWriter(tags.Options{Mode: tags.ModeDelete}, log),
				Log:     log,
				Threads: cfg.Scan.Threads,
			})

			summary := runner.Clear(cmd.Context(), files)
			if summary.Failed() {
				return fmt.Errorf("completed with failures: %d/%d files, %d tag removals",
					summary.TracksFailed, summary.Tracks, summary.TagsFailed)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed ReplayGain tags from %d files\n", summary.Tracks)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into subdirectories")
	cmd.Flags().StringSliceVar(&extensions, "extensions", nil, "Extension allow-list for directory arguments")

	return cmd
}
