package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"gainscan/internal/config"
	"gainscan/internal/decode"
	"gainscan/internal/history"
	"gainscan/internal/library"
	"gainscan/internal/loudness"
	"gainscan/internal/report"
	"gainscan/internal/scan"
	"gainscan/internal/tags"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var (
		album           bool
		preventClipping bool
		recursive       bool
		lufs            bool
		lowercase       bool
		quiet           bool
		noHistory       bool
		pregain         float64
		maxTruePeak     float64
		threads         int
		extensions      []string
		tagMode         string
		outputFormat    string
		csvPath         string
	)

	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Measure loudness and compute ReplayGain values",
		Long: `Scan measures the integrated loudness, loudness range, and true peak of
each audio file, computes ReplayGain 2.0 values against the -18 LUFS
reference (-23 LUFS for Opus), and optionally writes tags. In album mode
files are grouped by directory and an album-wide gain is computed as if
the whole album had been measured in one pass.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("album") {
				cfg.Scan.Album = album
			}
			if flags.Changed("pregain") {
				cfg.Scan.Pregain = pregain
			}
			if flags.Changed("prevent-clipping") {
				cfg.Scan.PreventClipping = preventClipping
			}
			if flags.Changed("max-true-peak") {
				cfg.Scan.MaxTruePeak = maxTruePeak
			}
			if flags.Changed("threads") {
				cfg.Scan.Threads = threads
			}
			if flags.Changed("recursive") {
				cfg.Scan.Recursive = recursive
			}
			if flags.Changed("extensions") {
				cfg.Scan.Extensions = extensions
			}
			if flags.Changed("tagmode") {
				cfg.Tags.Mode = tagMode
			}
			if flags.Changed("lufs") && lufs {
				cfg.Tags.Unit = "LU"
			}
			if flags.Changed("lowercase") {
				cfg.Tags.Lowercase = lowercase
			}
			if flags.Changed("output") {
				cfg.Output.Format = outputFormat
			}
			if flags.Changed("csv") {
				cfg.Output.CSVPath = csvPath
			}
			if flags.Changed("quiet") {
				cfg.Output.Quiet = quiet
			}
			if noHistory {
				cfg.History.Enabled = false
			}
			if err := cfg.Finalize(); err != nil {
				return err
			}

			return runScan(cmd, ctx, cfg, args)
		},
	}

	cmd.Flags().BoolVarP(&album, "album", "a", false, "Compute album gain per directory")
	cmd.Flags().Float64VarP(&pregain, "pregain", "d", 0, "Extra gain in dB applied on top of the reference")
	cmd.Flags().BoolVarP(&preventClipping, "prevent-clipping", "k", false, "Lower gain so the true peak stays under the ceiling")
	cmd.Flags().Float64VarP(&maxTruePeak, "max-true-peak", "K", -1, "True peak ceiling in dBTP for clip checks")
	cmd.Flags().IntVarP(&threads, "threads", "j", 0, "Parallel scan workers (0 = CPU count)")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into subdirectories")
	cmd.Flags().StringSliceVar(&extensions, "extensions", nil, "Extension allow-list for directory arguments")
	cmd.Flags().StringVarP(&tagMode, "tagmode", "s", "", "Tag handling: skip|delete|standard|extended")
	cmd.Flags().BoolVar(&lufs, "lufs", false, "Report and tag gain/range in LU instead of dB")
	cmd.Flags().BoolVarP(&lowercase, "lowercase", "L", false, "Write lowercase tag keys")
	cmd.Flags().StringVarP(&outputFormat, "output", "O", "", "Report format: auto|tab|csv|human")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Also write a CSV report to this file")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress per-track stdout output")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Skip recording this run in the history database")

	return cmd
}

func runScan(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, args []string) error {
	log, err := ctx.logger()
	if err != nil {
		return err
	}

	mode, err := tags.ParseMode(cfg.Tags.Mode)
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
	var backendOpts []loudness.BackendOption
	if cfg.Scan.Album {
		backendOpts = append(backendOpts, loudness.WithSpooling())
	}
	backend, err := loudness.NewFFmpegBackend(cfg.FFmpeg.FFmpegBinary, backendOpts...)
	if err != nil {
		return err
	}

	if mode != tags.ModeSkip {
		lock, err := acquireRunLock()
		if err != nil {
			return err
		}
		defer func() { _ = lock.Unlock() }()
	}

	var writers []report.Writer
	if !cfg.Output.Quiet {
		w, err := stdoutWriter(cfg)
		if err != nil {
			return err
		}
		writers = append(writers, w)
	}

	var csvFile *os.File
	if cfg.Output.CSVPath != "" {
		csvFile, err = os.Create(cfg.Output.CSVPath)
		if err != nil {
			return fmt.Errorf("create csv file: %w", err)
		}
		defer func() { _ = csvFile.Close() }()
		writers = append(writers, report.NewCSVWriter(csvFile, cfg.Tags.Unit))
	}

	var (
		store *history.Store
		runID string
	)
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		scanMode := "track"
		if cfg.Scan.Album {
			scanMode = "album"
		}
		runID, err = store.BeginRun(cmd.Context(), scanMode, cfg.Scan.Pregain)
		if err != nil {
			return err
		}
		writers = append(writers, store.Recorder(runID))
	}

	pipeline := report.NewPipeline(writers...)

	var tagger library.Tagger
	if mode != tags.ModeSkip {
		tagger = tags.NewWriter(tags.Options{
			Mode:      mode,
			Album:     cfg.Scan.Album,
			Unit:      cfg.Tags.Unit,
			Lowercase: cfg.Tags.Lowercase,
		}, log)
	}

	runner := library.NewRunner(library.RunnerOptions{
		Scanner:         scan.NewScanner(opener, backend, log),
		Meters:          backend,
		Sink:            pipeline,
		Tagger:          tagger,
		Log:             log,
		Pregain:         cfg.Scan.Pregain,
		Album:           cfg.Scan.Album,
		PreventClipping: cfg.Scan.PreventClipping,
		MaxTruePeak:     cfg.Scan.MaxTruePeak,
		Threads:         cfg.Scan.Threads,
	})

	summary := runner.Run(cmd.Context(), files)

	if err := pipeline.Close(); err != nil {
		log.Error("report output failed", "error", err)
	}
	if store != nil {
		if err := store.FinishRun(cmd.Context(), runID,
			summary.Tracks, summary.TracksFailed,
			summary.Folders, summary.FoldersFailed); err != nil {
			log.Error("history update failed", "error", err)
		}
	}

	log.Info("scan complete",
		"tracks", summary.Tracks,
		"failed", summary.TracksFailed,
		"folders", summary.Folders,
		"folders_failed", summary.FoldersFailed,
	)

	if summary.Failed() {
		return fmt.Errorf("completed with failures: %d/%d tracks, %d/%d folders, %d tag writes",
			summary.TracksFailed, summary.Tracks,
			summary.FoldersFailed, summary.Folders,
			summary.TagsFailed)
	}
	return nil
}

// stdoutWriter picks the terminal report format. Auto renders a table on a
// TTY and tab-delimited lines when output is piped.
func stdoutWriter(cfg *config.Config) (report.Writer, error) {
	format := cfg.Output.Format
	if format == "auto" || format == "" {
		if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			format = "human-table"
		} else {
			format = "tab"
		}
	}
	switch format {
	case "tab":
		return report.NewTabWriter(os.Stdout, cfg.Tags.Unit), nil
	case "csv":
		return report.NewCSVWriter(os.Stdout, cfg.Tags.Unit), nil
	case "human":
		return report.NewHumanWriter(os.Stdout, cfg.Tags.Unit), nil
	case "human-table":
		return report.NewTableWriter(os.Stdout, cfg.Tags.Unit), nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}
