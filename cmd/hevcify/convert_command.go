package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"hevcify/internal/config"
	"hevcify/internal/encode"
	"hevcify/internal/logging"
	"hevcify/internal/queue"
	"hevcify/internal/scan"
	"hevcify/internal/workflow"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var (
		gpuFlag          string
		qualityFlag      int
		profileFlag      string
		audioCodecFlag   string
		audioQualityFlag string
		skipExistingFlag bool
		dryRunFlag       bool
		watchFlag        bool
	)

	cmd := &cobra.Command{
		Use:   "convert [path]",
		Short: "Scan the library and convert everything to H.265 MP4",
		Long: `Scan the library (or the given path), queue every candidate file, and
convert them one at a time. Originals are replaced only after the new file
verifies as HEVC; failures leave the source untouched.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.configCopy()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("gpu") {
				cfg.Encoder.GPU = gpuFlag
			}
			if flags.Changed("quality") {
				cfg.Encoder.Quality = qualityFlag
			}
			if flags.Changed("profile") {
				cfg.Encoder.Profile = profileFlag
			}
			if flags.Changed("audio-codec") {
				cfg.Audio.Codec = audioCodecFlag
			}
			if flags.Changed("audio-quality") {
				cfg.Audio.Quality = audioQualityFlag
			}
			if flags.Changed("skip-existing") {
				cfg.Scan.SkipExisting = skipExistingFlag
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			root := cfg.Paths.LibraryDir
			if len(args) == 1 {
				root, err = config.ExpandPath(args[0])
				if err != nil {
					return err
				}
			}

			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return err
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			scanOpts := scan.OptionsFromConfig(cfg)
			scanOpts.Logger = logger
			candidates, err := scan.Walk(root, scanOpts)
			if err != nil {
				return err
			}
			if len(candidates) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No candidate files found")
				return nil
			}

			opts := []workflow.Option{workflow.WithDryRun(dryRunFlag)}
			if events, ok := progressEvents(cmd.ErrOrStderr()); ok {
				opts = append(opts, workflow.WithEvents(events))
			}
			mgr := workflow.NewManager(cfg, store, logger, opts...)

			enqueued, err := mgr.Ingest(cmd.Context(), candidates)
			if err != nil {
				return err
			}
			logger.Info("batch run starting",
				logging.String(logging.FieldRunID, mgr.RunID()),
				logging.String("root", root),
				logging.Int("candidates", len(candidates)),
				logging.Int("queued", enqueued),
				logging.Bool("dry_run", dryRunFlag),
			)

			if watchFlag {
				return mgr.Watch(cmd.Context())
			}

			summary, err := mgr.RunBatch(cmd.Context())
			printSummary(cmd.OutOrStdout(), summary)
			return err
		},
	}

	cmd.Flags().StringVar(&gpuFlag, "gpu", "", "Encoder backend: nvidia, intel, amd, or cpu")
	cmd.Flags().IntVar(&qualityFlag, "quality", 0, "H.265 quality (0-51, lower is better)")
	cmd.Flags().StringVar(&profileFlag, "profile", "", "H.265 profile: main or main10")
	cmd.Flags().StringVar(&audioCodecFlag, "audio-codec", "", "Audio codec (aac, libopus, copy, ...)")
	cmd.Flags().StringVar(&audioQualityFlag, "audio-quality", "", "Audio VBR quality value")
	cmd.Flags().BoolVar(&skipExistingFlag, "skip-existing", true, "Skip files whose .mp4 target already exists")
	cmd.Flags().BoolVarP(&dryRunFlag, "dry-run", "n", false, "Log what would happen without converting anything")
	cmd.Flags().BoolVar(&watchFlag, "watch", false, "Keep running and pick up retried or newly queued items")

	return cmd
}

// progressEvents wires a terminal progress bar to workflow callbacks. On a
// non-TTY (cron, CI, piped output) the structured log is the progress
// report and no bar is drawn.
func progressEvents(w io.Writer) (workflow.Events, bool) {
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return workflow.Events{}, false
	}

	var bar *progressbar.ProgressBar
	return workflow.Events{
		FileStarted: func(item *queue.Item) {
			bar = progressbar.NewOptions(100,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription(truncatePath(filepath.Base(item.SourcePath), 40)),
				progressbar.OptionSetWidth(25),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		},
		FileProgress: func(_ *queue.Item, update encode.ProgressUpdate) {
			if bar != nil {
				_ = bar.Set(int(update.Percent))
			}
		},
		FileFinished: func(item *queue.Item) {
			if bar != nil {
				_ = bar.Finish()
				bar = nil
			}
			fmt.Fprintf(w, "%s: %s\n", item.Status, filepath.Base(item.SourcePath))
		},
	}, true
}

func printSummary(w io.Writer, summary queue.Summary) {
	rows := [][]string{
		{"Scanned", fmt.Sprintf("%d", summary.Scanned)},
		{"Converted", fmt.Sprintf("%d", summary.Converted)},
		{"Skipped", fmt.Sprintf("%d", summary.Skipped)},
		{"Failed", fmt.Sprintf("%d", summary.Failed)},
		{"Space saved", formatSavings(summary.BytesBefore, summary.BytesAfter)},
	}
	fmt.Fprintln(w, renderTable(
		[]tableColumn{{title: "Result"}, {title: "Value", right: true}},
		rows,
	))
}
