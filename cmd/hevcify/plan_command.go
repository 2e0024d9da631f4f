package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hevcify/internal/config"
	"hevcify/internal/encode"
	"hevcify/internal/media"
	"hevcify/internal/scan"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <file>",
		Short: "Show the ffmpeg command that would convert a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}

			prober := media.NewProber(cfg.Encoder.FFprobeBinary)
			info, err := prober.Probe(cmd.Context(), path)
			if err != nil {
				return err
			}

			selection, err := media.SelectTracks(info, media.Preferences{
				AudioLanguage:    cfg.Audio.Language,
				SubtitleLanguage: cfg.Subtitles.Language,
				EmbedSubtitles:   cfg.Subtitles.Embed,
			})
			if err != nil {
				return err
			}

			plan, err := encode.Build(path, scan.TempPath(path), info, selection, encode.SettingsFromConfig(cfg))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Source: %s\n", path)
			fmt.Fprintf(out, "Target: %s\n", scan.TargetPath(path))
			fmt.Fprintln(out, plan.CommandLine(cfg.Encoder.FFmpegBinary))
			return nil
		},
	}
	return cmd
}
