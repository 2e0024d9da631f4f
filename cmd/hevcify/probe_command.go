package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hevcify/internal/config"
	"hevcify/internal/media"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Inspect a media file's streams",
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

			selection, selErr := media.SelectTracks(info, media.Preferences{
				AudioLanguage:    cfg.Audio.Language,
				SubtitleLanguage: cfg.Subtitles.Language,
				EmbedSubtitles:   cfg.Subtitles.Embed,
			})
			selected := map[int]struct{}{}
			if selErr == nil {
				for _, stream := range []*media.Stream{selection.Video, selection.Audio, selection.Subtitle} {
					if stream != nil {
						selected[stream.Index] = struct{}{}
					}
				}
			}

			rows := make([][]string, 0, len(info.Streams))
			for _, stream := range info.Streams {
				detail := ""
				switch stream.CodecType {
				case media.CodecTypeVideo:
					detail = fmt.Sprintf("%dx%d", stream.Width, stream.Height)
				case media.CodecTypeAudio:
					detail = fmt.Sprintf("%dch", stream.Channels)
				}
				_, isSelected := selected[stream.Index]
				rows = append(rows, []string{
					fmt.Sprintf("%d", stream.Index),
					stream.CodecType,
					stream.CodecName,
					stream.Language(),
					detail,
					yesNo(isSelected),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]tableColumn{
					{title: "Index", right: true},
					{title: "Type"},
					{title: "Codec"},
					{title: "Lang"},
					{title: "Detail"},
					{title: "Selected"},
				},
				rows,
			))
			fmt.Fprintf(out, "Duration: %.1fs  HEVC video: %s\n", info.DurationSeconds(), yesNo(info.HasHEVCVideo()))
			return nil
		},
	}
	return cmd
}
