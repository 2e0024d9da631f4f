package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hevcify/internal/config"
	"hevcify/internal/scan"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "List conversion candidates without converting",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
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

			convert := 0
			rows := make([][]string, 0, len(candidates))
			for _, candidate := range candidates {
				action := string(candidate.Decision)
				if candidate.Decision == scan.DecisionConvert {
					action = "convert"
					convert++
				}
				rows = append(rows, []string{
					candidate.SourcePath,
					formatSize(candidate.SizeBytes),
					action,
					candidate.Reason,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]tableColumn{
					{title: "File", maxWidth: 70},
					{title: "Size", right: true},
					{title: "Action"},
					{title: "Reason"},
				},
				rows,
			))
			fmt.Fprintf(out, "%d file(s), %d to convert\n", len(candidates), convert)
			return nil
		},
	}
	return cmd
}
