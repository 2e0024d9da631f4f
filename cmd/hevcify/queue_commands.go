package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"hevcify/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the conversion queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show item counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}

				var rows [][]string
				for _, status := range queue.AllStatuses() {
					if count, ok := stats[status]; ok && count > 0 {
						rows = append(rows, []string{string(status), strconv.Itoa(count)})
					}
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]tableColumn{{title: "Status"}, {title: "Count", right: true}},
					rows,
				))
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []queue.Status
			for _, raw := range listStatuses {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(store *queue.Store) error {
				items, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					detail := item.Reason
					if item.Status == queue.StatusConverting {
						detail = formatPercent(item.ProgressPercent)
					}
					if item.Status == queue.StatusCompleted {
						detail = formatSavings(item.SizeBefore, item.SizeAfter)
					}
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.SourcePath,
						string(item.Status),
						item.UpdatedAt.Local().Format(time.DateTime),
						detail,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]tableColumn{
						{title: "ID", right: true},
						{title: "File", maxWidth: 60},
						{title: "Status"},
						{title: "Updated"},
						{title: "Detail"},
					},
					rows,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	var retryAll bool

	cmd := &cobra.Command{
		Use:   "retry [id]",
		Short: "Requeue failed items for the next run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if len(args) == 1 {
				parsed, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil || parsed <= 0 {
					return fmt.Errorf("invalid item id %q", args[0])
				}
				id = parsed
			} else if !retryAll {
				return fmt.Errorf("provide an item id or --all")
			}

			return ctx.withStore(func(store *queue.Store) error {
				n, err := store.RetryFailed(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d item(s)\n", n)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&retryAll, "all", false, "Retry every failed item")
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var (
		clearCompleted bool
		clearFailed    bool
		clearAll       bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove items from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []queue.Status
			switch {
			case clearAll:
			case clearCompleted || clearFailed:
				if clearCompleted {
					statuses = append(statuses, queue.StatusCompleted, queue.StatusSkipped)
				}
				if clearFailed {
					statuses = append(statuses, queue.StatusFailed)
				}
			default:
				return fmt.Errorf("specify --completed, --failed, or --all")
			}

			return ctx.withStore(func(store *queue.Store) error {
				n, err := store.Clear(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d item(s)\n", n)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove completed and skipped items")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove failed items")
	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove everything, including pending items")
	return cmd
}
