package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"seqpoll/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var run string
	var limit int
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded lifecycle passes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			j, err := journal.Open(cmd.Context(), cfg.Paths.JournalPath)
			if err != nil {
				return err
			}
			defer j.Close()

			filter := journal.Filter{Run: run, Limit: limit}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}
			entries, err := j.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No passes recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(historyColumns, historyRows(entries)))
			return nil
		},
	}
	cmd.Flags().StringVar(&run, "run", "", "Only show passes for this run name")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of passes to show (0 for all)")
	cmd.Flags().DurationVar(&since, "since", 0, "Only show passes newer than this (e.g. 24h)")
	return cmd
}

func historyRows(entries []journal.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		detail := entry.Reason
		if entry.Error != "" {
			detail = entry.Error
		}
		rows = append(rows, []string{
			entry.StartedAt.Local().Format("2006-01-02 15:04:05"),
			entry.Run,
			entry.Mode,
			entry.Disposition,
			strings.Join(entry.Writes, " "),
			entry.Duration.Round(time.Second).String(),
			detail,
		})
	}
	return rows
}
