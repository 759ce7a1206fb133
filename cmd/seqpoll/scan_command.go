package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"seqpoll/internal/config"
	"seqpoll/internal/runid"
	"seqpoll/internal/scanner"
	"seqpoll/internal/workspace"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var maxDepth int

	cmd := &cobra.Command{
		Use:   "scan [search-root...]",
		Short: "List run directories without contacting Flowcelltool",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			roots := cfg.Paths.SearchRoots
			if len(args) > 0 {
				roots = nil
				for _, arg := range args {
					expanded, err := config.ExpandPath(arg)
					if err != nil {
						return fmt.Errorf("resolve search root %q: %w", arg, err)
					}
					roots = append(roots, expanded)
				}
			}
			depth := cfg.Scan.MaxDepth
			if cmd.Flags().Changed("max-depth") {
				depth = maxDepth
			}
			opts := scanner.Options{Roots: roots, MaxDepth: depth, MarkerFile: cfg.Scan.MarkerFile}
			if err := opts.Validate(); err != nil {
				return err
			}
			errOut := cmd.ErrOrStderr()
			opts.OnError = func(path string, err error) {
				fmt.Fprintf(errOut, "skipping %s: %v\n", path, err)
			}

			minYear := cfg.EffectiveMinYear(time.Now())
			var rows [][]string
			for path := range scanner.Walk(cmd.Context(), opts) {
				rows = append(rows, scanRow(path, cfg.Paths.WorkspaceRoot, minYear))
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No run directories found")
				return nil
			}
			fmt.Fprintln(out, renderTable(scanColumns, rows))
			return nil
		},
	}
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Maximum directory depth below each search root")
	return cmd
}

func scanRow(path, workspaceRoot string, minYear int) []string {
	id, err := runid.Parse(path)
	if err != nil {
		reason := "malformed name"
		if !errors.Is(err, runid.ErrMalformedRunName) {
			reason = err.Error()
		}
		return []string{path, "", "", "", "no (" + reason + ")", ""}
	}
	eligible := yesNo(id.Year >= minYear)
	if id.Year < minYear {
		eligible += fmt.Sprintf(" (before %d)", minYear)
	}
	return []string{
		id.Name,
		strconv.Itoa(id.Year),
		id.Instrument,
		id.VendorID,
		eligible,
		workspace.New(workspaceRoot, id).Dir,
	}
}
