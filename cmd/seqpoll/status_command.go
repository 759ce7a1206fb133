package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"seqpoll/internal/config"
	"seqpoll/internal/logging"
	"seqpoll/internal/runid"
	"seqpoll/internal/runstatus"
	"seqpoll/internal/workspace"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <run-dir>",
		Short: "Show Flowcelltool state for one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runPath, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve run directory: %w", err)
			}
			id, err := runid.Parse(runPath)
			if err != nil {
				return err
			}
			client, err := storeClient(cfg, logging.NewNop())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			reqCtx := cmd.Context()
			for _, line := range renderSectionHeader(id.Name, colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Flow cell", statusInfo, id.VendorID, colorize))
			fmt.Fprintln(out, renderStatusLine("Workspace", statusInfo, workspace.New(cfg.Paths.WorkspaceRoot, id).Dir, colorize))

			for _, category := range []runstatus.Category{runstatus.CategorySequencing, runstatus.CategoryConversion} {
				status, err := client.GetStatus(reqCtx, runPath, category)
				if err != nil {
					return fmt.Errorf("%s status: %w", category, err)
				}
				fmt.Fprintln(out, renderStatusLine(titleCaser.String(string(category)), statusKindFor(status), statusLabel(status), colorize))
			}

			delivery, err := client.GetDeliveryType(reqCtx, runPath)
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("Delivery", statusError, err.Error(), colorize))
				return nil
			}
			fmt.Fprintln(out, renderStatusLine("Delivery", statusInfo, delivery.String(), colorize))
			if delivery.BCL {
				lanes, err := client.GetLaneCount(reqCtx, runPath)
				if err != nil {
					fmt.Fprintln(out, renderStatusLine("Lanes", statusError, err.Error(), colorize))
					return nil
				}
				fmt.Fprintln(out, renderStatusLine("Lanes", statusInfo, strconv.Itoa(lanes), colorize))
			}
			return nil
		},
	}
}
