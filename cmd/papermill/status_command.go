package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"papermill/internal/apiclient"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ctx.client().Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStatus(status, isTerminal()))
			return nil
		},
	}
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe daemon liveness",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.client().Health(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "daemon is healthy")
			return nil
		},
	}
}

func renderStatus(status *apiclient.Status, fancy bool) string {
	inFlight := status.InFlight
	if inFlight == "" {
		inFlight = "-"
	}
	state := "idle"
	if status.Busy {
		state = "converting"
	}

	if !fancy {
		return fmt.Sprintf("state=%s depth=%d in_flight=%s processed=%d",
			state, status.QueueDepth, inFlight, status.Processed)
	}

	return renderTable(
		[]string{"State", "Depth", "In Flight", "Processed"},
		[][]string{{
			state,
			strconv.Itoa(status.QueueDepth),
			inFlight,
			strconv.FormatInt(status.Processed, 10),
		}},
		1, 3,
	)
}

func isTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
