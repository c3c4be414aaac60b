package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [workflow-id]",
		Short: "Show daemon status or one workflow's phases",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				status, err := api.Status(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Running:          %t\n", status.Running)
				fmt.Fprintf(out, "PID:              %d\n", status.PID)
				fmt.Fprintf(out, "Active workflows: %d\n", status.ActiveWorkflows)
				fmt.Fprintf(out, "Crashes:          %d\n", status.Crashes)
				fmt.Fprintf(out, "Workflow types:   %s\n", strings.Join(status.WorkflowTypes, ", "))
				if status.HistoryDBPath != "" {
					fmt.Fprintf(out, "History DB:       %s\n", status.HistoryDBPath)
				}
				fmt.Fprintf(out, "Lock file:        %s\n", status.LockFilePath)
				return nil
			}

			snapshot, err := api.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s  %s  %s\n", snapshot.ID, displayName(string(snapshot.Type)), statusLabel(snapshot.Status))
			fmt.Fprintf(out, "Topic: %s\n", snapshot.Topic)
			fmt.Fprintf(out, "Cost:  %s\n", formatCost(snapshot.CostUSD))
			fmt.Fprintln(out, renderPhaseTable(snapshot))
			for _, failure := range snapshot.Result.Errors {
				fmt.Fprintf(out, "error: %s\n", failure)
			}
			for _, warning := range snapshot.Result.Artifacts.Warnings {
				fmt.Fprintf(out, "warning: %s\n", warning)
			}
			return nil
		},
	}
}
