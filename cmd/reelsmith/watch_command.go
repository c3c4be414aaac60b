package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelsmith/internal/events"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [workflow-id]",
		Short: "Stream progress events, for one workflow or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			workflowID := ""
			if len(args) == 1 {
				workflowID = args[0]
			}
			return api.Watch(cmd.Context(), workflowID, func(evt events.Event) bool {
				fmt.Fprintln(cmd.OutOrStdout(), formatEvent(evt))
				if workflowID == "" {
					return true
				}
				switch evt.Kind {
				case events.KindWorkflowCompleted, events.KindWorkflowFailed, events.KindWorkflowCancelled:
					return false
				}
				return true
			})
		},
	}
}
