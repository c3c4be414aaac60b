package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <workflow-id>",
		Short: "Request cancellation of a running workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			cancelled, err := api.Cancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !cancelled {
				fmt.Fprintln(cmd.OutOrStdout(), "workflow is not running")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cancellation requested")
			return nil
		},
	}
}
