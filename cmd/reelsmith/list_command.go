package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active and recent workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			listing, err := api.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(listing.Active) == 0 && len(listing.Recent) == 0 {
				fmt.Fprintln(out, "no workflows")
				return nil
			}
			if len(listing.Active) > 0 {
				fmt.Fprintln(out, "Active:")
				fmt.Fprintln(out, renderWorkflowTable(listing.Active))
			}
			if len(listing.Recent) > 0 {
				fmt.Fprintln(out, "Recent:")
				fmt.Fprintln(out, renderWorkflowTable(listing.Recent))
			}
			return nil
		},
	}
}
