package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelsmith/internal/api"
	"reelsmith/internal/events"
	"reelsmith/internal/registry"
)

func newTriggerCommand(ctx *commandContext) *cobra.Command {
	var (
		workflowType string
		platforms    []string
		style        string
		tone         string
		follow       bool
	)

	cmd := &cobra.Command{
		Use:   "trigger <topic>",
		Short: "Start a content generation workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := registry.ParseWorkflowType(workflowType); !ok {
				return fmt.Errorf("unknown workflow type %q", workflowType)
			}
			daemonAPI, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			id, err := daemonAPI.Trigger(cmd.Context(), triggerRequest(args[0], workflowType, platforms, style, tone))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			if !follow {
				return nil
			}
			return daemonAPI.Watch(cmd.Context(), id, func(evt events.Event) bool {
				fmt.Fprintln(cmd.OutOrStdout(), formatEvent(evt))
				switch evt.Kind {
				case events.KindWorkflowCompleted, events.KindWorkflowFailed, events.KindWorkflowCancelled:
					return false
				}
				return true
			})
		},
	}

	cmd.Flags().StringVarP(&workflowType, "type", "t", string(registry.FullPipeline), "Workflow type to run")
	cmd.Flags().StringSliceVarP(&platforms, "platform", "p", nil, "Target platform (repeatable)")
	cmd.Flags().StringVar(&style, "style", "", "Visual style hint")
	cmd.Flags().StringVar(&tone, "tone", "", "Narration tone hint")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream progress events until the workflow finishes")

	return cmd
}

func triggerRequest(topic, workflowType string, platforms []string, style, tone string) api.TriggerRequest {
	return api.TriggerRequest{
		Topic:        topic,
		WorkflowType: workflowType,
		Platforms:    platforms,
		Style:        style,
		Tone:         tone,
	}
}
