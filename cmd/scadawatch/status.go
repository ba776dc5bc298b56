package main

import (
	"fmt"
	"os"

	"github.com/scadawatch/scadawatch/internal/types"
	"github.com/spf13/cobra"
)

func newStatusCmd(flags *globalFlags, use, short string, status types.Status) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   use + " <alarm-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(flags, os.Stderr)
			if err != nil {
				return err
			}
			id := args[0]
			if _, err := env.client.UpdateStatus(cmd.Context(), id, status, message); err != nil {
				return err
			}
			env.logger.Info().Str("alarm_id", id).Str("status", string(status)).Msg("Alarm status updated")
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", id, status)
			return nil
		},
	}
	if status == types.StatusResolved {
		cmd.Flags().StringVarP(&message, "message", "m", "", "Resolution message")
	}
	return cmd
}
