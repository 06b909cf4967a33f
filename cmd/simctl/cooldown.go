package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var cooldownCmd = &cobra.Command{
	Use:   "cooldown",
	Short: "Check or arm action cooldowns",
}

var cooldownCheckCmd = &cobra.Command{
	Use:   "check <actor> <scope> <action>",
	Short: "Print seconds remaining (0 = ready)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		secs, err := eng.CheckCooldown(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), secs)
		return nil
	},
}

var cooldownSetCmd = &cobra.Command{
	Use:   "set <actor> <scope> <action> <seconds>",
	Short: "Arm a cooldown",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		secs, err := strconv.Atoi(args[3])
		if err != nil || secs <= 0 {
			return fmt.Errorf("seconds must be a positive integer, got %q", args[3])
		}
		if err := eng.SetCooldown(cmd.Context(), args[0], args[1], args[2], secs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cooldown %s/%s for %s set to %ds\n", args[1], args[2], args[0], secs)
		return nil
	},
}

func init() {
	cooldownCmd.AddCommand(cooldownCheckCmd)
	cooldownCmd.AddCommand(cooldownSetCmd)
}
