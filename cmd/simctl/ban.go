package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var banCmd = &cobra.Command{
	Use:   "ban",
	Short: "Manage actor bans",
}

var banSetCmd = &cobra.Command{
	Use:   "set <actor> <duration>",
	Short: "Ban an actor for a duration such as 2h or 30m",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := time.ParseDuration(args[1])
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid duration %q", args[1])
		}
		until := time.Now().Add(d)
		if err := eng.Bans().Set(cmd.Context(), args[0], until); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Banned %s until %s\n", args[0], until.Format(time.RFC3339))
		return nil
	},
}

var banGetCmd = &cobra.Command{
	Use:   "get <actor>",
	Short: "Show an actor's ban",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		left, err := eng.Bans().Remaining(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if left == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is not banned\n", args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is banned for %s\n", args[0], left.Round(time.Second))
		return nil
	},
}

var banClearCmd = &cobra.Command{
	Use:   "clear <actor>",
	Short: "Lift a ban",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := eng.Bans().Clear(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared ban on %s\n", args[0])
		return nil
	},
}

func init() {
	banCmd.AddCommand(banSetCmd)
	banCmd.AddCommand(banGetCmd)
	banCmd.AddCommand(banClearCmd)
}
