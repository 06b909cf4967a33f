package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [scope]",
	Short: "Stream action events (requires redis)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bus := eng.Bus()
		if bus == nil {
			return errors.New("watch needs SIM_REDIS_ADDR")
		}
		scope := "*"
		if len(args) == 1 {
			scope = args[0]
		}
		events, err := bus.SubscribePattern(cmd.Context(), eng.TopicPrefix()+scope)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		for ev := range events {
			if err := enc.Encode(ev); err != nil {
				return fmt.Errorf("write event: %w", err)
			}
		}
		return nil
	},
}
