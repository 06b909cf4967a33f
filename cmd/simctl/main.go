package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go-sim-core/internal/config"
	"go-sim-core/internal/engine"
)

var (
	configFile string
	dataRoot   string
	verbose    bool

	eng *engine.Engine
)

var rootCmd = &cobra.Command{
	Use:           "simctl",
	Short:         "Inspect and edit simulation state: documents, cooldowns and bans",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFile(configFile)
		if err != nil {
			return err
		}
		if dataRoot != "" {
			cfg.DataRoot = dataRoot
		}
		logger := log.New(io.Discard, "", 0)
		if verbose {
			logger = log.New(cmd.ErrOrStderr(), "simctl ", log.LstdFlags)
		}
		if eng != nil {
			// a previous command failed before its post-run hook
			_ = eng.Close()
		}
		eng, err = engine.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("open engine: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if eng == nil {
			return nil
		}
		err := eng.Close()
		eng = nil
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.Getenv("SIM_CONFIG_FILE"), "TOML config file")
	rootCmd.PersistentFlags().StringVar(&dataRoot, "data", "", "data root (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log engine diagnostics to stderr")

	rootCmd.AddCommand(cooldownCmd)
	rootCmd.AddCommand(docCmd)
	rootCmd.AddCommand(banCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
