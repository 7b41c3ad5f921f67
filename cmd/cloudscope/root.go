package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cloudscope/cloudscope/config"
	"github.com/cloudscope/cloudscope/telemetry"
)

var (
	version = "0.1.0"

	cfgPath string
	debug   bool

	rootCmd = &cobra.Command{
		Use:   "cloudscope",
		Short: "Multi-account AWS inventory dashboard",
		Long: `CloudScope - AWS Inventory Dashboard

CloudScope keeps an inventory of what actually runs in your AWS
accounts: compute, data stores, networking, messaging, CDN and API
surfaces, collected per credential profile.

Store as many profiles as you need, switch the active one, and read
the inventory over the REST API or straight from the terminal.`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// init sets up the root command
func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.SetVersionTemplate(`CloudScope {{.Version}} - AWS Inventory Dashboard
`)
}

// loadConfig loads the file named by --config, or the defaults.
func loadConfig() (*config.Config, error) {
	if cfgPath == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(cfgPath)
}

// cliLogger writes human-readable log lines to stderr, keeping stdout
// free for command output.
func cliLogger() *telemetry.Logger {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().
		Timestamp().
		Logger()
	return &telemetry.Logger{Logger: logger}
}
