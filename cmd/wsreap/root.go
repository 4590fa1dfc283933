package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "wsreap",
		Short: "Idle WorkSpaces lifecycle engine",
		Long: `wsreap - idle AWS WorkSpaces lifecycle engine

wsreap scans every WorkSpace in a region, warns users whose desktop has sat
idle close to the cutoff, and terminates desktops that are past it or were
never used after the grace period. Users and the admin are notified by
e-mail through SES.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`wsreap {{.Version}} - idle WorkSpaces lifecycle engine
`)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "YAML config file (defaults and environment apply without one)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "json", "Log format (json, console)")
	flags.String("region", "us-east-1", "AWS region")
	flags.Int("workers", 1, "Concurrent workspace evaluations")
}
