/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tristendillon/diagify/core/logger"
)

var rootCmd = &cobra.Command{
	Use:   "diagify <description>",
	Short: "Turn a plain-language description into an architecture diagram.",
	Long: `Diagify asks a language model to write code for the Python diagrams library,
checks every import against the installed library, requests a correction
for imports that do not exist, runs the code and delivers the rendered image.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.SetVerbose(verbose)
		if logfile != "" {
			closer, err := logger.SetLogFile(logfile)
			if err != nil {
				return err
			}
			closeLog = closer
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("diagify called")
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		app, err := newApp(cmd.Context(), cfg, output, 0)
		if err != nil {
			return err
		}
		defer app.Close()

		res, err := app.pipeline.Run(cmd.Context(), args[0], output)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.ArtifactPath)
		return nil
	},
}

var (
	logfile    string
	verbose    bool
	configPath string
	output     string
	closeLog   func() error
)

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Error("%v", err)
	}
	logger.Sync()
	if closeLog != nil {
		_ = closeLog()
	}
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logfile, "logfile", "", "File to write logs to")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: diagify.yaml, diagify.yml or diagify.toml in the working directory)")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "Destination for the image: a file path, a directory or s3://bucket/key")
}
