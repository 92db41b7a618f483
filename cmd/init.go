/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tristendillon/diagify/core/config"
	"github.com/tristendillon/diagify/core/logger"
	"github.com/tristendillon/diagify/core/prompt"
)

var (
	force bool
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a default diagify.yaml",
	Long:  `Creates a commented diagify.yaml holding the default configuration.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("init called")
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		target := filepath.Join(dir, config.FileNames[0])

		if _, err := os.Stat(target); err == nil {
			if !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", target)
			}
			logger.Debug("%s already exists. Overwriting.", target)
		}

		engine := prompt.NewTemplateEngine()
		if err := engine.GenerateFile(prompt.TEMPLATES.CONFIG, target, config.Default()); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", target)

		fmt.Fprintf(cmd.OutOrStdout(), "Next Steps:\n")
		fmt.Fprintf(cmd.OutOrStdout(), "  - export %s=...\n", config.DefaultAPIKeyEnv(config.Default().Provider.Name))
		fmt.Fprintf(cmd.OutOrStdout(), "  - diagify \"a load balancer in front of three web servers\"\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&force, "force", false, "Force overwrite existing files")
}
