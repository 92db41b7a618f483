package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tristendillon/diagify/core/logger"
	"github.com/tristendillon/diagify/core/watcher"
)

var watchOutput string

var watchCmd = &cobra.Command{
	Use:   "watch <description-file>",
	Short: "Regenerate the diagram whenever the description file changes",
	Long: `Watches a text file holding the description and reruns the full pipeline
each time it is saved with new content. Requests to the model are throttled by
watch.requests_per_minute.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("watch called")
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		app, err := newApp(cmd.Context(), cfg, watchOutput, cfg.Watch.RequestsPerMinute)
		if err != nil {
			return err
		}
		defer app.Close()

		debounce := time.Duration(cfg.Watch.DebounceMillis) * time.Millisecond
		dw, err := watcher.NewDescriptionWatcher(args[0], debounce, func(ctx context.Context, description string) error {
			res, err := app.pipeline.Run(ctx, description, watchOutput)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.ArtifactPath)
			return nil
		})
		if err != nil {
			return err
		}

		logger.Info("Watching %s (Ctrl+C to stop)", dw.Path)
		return dw.Watch(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "", "Destination for the image: a file path, a directory or s3://bucket/key")
}
