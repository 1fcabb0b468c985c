package cmd

import (
	"github.com/spf13/cobra"

	"bilidigest/internal"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll for new report videos and process them as they appear",
	Long: `Poll the configured uploader's feed on an interval. Whenever a new video
matching the report keyword is published on the current day, it is processed
once and recorded in the index. Runs until interrupted.`,
	Example: `  # Watch with the configured interval (default 10m)
  bilidigest watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ValidateOpenAIRequirements(cmd, config); err != nil {
			return err
		}
		if err := internal.ValidateUploaderConfigured(config); err != nil {
			return err
		}

		app, err := internal.NewApp(config)
		if err != nil {
			return err
		}
		if err := internal.HandlePromptFlag(cmd, app); err != nil {
			return err
		}

		return app.Watch(cmd.Context())
	},
}

func init() {
	internal.AddOpenAIFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}
