package cmd

import (
	"github.com/spf13/cobra"

	"bilidigest/internal"
)

// videosCmd represents the videos command
var videosCmd = &cobra.Command{
	Use:   "videos",
	Short: "List the configured uploader's recent videos",
	Example: `  # List the 10 most recent uploads (✓ marks processed ones)
  bilidigest videos

  # List more
  bilidigest videos --count 30`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ValidateUploaderConfigured(config); err != nil {
			return err
		}

		app, err := internal.NewApp(config)
		if err != nil {
			return err
		}

		count, _ := cmd.Flags().GetInt("count")
		return app.ListVideos(cmd.Context(), count)
	},
}

func init() {
	videosCmd.Flags().IntP("count", "n", 10, "How many recent videos to list")
	rootCmd.AddCommand(videosCmd)
}
