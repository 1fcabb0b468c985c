package cmd

import (
	"github.com/spf13/cobra"

	"bilidigest/internal"
)

// videoCmd represents the video command
var videoCmd = &cobra.Command{
	Use:   "video [video URL or BV id]",
	Short: "Process a single video into a digest report",
	Example: `  # Process a specific video
  bilidigest video BV1xx411c7mD
  bilidigest video "https://www.bilibili.com/video/BV1xx411c7mD"

  # Use a custom prompt
  bilidigest video BV1xx411c7mD --prompt "tldr: {{.Content}}"

  # Reprocess even if already handled
  bilidigest video BV1xx411c7mD --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ValidateOpenAIRequirements(cmd, config); err != nil {
			return err
		}

		app, err := internal.NewApp(config)
		if err != nil {
			return err
		}
		if err := internal.HandlePromptFlag(cmd, app); err != nil {
			return err
		}

		bvid, err := internal.ParseArg(args[0])
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		return app.ProcessVideo(cmd.Context(), bvid, force)
	},
}

func init() {
	internal.AddProcessingFlags(videoCmd)
	internal.AddOpenAIFlags(videoCmd)
	rootCmd.AddCommand(videoCmd)
}
