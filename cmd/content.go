package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bilidigest/internal"
)

// contentCmd represents the content command
var contentCmd = &cobra.Command{
	Use:   "content [video URL or BV id]",
	Short: "Show the raw content gathered for a video without summarizing",
	Long: `Assemble and print the content that would feed the summary: the subtitle
track when one exists, otherwise the description, a speech transcript or
mined timeline comments. Useful for checking what the summarizer would see.`,
	Example: `  # Show the content sources for a video
  bilidigest content BV1xx411c7mD`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := internal.NewApp(config)
		if err != nil {
			return err
		}

		bvid, err := internal.ParseArg(args[0])
		if err != nil {
			return err
		}

		content, err := app.GetContent(cmd.Context(), bvid)
		if err != nil {
			return err
		}

		fmt.Println(content)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(contentCmd)
}
