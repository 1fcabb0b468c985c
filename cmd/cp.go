package cmd

import (
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"bilidigest/internal"
)

// cpCmd copies a report or assembled content to the system clipboard
// instead of printing to stdout.
var cpCmd = &cobra.Command{
	Use:   "cp [video URL or BV id]",
	Short: "Copy the latest report, or a video's content, to the clipboard",
	Example: `  # Copy the most recently generated report
  bilidigest cp

  # Copy the subtitle (or fallback content) of a video
  bilidigest cp BV1xx411c7mD
  bilidigest cp "https://www.bilibili.com/video/BV1xx411c7mD"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := internal.NewApp(config)
		if err != nil {
			return err
		}

		var content string
		if len(args) == 0 {
			entries := app.Entries()
			if len(entries) == 0 {
				return fmt.Errorf("no reports generated yet")
			}
			report, err := os.ReadFile(entries[0].ReportPath)
			if err != nil {
				return fmt.Errorf("reading report %s: %w", entries[0].ReportPath, err)
			}
			content = string(report)
		} else {
			bvid, err := internal.ParseArg(args[0])
			if err != nil {
				return err
			}
			content, err = app.GetContent(cmd.Context(), bvid)
			if err != nil {
				return err
			}
		}

		if err := clipboard.WriteAll(content); err != nil {
			return fmt.Errorf("copying to clipboard: %w", err)
		}

		if !config.Quiet {
			fmt.Println("Copied to clipboard")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(cpCmd)
}
