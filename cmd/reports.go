package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bilidigest/internal"
)

// reportsCmd represents the reports command
var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List generated reports, newest first",
	Example: `  # List all generated reports
  bilidigest reports`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := internal.NewApp(config)
		if err != nil {
			return err
		}

		entries := app.Entries()
		if len(entries) == 0 {
			fmt.Println("No reports generated yet")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %s  [%s]  %s\n", e.ProcessedAt.Format("2006-01-02 15:04"), e.BVID, e.Scenario, e.ReportPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportsCmd)
}
