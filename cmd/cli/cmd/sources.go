package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List registered source adapters",
	Long:  `List the source adapters registered on the controller, with their base confidence, kill-switch state, and saved cursor for a job.`,
	Run: func(cmd *cobra.Command, args []string) {
		client := NewAPIClient(viper.GetString("url"), viper.GetString("token"))

		job, _ := cmd.Flags().GetString("job")

		sources, err := client.ListSources(job)
		if err != nil {
			cmd.Printf("Error fetching sources: %s\n", err)
			os.Exit(1)
		}

		if len(sources) == 0 {
			cmd.Println("No sources registered.")
			return
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "NAME\tCONFIDENCE\tENABLED\tCURSOR")
		for _, s := range sources {
			enabled := "yes"
			if !s.Enabled {
				enabled = "no"
			}
			cursor := s.Cursor
			if cursor == "" {
				cursor = "-"
			} else if len(cursor) > 40 {
				// Truncate long cursors for the table view
				cursor = cursor[:37] + "..."
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.Name, s.Confidence, enabled, cursor)
		}
		w.Flush()
	},
}

func init() {
	sourcesCmd.Flags().String("job", "ingest", "Job name whose cursors to show")

	rootCmd.AddCommand(sourcesCmd)
}
