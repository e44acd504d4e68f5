package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"
	"time"

	"marketcap/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Trigger a synchronous ingestion run",
	Long: `Trigger an ingestion run on the controller and wait for its report.

The controller holds the connection open until the run finishes, so this
command can take up to the run's max runtime.

Example:
  capctl run
  capctl run --sources seap,eufunds --max-items 200
  capctl run --dry-run`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		job, _ := flags.GetString("job")
		sources, _ := flags.GetStringSlice("sources")
		maxItems, _ := flags.GetInt("max-items")
		maxRuntime, _ := flags.GetInt("max-runtime")
		dryRun, _ := flags.GetBool("dry-run")

		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("Internal token not found. Please set it using the --token flag or the MARKETCAP_TOKEN environment variable")
			return
		}

		body := api.TriggerRunRequest{
			JobName:           job,
			Sources:           sources,
			MaxItems:          maxItems,
			MaxRuntimeSeconds: maxRuntime,
			DryRun:            dryRun,
		}

		bodyBytes, err := json.Marshal(body)
		if err != nil {
			cmd.Printf("Failed to marshal request: %v\n", err)
			return
		}

		endpoint := fmt.Sprintf("%s/runs", url)
		req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
		if err != nil {
			cmd.Printf("Failed to create request: %v\n", err)
			return
		}

		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
		req.Header.Add("Content-Type", "application/json")

		// The controller blocks until the run finishes.
		client := &http.Client{Timeout: 15 * time.Minute}
		resp, err := client.Do(req)
		if err != nil {
			cmd.Printf("Request failed: %v\n", err)
			return
		}
		defer resp.Body.Close()

		respBytes, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusConflict {
			cmd.Println("A run for this job is already in progress.")
			return
		}
		if resp.StatusCode != http.StatusOK {
			cmd.Printf("Error (%d): %s\n", resp.StatusCode, string(respBytes))
			return
		}

		var result api.RunResponse
		if err := json.Unmarshal(respBytes, &result); err != nil {
			cmd.Println("Run completed (failed to parse response)")
			return
		}

		printRunReport(cmd, result)
	},
}

func printRunReport(cmd *cobra.Command, run api.RunResponse) {
	icon := statusIcon(run.Status)
	cmd.Printf("%s %sRun %s%s\n", icon, colorBold, colorizeStatus(run.Status), colorReset)
	if run.RunID != "" {
		cmd.Printf("%sID:%s       %s\n", colorDim, colorReset, run.RunID)
	}
	if run.DryRun {
		cmd.Printf("%sMode:%s     dry run (nothing persisted)\n", colorDim, colorReset)
	}
	cmd.Printf("%sDuration:%s %s\n", colorDim, colorReset, formatDuration(run.FinishedAt.Sub(run.StartedAt)))
	cmd.Println()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tSEEN\tCREATED\tUPDATED\tINVALID\tERRORS")
	for name, s := range run.Sources {
		if s.Skipped {
			fmt.Fprintf(w, "%s\t(skipped)\t\t\t\t\n", name)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n", name, s.Seen, s.Created, s.Updated, s.Invalid, s.Errors)
	}
	w.Flush()
}

func init() {
	flags := runCmd.Flags()
	flags.String("job", "ingest", "Job name for the run")
	flags.StringSliceP("sources", "s", []string{}, "Limit the run to the named sources (default: all)")
	flags.Int("max-items", 0, "Maximum items to process (0 uses the controller default)")
	flags.Int("max-runtime", 0, "Maximum runtime in seconds (0 uses the controller default)")
	flags.Bool("dry-run", false, "Discover and verify without persisting anything")

	rootCmd.AddCommand(runCmd)
}
