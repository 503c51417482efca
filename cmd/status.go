package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return listJobs(out, fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}
	jobID := args[0]
	return getJobStatus(out, fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

// jobSummary holds the job fields the listing prints.
type jobSummary struct {
	ID         string  `json:"id"`
	State      string  `json:"state"`
	Algorithm  string  `json:"algorithm"`
	Rows       int     `json:"rows"`
	Cols       int     `json:"cols"`
	StartValue float64 `json:"startValue"`
	BestValue  float64 `json:"bestValue"`
	Iterations int     `json:"iterations"`
	Config     struct {
		Algorithm string `json:"algorithm"`
		Generator string `json:"generator"`
		Seed      int64  `json:"seed"`
	} `json:"config"`
	BestLabel string  `json:"bestLabel"`
	Phase     string  `json:"phase"`
	Elapsed   float64 `json:"elapsed"`
	Error     string  `json:"error"`
}

func fetchJSON(url string, v interface{}) (int, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("server returned error: %s", string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func listJobs(out io.Writer, url string) error {
	var jobs []jobSummary
	if _, err := fetchJSON(url, &jobs); err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(out, jobs)
	}

	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs found")
		return nil
	}

	fmt.Fprintf(out, "Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Fprintf(out, "Job ID: %s\n", job.ID)
		fmt.Fprintf(out, "  State: %s\n", job.State)
		fmt.Fprintf(out, "  Algorithm: %s\n", job.Config.Algorithm)
		fmt.Fprintf(out, "  Grid: %dx%d\n", job.Rows, job.Cols)
		fmt.Fprintf(out, "  Value: %g -> %g after %d iterations\n", job.StartValue, job.BestValue, job.Iterations)
		fmt.Fprintln(out)
	}
	return nil
}

func getJobStatus(out io.Writer, url, jobID string) error {
	var status jobSummary
	code, err := fetchJSON(url, &status)
	if code == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(out, status)
	}

	fmt.Fprintf(out, "Job: %s\n", status.ID)
	fmt.Fprintf(out, "State: %s\n", status.State)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  Algorithm: %s\n", status.Algorithm)
	if status.Config.Generator != "" {
		fmt.Fprintf(out, "  Generator: %s\n", status.Config.Generator)
	}
	fmt.Fprintf(out, "  Grid: %dx%d\n", status.Rows, status.Cols)
	fmt.Fprintf(out, "  Seed: %d\n", status.Config.Seed)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Progress:")
	fmt.Fprintf(out, "  Iterations: %d\n", status.Iterations)
	if status.Phase != "" {
		fmt.Fprintf(out, "  Phase: %s\n", status.Phase)
	}
	fmt.Fprintf(out, "  Start Value: %g\n", status.StartValue)
	fmt.Fprintf(out, "  Best Value: %g at %s\n", status.BestValue, status.BestLabel)
	improvement := status.StartValue - status.BestValue
	if status.StartValue != 0 {
		fmt.Fprintf(out, "  Improvement: %g (%.1f%%)\n", improvement, improvement/status.StartValue*100)
	}
	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Fprintf(out, "  Elapsed: %s\n", elapsed.Round(time.Millisecond))

	if status.Error != "" {
		fmt.Fprintf(out, "\nError: %s\n", status.Error)
	}
	return nil
}
