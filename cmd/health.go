package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// healthReport is the body served by GET /health.
type healthReport struct {
	Status   string                            `json:"status"`
	Version  string                            `json:"version"`
	Provider string                            `json:"provider"`
	Checks   map[string]map[string]interface{} `json:"checks"`
}

func (c *cli) newHealthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that a running server is healthy",
		Long: `Query the /health endpoint of a running syllabus server. The command
fails when the server cannot be reached or does not report healthy, so it
can back container health checks.

Examples:
  syllabus health                 # Check localhost:8080
  syllabus health -p 3000 -v      # Another port, print the full report`,
		Args: cobra.NoArgs,
		RunE: c.runHealth,
	}

	cmd.Flags().IntP("port", "p", 8080, "Port of the server")
	cmd.Flags().String("host", "localhost", "Host of the server")
	cmd.Flags().DurationP("timeout", "t", 3*time.Second, "Timeout for the request")
	cmd.Flags().BoolP("verbose", "v", false, "Print the full health report")
	AddFlagValidation(cmd, "port", ValidatePort)
	c.bind(cmd.Flags(), map[string]string{
		"port": "server.port",
		"host": "server.host",
	})
	return cmd
}

func (c *cli) runHealth(cmd *cobra.Command, _ []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	verbose, _ := cmd.Flags().GetBool("verbose")

	target := fmt.Sprintf("http://%s/health", cfg.Addr())
	report, err := fetchHealth(cmd.Context(), target, timeout)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if verbose {
		if err := outputJSON(out, report); err != nil {
			return err
		}
	}
	if report.Status != "healthy" {
		return fmt.Errorf("server at %s reports %q", cfg.Addr(), report.Status)
	}
	if !verbose {
		fmt.Fprintf(out, "✅ %s is healthy (version %s, provider %s)\n", cfg.Addr(), report.Version, report.Provider)
	}
	return nil
}

func fetchHealth(ctx context.Context, target string, timeout time.Duration) (*healthReport, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	var report healthReport
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&report); err != nil {
		return nil, fmt.Errorf("decoding health report: %w", err)
	}
	return &report, nil
}
