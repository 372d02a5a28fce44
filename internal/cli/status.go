package cli

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/thorsell/comments/internal/client"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the comments endpoint",
		Long:  "Prints the effective settings and makes one request to the comments endpoint to check that it answers.",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, _, err := settings(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	target, err := client.ResolveEndpoint(cfg.BaseURL, cfg.Endpoint)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Endpoint: %s\n", target)
	_, _ = fmt.Fprintf(out, "Mount:    #%s\n", cfg.MountID)

	httpClient := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(commandContext(cmd), http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		_, _ = fmt.Fprintf(out, "Status:   ✗ cannot reach endpoint (%v)\n", err)
		return nil
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	n, _ := io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode < 300:
		_, _ = fmt.Fprintf(out, "Status:   ✓ %s (%d bytes)\n", resp.Status, n)
	case cfg.StrictStatus:
		_, _ = fmt.Fprintf(out, "Status:   ✗ %s (pages keep their placeholder)\n", resp.Status)
	default:
		_, _ = fmt.Fprintf(out, "Status:   ✗ %s (the error body would be rendered as comments)\n", resp.Status)
	}
	return nil
}
