package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thorsell/comments/internal/web"
)

func newServeCmd() *cobra.Command {
	var (
		dir  string
		addr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve pages with comments loaded",
		Long:  "Serve a directory of pages over HTTP. Every HTML page gets the comments fragment loaded into its comment section on each request.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, dir, addr)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "directory of pages to serve")
	cmd.Flags().StringVar(&addr, "addr", ":3000", "address to listen on")

	return cmd
}

func runServe(cmd *cobra.Command, dir, addr string) error {
	cfg, logger, err := settings(cmd)
	if err != nil {
		return err
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("checking page directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	srv := web.NewServer(os.DirFS(dir), web.Options{
		Fetcher:  newFetcher(cfg),
		Endpoint: cfg.Endpoint,
		MountID:  cfg.MountID,
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx, addr)
}
