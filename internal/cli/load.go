package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/thorsell/comments/internal/loader"
	"github.com/thorsell/comments/internal/view"
)

func newLoadCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "load [page.html]",
		Short: "Load comments into a page",
		Long: "Read an HTML page (a file, or stdin when omitted or \"-\"), fetch the comments fragment, " +
			"and write the page with the fragment in its comment section. " +
			"If loading fails the error is logged and the page is written unchanged.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, args, out)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write the page to this file instead of stdout")

	return cmd
}

func runLoad(cmd *cobra.Command, args []string, out string) error {
	cfg, logger, err := settings(cmd)
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening page: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		in = f
	}

	doc, err := view.Parse(in, cfg.MountID)
	if err != nil {
		return err
	}

	// The loader logs its own failure; the page is written either way.
	_ = <-loader.New(newFetcher(cfg), doc, cfg.Endpoint, logger).Load(commandContext(cmd))

	return writePage(cmd.OutOrStdout(), out, doc)
}

// writePage writes doc to path, or to w when path is empty.
func writePage(w io.Writer, path string, doc *view.Document) error {
	if path == "" {
		_, err := doc.WriteTo(w)
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	if _, err := doc.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	return nil
}
