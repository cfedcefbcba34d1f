package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dithap/dithap-explorer/internal/genes"
	"github.com/dithap/dithap-explorer/internal/output"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [gene...]",
		Short: "Resolve gene names and systematic IDs",
		Long: `Resolve gene references to systematic IDs. Arguments may contain
comma separated lists; with no arguments the list is read from stdin.`,
		Example: `  dithap resolve dld1 SPAC3G9.12
  dithap resolve < genes.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, "\n")
			if len(args) == 0 {
				b, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(b)
			}
			return runResolve(cmd.OutOrStdout(), text)
		},
	}
}

func runResolve(w io.Writer, text string) error {
	tbl, err := loadDataset().Genes()
	if err != nil {
		return err
	}
	res := tbl.Resolve(genes.SplitTokens(text))

	if format == "json" {
		return output.WriteJSON(w, res)
	}
	fmt.Fprintln(os.Stderr, res.Summary())
	for _, id := range res.Resolved {
		fmt.Fprintf(w, "%s\t%s\n", id, tbl.Name(id))
	}
	return nil
}
