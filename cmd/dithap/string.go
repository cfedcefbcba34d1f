package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dithap/dithap-explorer/internal/genesets"
	"github.com/dithap/dithap-explorer/internal/output"
	"github.com/dithap/dithap-explorer/internal/stringdb"
)

// stringTimeout bounds a single STRING enrichment from the CLI.
const stringTimeout = 5 * time.Minute

func newStringCmd() *cobra.Command {
	var query, background geneFlags
	cmd := &cobra.Command{
		Use:   "string",
		Short: "Run STRING functional enrichment of a query gene list",
		Example: `  dithap string --query-set "3 (120)"
  dithap string --query "cdc2,wee1" --background-set "Coding genes in DIT_HAP"`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runString(cmd.Context(), cmd.OutOrStdout(), &query, &background)
		},
	}
	query.register(cmd, "query", "")
	background.register(cmd, "background", genesets.LabelAllCoding)
	return cmd
}

func runString(ctx context.Context, w io.Writer, query, background *geneFlags) error {
	d := loadDataset()
	tbl, err := d.Genes()
	if err != nil {
		return err
	}
	q, err := query.resolve(d, tbl)
	if err != nil {
		return err
	}
	bg, err := background.resolve(d, tbl)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, stringTimeout)
	defer cancel()

	terms, err := newStringClient().Enrich(ctx, q, bg)
	var ue *stringdb.UpstreamError
	if errors.As(err, &ue) {
		// An unreachable service yields an empty result.
		logger.Warn("STRING enrichment unavailable", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		terms, err = nil, nil
	}
	if err != nil {
		return err
	}

	groups := stringdb.GroupByCategory(terms)
	if format == "json" {
		if groups == nil {
			groups = []stringdb.Group{}
		}
		return output.WriteJSON(w, groups)
	}
	if len(groups) == 0 {
		fmt.Fprintln(w, "No significant STRING enrichment found")
		return nil
	}
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "# %s\n", g.Title)
		fmt.Fprintln(w, "term\tdescription\tp_value\tfdr\tnumber_of_genes\tnumber_of_genes_in_background\tinputGenes\tpreferredNames")
		for _, t := range g.Terms {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
				t.Term, t.Description, fmtFloat(t.PValue), fmtFloat(t.FDR),
				t.NumberOfGenes, t.NumberOfGenesInBackground,
				strings.Join(t.InputGenes, ","), strings.Join(t.PreferredNames, ","))
		}
	}
	return nil
}
