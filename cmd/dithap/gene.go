package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dithap/dithap-explorer/internal/genes"
	"github.com/dithap/dithap-explorer/internal/output"
)

func newGeneCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "gene <id|name|synonym>",
		Short:   "Show basic information about a gene",
		Example: `  dithap gene cdc2`,
		Args:    usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGene(cmd.OutOrStdout(), args[0])
		},
	}
}

func runGene(w io.Writer, query string) error {
	tbl, err := loadDataset().Genes()
	if err != nil {
		return err
	}
	m, ok := tbl.Lookup(strings.TrimSpace(query))
	if !ok {
		return fmt.Errorf("gene %q not found", query)
	}
	g := m.Gene

	if format == "json" {
		return output.WriteJSON(w, map[string]any{
			"query":        m.Query,
			"matched_by":   m.Kind,
			"id":           g.ID,
			"name":         g.Name,
			"product":      g.Product,
			"synonyms":     g.Synonyms,
			"pombase":      genes.PomBaseURL(g.ID),
			"essentiality": g.Essentiality,
		})
	}

	if m.Updated() {
		fmt.Fprintf(w, "%s is a synonym; updated to %s / %s\n", m.Query, g.ID, g.Name)
	}
	fmt.Fprintf(w, "Systematic ID:\t%s\n", g.ID)
	fmt.Fprintf(w, "Name:\t%s\n", g.Name)
	fmt.Fprintf(w, "Product:\t%s\n", g.Product)
	if len(g.Synonyms) > 0 {
		fmt.Fprintf(w, "Synonyms:\t%s\n", strings.Join(g.Synonyms, ", "))
	}
	fmt.Fprintf(w, "PomBase:\t%s\n", genes.PomBaseURL(g.ID))
	if e := g.Essentiality; e != nil {
		fmt.Fprintf(w, "Deletion phenotype:\t%s\n", e.DeletionPhenotype)
		fmt.Fprintf(w, "Classification:\t%s\n", e.Classification)
		fmt.Fprintf(w, "Dispensability:\t%s\n", e.Dispensability)
		fmt.Fprintf(w, "Category:\t%s\n", e.Category)
		fmt.Fprintf(w, "Basic phenotypes:\t%s\n", e.BasicPhenotypes)
	}
	return nil
}
