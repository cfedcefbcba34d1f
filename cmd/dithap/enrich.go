package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dithap/dithap-explorer/internal/enrich"
	"github.com/dithap/dithap-explorer/internal/genesets"
	"github.com/dithap/dithap-explorer/internal/output"
)

type enrichOptions struct {
	query      geneFlags
	background geneFlags
	ontologies []string
	workers    int
	all        bool
}

func newEnrichCmd() *cobra.Command {
	var opts enrichOptions
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Run ontology enrichment of a query gene list",
		Long: `Run a one-sided Fisher enrichment test of the query genes against the
background for every configured ontology. Only enriched terms with a
Benjamini-Hochberg corrected p-value below 0.05 are reported.`,
		Example: `  dithap enrich --query-set "3 (120)"
  dithap enrich --query "cdc2,cdc13,wee1" --background-set "Coding genes in DIT_HAP"
  dithap enrich --query-file genes.txt --ontology GO -f json`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnrich(cmd.OutOrStdout(), &opts)
		},
	}
	opts.query.register(cmd, "query", "")
	opts.background.register(cmd, "background", genesets.LabelAllCoding)
	cmd.Flags().StringSliceVar(&opts.ontologies, "ontology", nil, "limit to these ontologies (GO, FYPO)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "number of ontologies tested in parallel (0 = all CPUs)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "report every tested term, not only significant enrichments")
	return cmd
}

type enrichResult struct {
	Ontology string                 `json:"ontology"`
	Rows     []output.EnrichmentRow `json:"rows"`
}

func runEnrich(w io.Writer, opts *enrichOptions) error {
	d := loadDataset()
	tbl, err := d.Genes()
	if err != nil {
		return err
	}
	query, err := opts.query.resolve(d, tbl)
	if err != nil {
		return err
	}
	background, err := opts.background.resolve(d, tbl)
	if err != nil {
		return err
	}
	analyses, err := d.Analyses()
	if err != nil {
		return err
	}
	analyses, err = filterAnalyses(analyses, opts.ontologies)
	if err != nil {
		return err
	}

	engine := enrich.NewEngine()
	engine.SetLogger(logger)

	var results []enrich.AnalysisResult
	if opts.all {
		for i, a := range analyses {
			recs, err := engine.Study(query, background, a.Store.DAG, a.Store.Associations)
			results = append(results, enrich.AnalysisResult{Seq: i, Name: a.Name, Records: recs, Err: err})
		}
	} else {
		results = engine.RunAll(query, background, analyses, opts.workers)
	}

	var out []enrichResult
	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("%s enrichment: %w", r.Name, r.Err)
		}
		out = append(out, enrichResult{
			Ontology: r.Name,
			Rows:     output.FormatEnrichment(r.Records, tbl.IDToName()),
		})
	}

	if format == "json" {
		return output.WriteJSON(w, out)
	}
	for i, r := range out {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "# %s\n", r.Ontology)
		if len(r.Rows) == 0 {
			fmt.Fprintln(w, output.NoSignificantTerms)
			continue
		}
		if err := output.WriteEnrichmentTab(w, r.Rows); err != nil {
			return err
		}
	}
	return nil
}

func filterAnalyses(analyses []enrich.Analysis, names []string) ([]enrich.Analysis, error) {
	if len(names) == 0 {
		return analyses, nil
	}
	var out []enrich.Analysis
	for _, n := range names {
		found := false
		for _, a := range analyses {
			if strings.EqualFold(a.Name, n) {
				out = append(out, a)
				found = true
				break
			}
		}
		if !found {
			return nil, usagef("ontology %q is not configured", n)
		}
	}
	return out, nil
}
