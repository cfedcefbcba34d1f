package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dithap/dithap-explorer/internal/curves"
	"github.com/dithap/dithap-explorer/internal/dataset"
	"github.com/dithap/dithap-explorer/internal/genes"
	"github.com/dithap/dithap-explorer/internal/output"
)

func newCurvesCmd() *cobra.Command {
	var (
		sel        geneFlags
		profile    bool
		insertions bool
		lastOnly   bool
	)
	cmd := &cobra.Command{
		Use:   "curves",
		Short: "Print depletion-curve points for a gene list",
		Example: `  dithap curves --genes "cdc2,wee1"
  dithap curves --genes-set "3 (120)" --profile
  dithap curves --genes cdc2 --insertions --last-timepoint`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if lastOnly && !insertions {
				return usagef("--last-timepoint requires --insertions")
			}
			if profile && insertions {
				return usagef("--profile and --insertions are mutually exclusive")
			}
			return runCurves(cmd.OutOrStdout(), &sel, curvesMode{profile: profile, insertions: insertions, lastOnly: lastOnly})
		},
	}
	sel.register(cmd, "genes", "")
	cmd.Flags().BoolVar(&profile, "profile", false, "print the mean LFC per timepoint instead of per-gene points")
	cmd.Flags().BoolVar(&insertions, "insertions", false, "print per-insertion points (data.insertion_lfc)")
	cmd.Flags().BoolVar(&lastOnly, "last-timepoint", false, "with --insertions, print only the final timepoint")
	return cmd
}

type curvesMode struct {
	profile    bool
	insertions bool
	lastOnly   bool
}

func runCurves(w io.Writer, sel *geneFlags, mode curvesMode) error {
	store, files, err := openCurves()
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("data.gene_lfc: %w", dataset.ErrNotConfigured)
	}
	defer store.Close()

	d := loadDataset()
	tbl, err := d.Genes()
	if err != nil {
		return err
	}
	ids, err := sel.resolve(d, tbl)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return errors.New("no genes selected")
	}

	if mode.insertions {
		if !files.HasInsertions() {
			return fmt.Errorf("data.insertion_lfc and data.insertion_annotations: %w", dataset.ErrNotConfigured)
		}
		return writeInsertions(w, store, tbl, ids, mode.lastOnly)
	}

	if mode.profile {
		prof, err := store.SetProfile(ids)
		if err != nil {
			return err
		}
		if format == "json" {
			return output.WriteJSON(w, prof)
		}
		fmt.Fprintln(w, "timepoint\tgenerations\tmean_lfc\tgenes")
		for _, p := range prof {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.Timepoint, fmtFloat(p.Generations), fmtFloat(p.MeanLFC), p.Genes)
		}
		return nil
	}

	pts, err := store.Points(ids)
	if err != nil {
		return err
	}
	if format == "json" {
		return output.WriteJSON(w, pts)
	}
	fmt.Fprintln(w, "gene\tname\ttimepoint\tgenerations\tlfc\tpvalue\tconfidence")
	for _, p := range pts {
		pv, conf := "", ""
		if p.PValue != nil {
			pv, conf = fmtFloat(*p.PValue), fmtFloat(*p.Confidence)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Gene, tbl.Name(p.Gene), p.Timepoint, fmtFloat(p.Generations), fmtFloat(p.LFC), pv, conf)
	}
	return nil
}

func writeInsertions(w io.Writer, store *curves.Store, tbl *genes.Table, ids []string, lastOnly bool) error {
	all := make([]curves.InsertionCurves, 0, len(ids))
	for _, id := range ids {
		ic, err := store.InsertionPoints(id)
		if err != nil {
			return err
		}
		all = append(all, ic)
	}
	if format == "json" {
		return output.WriteJSON(w, all)
	}

	fmt.Fprintln(w, "gene\tname\tchr\tcoordinate\tstrand\ttimepoint\tgenerations\tlfc\tpadj\tweight\tdistance_to_stop_codon")
	for _, ic := range all {
		pts := ic.Points
		if lastOnly {
			pts = ic.Last
		}
		for _, p := range pts {
			padj, weight := "", ""
			if p.Padj != nil {
				padj, weight = fmtFloat(*p.Padj), fmtFloat(*p.Weight)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				p.Gene, tbl.Name(p.Gene), p.Chr, p.Coordinate, p.Strand, p.Timepoint,
				fmtFloat(p.Generations), fmtFloat(p.LFC), padj, weight, fmtFloat(p.DistanceToStop))
		}
	}
	return nil
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
