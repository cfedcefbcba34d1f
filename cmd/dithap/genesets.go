package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dithap/dithap-explorer/internal/output"
)

func newGeneSetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genesets",
		Short: "List the available gene sets",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGeneSets(cmd.OutOrStdout())
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <set>",
		Short: "List the genes of a set",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGeneSetShow(cmd.OutOrStdout(), args[0])
		},
	})
	return cmd
}

func runGeneSets(w io.Writer) error {
	reg, err := loadDataset().GeneSets()
	if err != nil {
		return err
	}
	if format == "json" {
		type setInfo struct {
			Key   string `json:"key"`
			Label string `json:"label"`
			Size  int    `json:"size"`
		}
		out := make([]setInfo, 0, len(reg.Sets()))
		for _, s := range reg.Sets() {
			out = append(out, setInfo{Key: s.Key(), Label: s.Label, Size: len(s.Genes)})
		}
		return output.WriteJSON(w, out)
	}
	for _, k := range reg.Keys() {
		fmt.Fprintln(w, k)
	}
	return nil
}

func runGeneSetShow(w io.Writer, name string) error {
	d := loadDataset()
	tbl, err := d.Genes()
	if err != nil {
		return err
	}
	reg, err := d.GeneSets()
	if err != nil {
		return err
	}
	set, ok := reg.Find(name)
	if !ok {
		return usagef("unknown gene set %q", name)
	}
	if format == "json" {
		return output.WriteJSON(w, set.Genes)
	}
	for _, id := range set.Genes {
		fmt.Fprintf(w, "%s\t%s\n", id, tbl.Name(id))
	}
	return nil
}
