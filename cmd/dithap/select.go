package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dithap/dithap-explorer/internal/dataset"
	"github.com/dithap/dithap-explorer/internal/genes"
)

// geneFlags selects a gene list by registry set, inline text or file.
type geneFlags struct {
	name  string
	set   string
	genes string
	file  string
}

func (f *geneFlags) register(cmd *cobra.Command, name, defaultSet string) {
	f.name = name
	cmd.Flags().StringVar(&f.set, name+"-set", defaultSet, "gene set key or label for the "+name)
	cmd.Flags().StringVar(&f.genes, name, "", "comma or newline separated genes for the "+name)
	cmd.Flags().StringVar(&f.file, name+"-file", "", "file listing genes for the "+name+" ('-' for stdin)")
}

func (f *geneFlags) text() (string, error) {
	switch f.file {
	case "":
		return f.genes, nil
	case "-":
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	default:
		b, err := os.ReadFile(f.file)
		if err != nil {
			return "", fmt.Errorf("read %s genes: %w", f.name, err)
		}
		return string(b), nil
	}
}

// resolve returns the selected systematic IDs. Inline genes or a file take
// precedence over the set. Unresolved tokens are reported on stderr.
func (f *geneFlags) resolve(d *dataset.Dataset, tbl *genes.Table) ([]string, error) {
	text, err := f.text()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) != "" {
		res := tbl.Resolve(genes.SplitTokens(text))
		if len(res.Unresolved) > 0 {
			fmt.Fprintln(os.Stderr, res.Summary())
		}
		return res.Resolved, nil
	}

	if f.set == "" {
		return nil, usagef("one of --%s-set, --%s or --%s-file is required", f.name, f.name, f.name)
	}
	reg, err := d.GeneSets()
	if err != nil {
		return nil, err
	}
	set, ok := reg.Find(f.set)
	if !ok {
		return nil, usagef("unknown gene set %q (see 'dithap genesets')", f.set)
	}
	return set.Genes, nil
}
