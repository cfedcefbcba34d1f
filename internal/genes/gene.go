// Package genes provides the fission yeast gene table and resolution of
// free-text gene references to systematic IDs.
package genes

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Gene metadata columns.
const (
	ColSystematicID = "gene_systematic_id"
	ColName         = "gene_name"
	ColProduct      = "gene_product"
	ColSynonyms     = "synonyms"
	ColType         = "gene_type"
)

// CodingGeneType is the gene_type value of protein coding genes.
const CodingGeneType = "protein coding gene"

const pombaseGeneURL = "https://www.pombase.org/gene/"

// DataLoadError reports an input table that lacks a required column.
type DataLoadError struct {
	File   string
	Column string
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("%s: missing required column %q", e.File, e.Column)
}

// Gene is a single row of the gene metadata table.
type Gene struct {
	ID           string // systematic ID, e.g. SPAC1002.09c
	Name         string // display name; the ID when the gene is unnamed
	Product      string
	Synonyms     []string
	Type         string
	Essentiality *Essentiality
}

// Named reports whether the gene has a name distinct from its ID.
func (g *Gene) Named() bool {
	return g.Name != g.ID
}

// PomBaseURL returns the PomBase gene page for a systematic ID.
func PomBaseURL(id string) string {
	return pombaseGeneURL + id
}

// Table indexes genes by systematic ID, name and synonym.
type Table struct {
	genes       []*Gene
	byID        map[string]*Gene
	idToName    map[string]string
	nameToID    map[string]string
	synonymToID map[string]string
}

// NewTable builds a table from genes in file order. When two genes share a
// name the later one owns it; the first gene listing a synonym owns it.
func NewTable(genes []*Gene) *Table {
	t := &Table{
		genes:       genes,
		byID:        make(map[string]*Gene, len(genes)),
		idToName:    make(map[string]string, len(genes)),
		nameToID:    make(map[string]string, len(genes)),
		synonymToID: make(map[string]string),
	}
	for _, g := range genes {
		if g.Name == "" {
			g.Name = g.ID
		}
		t.byID[g.ID] = g
		t.idToName[g.ID] = g.Name
		t.nameToID[g.Name] = g.ID
		for _, s := range g.Synonyms {
			if _, ok := t.synonymToID[s]; !ok {
				t.synonymToID[s] = g.ID
			}
		}
	}
	return t
}

// Len returns the number of genes.
func (t *Table) Len() int { return len(t.genes) }

// Get returns the gene with the given systematic ID.
func (t *Table) Get(id string) (*Gene, bool) {
	g, ok := t.byID[id]
	return g, ok
}

// Name returns the display name of id, or id itself if it is unknown.
func (t *Table) Name(id string) string {
	if n, ok := t.idToName[id]; ok {
		return n
	}
	return id
}

// IDToName returns the systematic ID to display name mapping.
// The returned map must not be modified.
func (t *Table) IDToName() map[string]string { return t.idToName }

// NameToID returns the display name to systematic ID mapping.
// The returned map must not be modified.
func (t *Table) NameToID() map[string]string { return t.nameToID }

// CodingGenes returns the IDs of protein coding genes in file order.
func (t *Table) CodingGenes() []string {
	var ids []string
	for _, g := range t.genes {
		if g.Type == CodingGeneType {
			ids = append(ids, g.ID)
		}
	}
	return ids
}

// SetEssentiality attaches essentiality records to the matching genes.
// It returns the number of genes that received a record.
func (t *Table) SetEssentiality(records map[string]Essentiality) int {
	n := 0
	for id, e := range records {
		if g, ok := t.byID[id]; ok {
			e := e
			g.Essentiality = &e
			n++
		}
	}
	return n
}

// LoadTable loads a tab-separated gene metadata file.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gene table: %w", err)
	}
	defer f.Close()

	t, err := ParseTable(f)
	if err != nil {
		var dle *DataLoadError
		if errors.As(err, &dle) {
			dle.File = path
		}
		return nil, err
	}
	return t, nil
}

// ParseTable parses gene metadata from r. The header must contain the
// systematic ID, name and type columns; product and synonyms are optional.
func ParseTable(r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read gene table: %w", err)
		}
		return nil, &DataLoadError{File: "gene table", Column: ColSystematicID}
	}

	header := strings.Split(scanner.Text(), "\t")
	idx := map[string]int{}
	for i, col := range header {
		idx[strings.TrimSpace(col)] = i
	}
	for _, col := range []string{ColSystematicID, ColName, ColType} {
		if _, ok := idx[col]; !ok {
			return nil, &DataLoadError{File: "gene table", Column: col}
		}
	}
	field := func(fields []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	var genes []*Gene
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		id := field(fields, ColSystematicID)
		if id == "" {
			continue
		}
		genes = append(genes, &Gene{
			ID:       id,
			Name:     field(fields, ColName),
			Product:  field(fields, ColProduct),
			Synonyms: splitSynonyms(field(fields, ColSynonyms)),
			Type:     field(fields, ColType),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gene table: %w", err)
	}

	return NewTable(genes), nil
}

func splitSynonyms(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, syn := range strings.Split(s, ",") {
		if syn = strings.TrimSpace(syn); syn != "" {
			out = append(out, syn)
		}
	}
	return out
}
