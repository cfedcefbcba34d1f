package ontology

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// GAF column indices (0-based).
const (
	gafObjectID  = 1
	gafQualifier = 3
	gafTermID    = 4
	gafAspect    = 8
	gafMinFields = 9
)

// Associations maps genes to the terms they are directly annotated with,
// partitioned by namespace. It is read-only once built.
type Associations struct {
	byNS map[string]map[string][]string // namespace -> gene -> sorted term IDs
}

// GAFStats counts what happened to the annotation rows of a GAF file.
type GAFStats struct {
	Rows        int
	Kept        int
	Negated     int // NOT qualifier
	UnknownTerm int // term missing from the DAG
	Obsolete    int
	Excluded    int // PHAF rows outside the allele type or condition filter
}

// Namespaces returns the namespaces with at least one association, sorted.
func (a *Associations) Namespaces() []string {
	out := make([]string, 0, len(a.byNS))
	for ns := range a.byNS {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Genes returns the gene to terms mapping of one namespace. The returned
// map must not be modified.
func (a *Associations) Genes(ns string) map[string][]string {
	return a.byNS[ns]
}

// Terms returns the terms a gene is annotated with in a namespace. A gene
// without annotations has an empty result.
func (a *Associations) Terms(ns, gene string) []string {
	return a.byNS[ns][gene]
}

// Count returns the number of (gene, term) pairs across namespaces.
func (a *Associations) Count() int {
	n := 0
	for _, genes := range a.byNS {
		for _, terms := range genes {
			n += len(terms)
		}
	}
	return n
}

// NewAssociations builds associations from namespace -> gene -> terms.
// Term lists are deduplicated and sorted.
func NewAssociations(byNS map[string]map[string][]string) *Associations {
	a := &Associations{byNS: make(map[string]map[string][]string, len(byNS))}
	for ns, genes := range byNS {
		m := make(map[string][]string, len(genes))
		for gene, terms := range genes {
			m[gene] = uniqueSorted(terms)
		}
		a.byNS[ns] = m
	}
	return a
}

// ReadGAF reads GAF annotation rows and resolves each term against dag.
// The namespace of an association is the namespace of its term; the GAF
// aspect column is used only when the term has none. Rows with a NOT
// qualifier, obsolete terms and terms absent from dag are skipped.
func ReadGAF(r io.Reader, dag *DAG) (*Associations, GAFStats, error) {
	var stats GAFStats
	byNS := map[string]map[string][]string{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), scannerBufferSize)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || line[0] == '!' {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < gafMinFields {
			return nil, stats, fmt.Errorf("gaf line %d: expected at least %d columns, got %d", lineNo, gafMinFields, len(fields))
		}
		stats.Rows++

		if hasNot(fields[gafQualifier]) {
			stats.Negated++
			continue
		}
		term, ok := dag.Term(strings.TrimSpace(fields[gafTermID]))
		if !ok {
			stats.UnknownTerm++
			continue
		}
		if term.Obsolete {
			stats.Obsolete++
			continue
		}

		ns := NamespaceAbbrev(term.Namespace)
		if ns == "" {
			aspect := strings.TrimSpace(fields[gafAspect])
			if a, ok := aspectAbbrev[aspect]; ok {
				ns = a
			} else {
				ns = aspect
			}
		}
		gene := strings.TrimSpace(fields[gafObjectID])
		if gene == "" {
			continue
		}

		genes, ok := byNS[ns]
		if !ok {
			genes = map[string][]string{}
			byNS[ns] = genes
		}
		genes[gene] = append(genes[gene], term.ID)
		stats.Kept++
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("read gaf line %d: %w", lineNo, err)
	}

	return NewAssociations(byNS), stats, nil
}

func hasNot(qualifier string) bool {
	for _, q := range strings.Split(qualifier, "|") {
		if strings.EqualFold(strings.TrimSpace(q), "NOT") {
			return true
		}
	}
	return false
}

func uniqueSorted(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	j := 0
	for i, s := range out {
		if i == 0 || s != out[j-1] {
			out[j] = s
			j++
		}
	}
	return out[:j]
}
