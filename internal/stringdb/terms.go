package stringdb

import "sort"

// Term is one STRING enrichment row, restricted to the displayed columns.
type Term struct {
	Category                  string   `json:"category"`
	Term                      string   `json:"term"`
	Description               string   `json:"description"`
	PValue                    float64  `json:"p_value"`
	FDR                       float64  `json:"fdr"`
	NumberOfGenes             int      `json:"number_of_genes"`
	NumberOfGenesInBackground int      `json:"number_of_genes_in_background"`
	InputGenes                []string `json:"inputGenes"`
	PreferredNames            []string `json:"preferredNames"`
}

// Categories lists STRING categories in display order with their titles.
var Categories = []struct {
	Name, Title string
}{
	{"Process", "Biological Process (Gene Ontology)"},
	{"Component", "Cellular Component (Gene Ontology)"},
	{"Function", "Molecular Function (Gene Ontology)"},
	{"PMID", "Reference Publications (PubMed)"},
	{"NetworkNeighborAL", "Local Network Cluster (STRING)"},
	{"KEGG", "KEGG Pathways"},
	{"RCTM", "Reactome Pathways"},
	{"COMPARTMENTS", "Subcellular Localization (COMPARTMENTS)"},
	{"Keyword", "Annotated Keywords (UniProt)"},
	{"InterPro", "Protein Domains and Features (InterPro)"},
	{"SMART", "Protein Domains and Features (SMART)"},
}

// Group is the terms of one category under its display title.
type Group struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Terms    []Term `json:"terms"`
}

// GroupByCategory orders terms by category display order and groups them.
// Unknown categories follow the known ones in order of first appearance and
// keep their raw name as title. Terms keep their order within a group.
func GroupByCategory(terms []Term) []Group {
	rank := make(map[string]int, len(Categories))
	title := make(map[string]string, len(Categories))
	for i, c := range Categories {
		rank[c.Name] = i
		title[c.Name] = c.Title
	}

	sorted := make([]Term, len(terms))
	copy(sorted, terms)
	next := len(Categories)
	for _, t := range sorted {
		if _, ok := rank[t.Category]; !ok {
			rank[t.Category] = next
			next++
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return rank[sorted[i].Category] < rank[sorted[j].Category]
	})

	var groups []Group
	for _, t := range sorted {
		if n := len(groups); n > 0 && groups[n-1].Category == t.Category {
			groups[n-1].Terms = append(groups[n-1].Terms, t)
			continue
		}
		tt, ok := title[t.Category]
		if !ok {
			tt = t.Category
		}
		groups = append(groups, Group{Category: t.Category, Title: tt, Terms: []Term{t}})
	}
	return groups
}
