// Package genesets composes the named gene sets offered as query and
// background candidates: all coding genes, the genes covered by the screen,
// and the depletion-curve clusters.
package genesets

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dithap/dithap-explorer/internal/genes"
)

// Cluster file columns.
const (
	ColSystematicID = "Systematic ID"
	ColCluster      = "revised_cluster"
)

// Built-in set labels.
const (
	LabelAllCoding = "All coding genes"
	LabelCurated   = "Coding genes in DIT_HAP"
)

// Set is a named, ordered list of systematic IDs.
type Set struct {
	Label string
	Genes []string
}

// Key returns the label with its cardinality, e.g. "Cluster 3 (42)".
func (s Set) Key() string {
	return fmt.Sprintf("%s (%d)", s.Label, len(s.Genes))
}

// Registry holds gene sets in display order. It is immutable once built.
type Registry struct {
	sets  []Set
	byKey map[string]int
}

// New builds a registry from sets in the given order. A later set replaces
// an earlier one with the same key.
func New(sets ...Set) *Registry {
	r := &Registry{byKey: make(map[string]int, len(sets))}
	for _, s := range sets {
		if i, ok := r.byKey[s.Key()]; ok {
			r.sets[i] = s
			continue
		}
		r.byKey[s.Key()] = len(r.sets)
		r.sets = append(r.sets, s)
	}
	return r
}

// Build composes the standard registry: all coding genes, the curated
// subset, then every cluster.
func Build(codingGenes, curated []string, clusters []Set) *Registry {
	sets := make([]Set, 0, len(clusters)+2)
	sets = append(sets,
		Set{Label: LabelAllCoding, Genes: codingGenes},
		Set{Label: LabelCurated, Genes: curated},
	)
	sets = append(sets, clusters...)
	return New(sets...)
}

// BuildFromFiles loads the curated subset and cluster assignments and
// composes the standard registry.
func BuildFromFiles(codingGenes []string, curatedFile, clusterFile string) (*Registry, error) {
	curated, err := LoadCurated(curatedFile)
	if err != nil {
		return nil, err
	}
	clusters, err := LoadClusters(clusterFile)
	if err != nil {
		return nil, err
	}
	return Build(codingGenes, curated, clusters), nil
}

// Keys returns the set keys in display order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.sets))
	for i, s := range r.sets {
		keys[i] = s.Key()
	}
	return keys
}

// Sets returns the sets in display order.
func (r *Registry) Sets() []Set {
	return r.sets
}

// Get returns the genes of the set with the given key.
func (r *Registry) Get(key string) ([]string, bool) {
	i, ok := r.byKey[key]
	if !ok {
		return nil, false
	}
	return r.sets[i].Genes, true
}

// Find returns the set whose key or bare label equals name.
func (r *Registry) Find(name string) (Set, bool) {
	if i, ok := r.byKey[name]; ok {
		return r.sets[i], true
	}
	for _, s := range r.sets {
		if s.Label == name {
			return s, true
		}
	}
	return Set{}, false
}

// LoadCurated reads the systematic IDs listed in a CSV file, in row order.
func LoadCurated(path string) ([]string, error) {
	rows, idx, err := readCSV(path, ColSystematicID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if id := cell(row, idx[ColSystematicID]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// LoadClusters reads a cluster assignment CSV and groups the genes by
// cluster label. Genes keep their file order within a cluster; clusters are
// ordered by label, numerically when both labels are numbers.
func LoadClusters(path string) ([]Set, error) {
	rows, idx, err := readCSV(path, ColSystematicID, ColCluster)
	if err != nil {
		return nil, err
	}

	members := map[string][]string{}
	var labels []string
	for _, row := range rows {
		id := cell(row, idx[ColSystematicID])
		label := cell(row, idx[ColCluster])
		if id == "" || label == "" {
			continue
		}
		if _, ok := members[label]; !ok {
			labels = append(labels, label)
		}
		members[label] = append(members[label], id)
	}

	sort.SliceStable(labels, func(i, j int) bool {
		return labelLess(labels[i], labels[j])
	})

	sets := make([]Set, len(labels))
	for i, l := range labels {
		sets[i] = Set{Label: l, Genes: members[l]}
	}
	return sets, nil
}

// labelLess orders numeric labels by value ahead of all other labels,
// which sort lexically. Equal values fall back to the label text.
func labelLess(a, b string) bool {
	fa, numA := numericLabel(a)
	fb, numB := numericLabel(b)
	switch {
	case numA && numB:
		if fa != fb {
			return fa < fb
		}
	case numA:
		return true
	case numB:
		return false
	}
	return a < b
}

func numericLabel(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// readCSV reads a CSV file and checks that the header holds every required
// column, returning the data rows and a column index.
func readCSV(path string, required ...string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open gene set file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, &genes.DataLoadError{File: path, Column: required[0]}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s header: %w", path, err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, nil, &genes.DataLoadError{File: path, Column: col}
		}
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, idx, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
