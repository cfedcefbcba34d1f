package ontology

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Namespace abbreviations used in enrichment output.
const (
	NSBiologicalProcess = "BP"
	NSMolecularFunction = "MF"
	NSCellularComponent = "CC"
	NSPhenotype         = "fypo"
)

var namespaceAbbrev = map[string]string{
	"biological_process":      NSBiologicalProcess,
	"molecular_function":      NSMolecularFunction,
	"cellular_component":      NSCellularComponent,
	"fission_yeast_phenotype": NSPhenotype,
}

var aspectAbbrev = map[string]string{
	"P": NSBiologicalProcess,
	"F": NSMolecularFunction,
	"C": NSCellularComponent,
}

// NamespaceAbbrev returns the short form of an OBO namespace. Namespaces
// other than the GO aspects and FYPO are returned unchanged.
func NamespaceAbbrev(ns string) string {
	if a, ok := namespaceAbbrev[ns]; ok {
		return a
	}
	return ns
}

// DAG is a read-only term graph. Edges point from child to parent.
type DAG struct {
	Header Header

	terms  map[string]*Term
	alt    map[string]string // alt_id -> primary id
	order  []string          // term IDs in file order
	nodeOf map[string]int64
	idOf   []string
	g      *simple.DirectedGraph
}

// NewDAG indexes terms and checks that the is_a/part_of graph is acyclic.
func NewDAG(hdr Header, terms []*Term) (*DAG, error) {
	d := &DAG{
		Header: hdr,
		terms:  make(map[string]*Term, len(terms)),
		alt:    make(map[string]string),
		nodeOf: make(map[string]int64, len(terms)),
		idOf:   make([]string, 0, len(terms)),
		g:      simple.NewDirectedGraph(),
	}

	for _, t := range terms {
		if t.ID == "" {
			return nil, &MalformedOntologyError{Reason: "term without id"}
		}
		if _, dup := d.terms[t.ID]; dup {
			return nil, &MalformedOntologyError{Reason: "duplicate term id", Terms: []string{t.ID}}
		}
		d.terms[t.ID] = t
		d.order = append(d.order, t.ID)

		n := int64(len(d.idOf))
		d.nodeOf[t.ID] = n
		d.idOf = append(d.idOf, t.ID)
		d.g.AddNode(simple.Node(n))
	}
	for _, t := range terms {
		for _, a := range t.AltIDs {
			if _, ok := d.terms[a]; !ok {
				d.alt[a] = t.ID
			}
		}
	}

	for _, t := range terms {
		for _, p := range t.IsA {
			if _, ok := d.terms[p]; !ok {
				return nil, &MalformedOntologyError{Reason: "is_a parent not defined", Terms: []string{t.ID, p}}
			}
		}
		for _, p := range t.Parents() {
			if p == t.ID {
				return nil, &MalformedOntologyError{Reason: "term is its own parent", Terms: []string{t.ID}}
			}
			to, ok := d.nodeOf[p]
			if !ok {
				// part_of targets may live in another ontology.
				continue
			}
			d.g.SetEdge(d.g.NewEdge(simple.Node(d.nodeOf[t.ID]), simple.Node(to)))
		}
	}

	if _, err := topo.Sort(d.g); err != nil {
		var u topo.Unorderable
		if errors.As(err, &u) && len(u) > 0 {
			return nil, &MalformedOntologyError{Reason: "cycle", Terms: d.ids(u[0])}
		}
		return nil, &MalformedOntologyError{Reason: err.Error()}
	}

	return d, nil
}

func (d *DAG) ids(nodes []graph.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = d.idOf[n.ID()]
	}
	sort.Strings(out)
	return out
}

// Len returns the number of terms.
func (d *DAG) Len() int { return len(d.terms) }

// Term returns the term with the given ID, following alt IDs.
func (d *DAG) Term(id string) (*Term, bool) {
	if t, ok := d.terms[id]; ok {
		return t, true
	}
	if p, ok := d.alt[id]; ok {
		return d.terms[p], true
	}
	return nil, false
}

// Parents returns the direct parents of a term.
func (d *DAG) Parents(id string) []string {
	return d.neighbours(id, d.g.From)
}

// Children returns the direct children of a term.
func (d *DAG) Children(id string) []string {
	return d.neighbours(id, d.g.To)
}

func (d *DAG) neighbours(id string, fn func(int64) graph.Nodes) []string {
	t, ok := d.Term(id)
	if !ok {
		return nil
	}
	it := fn(d.nodeOf[t.ID])
	var out []string
	for it.Next() {
		out = append(out, d.idOf[it.Node().ID()])
	}
	sort.Strings(out)
	return out
}

// Namespaces returns the distinct term namespaces, abbreviated and sorted.
func (d *DAG) Namespaces() []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range d.order {
		ns := NamespaceAbbrev(d.terms[id].Namespace)
		if ns != "" && !seen[ns] {
			seen[ns] = true
			out = append(out, ns)
		}
	}
	sort.Strings(out)
	return out
}
