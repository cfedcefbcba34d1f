// Package dataset ties the configured input files to their loaders so that
// the CLI and the API server share one memoized view of the data.
package dataset

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dithap/dithap-explorer/internal/enrich"
	"github.com/dithap/dithap-explorer/internal/genes"
	"github.com/dithap/dithap-explorer/internal/genesets"
	"github.com/dithap/dithap-explorer/internal/memo"
	"github.com/dithap/dithap-explorer/internal/ontology"
)

// ErrNotConfigured is returned when a required input path is empty.
var ErrNotConfigured = errors.New("input not configured")

// OntologySource names an ontology and its annotation file. PHAF stands
// in for GAF when GAF is empty.
type OntologySource struct {
	Name string
	OBO  string
	GAF  string
	PHAF string
}

// annotations returns the association file and its format.
func (o OntologySource) annotations() (string, ontology.AnnotationFormat) {
	if o.GAF == "" && o.PHAF != "" {
		return o.PHAF, ontology.FormatPHAF
	}
	return o.GAF, ontology.FormatGAF
}

// Sources lists the input files. CuratedFile defaults to ClusterFile,
// whose gene column lists every gene covered by the screen.
type Sources struct {
	GeneInfo     string
	ClusterFile  string
	CuratedFile  string
	Essentiality string
	Ontologies   []OntologySource
}

// Dataset loads inputs on demand and reloads them when files change.
type Dataset struct {
	src        Sources
	genes      *memo.Cache[*genes.Table]
	geneSets   *genesets.Loader
	ontologies *ontology.Loader
	logger     *zap.Logger
}

// New creates a dataset over the given sources. Nothing is read until a
// getter is called.
func New(src Sources) *Dataset {
	if src.CuratedFile == "" {
		src.CuratedFile = src.ClusterFile
	}
	return &Dataset{
		src:        src,
		genes:      memo.New[*genes.Table]("genes"),
		geneSets:   genesets.NewLoader(),
		ontologies: ontology.NewLoader(),
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger on the dataset and its loaders.
func (d *Dataset) SetLogger(l *zap.Logger) {
	d.logger = l
	d.genes.SetLogger(l)
	d.geneSets.SetLogger(l)
	d.ontologies.SetLogger(l)
}

// Sources returns the configured sources.
func (d *Dataset) Sources() Sources {
	return d.src
}

// Genes returns the gene table, with essentiality attached when an
// essentiality workbook is configured.
func (d *Dataset) Genes() (*genes.Table, error) {
	if d.src.GeneInfo == "" {
		return nil, fmt.Errorf("gene info file: %w", ErrNotConfigured)
	}

	paths := []string{d.src.GeneInfo}
	if d.src.Essentiality != "" {
		paths = append(paths, d.src.Essentiality)
	}
	return d.genes.Get(func() (*genes.Table, error) {
		t, err := genes.LoadTable(d.src.GeneInfo)
		if err != nil {
			return nil, err
		}
		if d.src.Essentiality != "" {
			ess, err := genes.LoadEssentiality(d.src.Essentiality)
			if err != nil {
				return nil, err
			}
			n := t.SetEssentiality(ess)
			d.logger.Info("attached essentiality", zap.Int("genes", n))
		}
		d.logger.Info("loaded gene table", zap.Int("genes", t.Len()))
		return t, nil
	}, paths...)
}

// GeneSets returns the gene set registry.
func (d *Dataset) GeneSets() (*genesets.Registry, error) {
	if d.src.ClusterFile == "" {
		return nil, fmt.Errorf("cluster file: %w", ErrNotConfigured)
	}
	t, err := d.Genes()
	if err != nil {
		return nil, err
	}
	return d.geneSets.Load(t.CodingGenes(), d.src.GeneInfo, d.src.CuratedFile, d.src.ClusterFile)
}

// Analyses returns one analysis per configured ontology, in configuration
// order. Ontologies without a term graph or an association file are
// skipped.
func (d *Dataset) Analyses() ([]enrich.Analysis, error) {
	var out []enrich.Analysis
	for _, o := range d.src.Ontologies {
		ann, format := o.annotations()
		if o.OBO == "" || ann == "" {
			continue
		}
		s, err := d.ontologies.LoadFormat(o.OBO, ann, format)
		if err != nil {
			return nil, fmt.Errorf("ontology %s: %w", o.Name, err)
		}
		out = append(out, enrich.Analysis{Name: o.Name, Store: s})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ontologies: %w", ErrNotConfigured)
	}
	return out, nil
}

// Invalidate drops every memoized value built from path and returns the
// number of entries removed.
func (d *Dataset) Invalidate(path string) int {
	return d.genes.Invalidate(path) +
		d.geneSets.Cache().Invalidate(path) +
		d.ontologies.Cache().Invalidate(path)
}
