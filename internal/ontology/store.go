package ontology

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/dithap/dithap-explorer/internal/memo"
)

// Store is a term graph together with its gene associations. It is
// read-only after Load and may be shared between goroutines.
type Store struct {
	DAG          *DAG
	Associations *Associations
}

// AnnotationFormat selects the parser for an association file.
type AnnotationFormat int

const (
	FormatGAF AnnotationFormat = iota
	FormatPHAF
)

func (f AnnotationFormat) String() string {
	if f == FormatPHAF {
		return "phaf"
	}
	return "gaf"
}

func (f AnnotationFormat) reader() func(io.Reader, *DAG) (*Associations, GAFStats, error) {
	if f == FormatPHAF {
		return ReadPHAF
	}
	return ReadGAF
}

// Load parses an OBO ontology and a GAF association file.
func Load(oboPath, gafPath string) (*Store, GAFStats, error) {
	return LoadFormat(oboPath, gafPath, FormatGAF)
}

// LoadFormat parses an OBO ontology and an association file in the given
// format.
func LoadFormat(oboPath, annPath string, format AnnotationFormat) (*Store, GAFStats, error) {
	dag, err := LoadDAG(oboPath)
	if err != nil {
		return nil, GAFStats{}, err
	}

	f, err := os.Open(annPath)
	if err != nil {
		return nil, GAFStats{}, fmt.Errorf("open %s: %w", format, err)
	}
	defer f.Close()

	assoc, stats, err := format.reader()(f, dag)
	if err != nil {
		return nil, stats, fmt.Errorf("%s: %w", annPath, err)
	}
	return &Store{DAG: dag, Associations: assoc}, stats, nil
}

// LoadDAG parses an OBO file into a DAG.
func LoadDAG(path string) (*DAG, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obo: %w", err)
	}
	defer f.Close()

	hdr, terms, err := ParseOBO(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dag, err := NewDAG(hdr, terms)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return dag, nil
}

// Loader memoizes stores by the identity of their input files.
type Loader struct {
	cache  *memo.Cache[*Store]
	logger *zap.Logger
}

// NewLoader creates a loader with an empty cache.
func NewLoader() *Loader {
	return &Loader{
		cache:  memo.New[*Store]("ontology"),
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for load messages.
func (l *Loader) SetLogger(lg *zap.Logger) {
	l.logger = lg
	l.cache.SetLogger(lg)
}

// Load returns the store for the given files, parsing them only when they
// are new or have changed since the last call.
func (l *Loader) Load(oboPath, gafPath string) (*Store, error) {
	return l.LoadFormat(oboPath, gafPath, FormatGAF)
}

// LoadFormat is Load for an association file in the given format.
func (l *Loader) LoadFormat(oboPath, annPath string, format AnnotationFormat) (*Store, error) {
	return l.cache.Get(func() (*Store, error) {
		s, stats, err := LoadFormat(oboPath, annPath, format)
		if err != nil {
			return nil, err
		}
		l.logger.Info("loaded ontology",
			zap.String("obo", oboPath),
			zap.String(format.String(), annPath),
			zap.Int("terms", s.DAG.Len()),
			zap.Int("associations", s.Associations.Count()),
			zap.Int("skipped_not", stats.Negated),
			zap.Int("skipped_unknown_term", stats.UnknownTerm),
			zap.Int("skipped_obsolete", stats.Obsolete),
			zap.Int("skipped_excluded", stats.Excluded))
		return s, nil
	}, oboPath, annPath)
}

// Cache exposes the underlying cache for explicit invalidation.
func (l *Loader) Cache() *memo.Cache[*Store] {
	return l.cache
}
