package genesets

import (
	"go.uber.org/zap"

	"github.com/dithap/dithap-explorer/internal/memo"
)

// Loader builds registries from files and reuses them while the gene
// table, curated and cluster files are unchanged.
type Loader struct {
	cache  *memo.Cache[*Registry]
	logger *zap.Logger
}

// NewLoader creates a loader with an empty cache.
func NewLoader() *Loader {
	return &Loader{
		cache:  memo.New[*Registry]("genesets"),
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for load messages.
func (l *Loader) SetLogger(lg *zap.Logger) {
	l.logger = lg
	l.cache.SetLogger(lg)
}

// Load returns the registry for the given inputs. geneTable is only used as
// part of the cache key since codingGenes is derived from it.
func (l *Loader) Load(codingGenes []string, geneTable, curatedFile, clusterFile string) (*Registry, error) {
	return l.cache.Get(func() (*Registry, error) {
		r, err := BuildFromFiles(codingGenes, curatedFile, clusterFile)
		if err != nil {
			return nil, err
		}
		l.logger.Info("built gene set registry",
			zap.Int("sets", len(r.sets)),
			zap.String("clusters", clusterFile))
		return r, nil
	}, geneTable, curatedFile, clusterFile)
}

// Cache exposes the underlying cache for explicit invalidation.
func (l *Loader) Cache() *memo.Cache[*Registry] {
	return l.cache
}
