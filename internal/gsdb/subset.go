package gsdb

import (
	"go.uber.org/zap"

	"github.com/inodb/vibe-gsea/internal/collection"
	"github.com/inodb/vibe-gsea/internal/geneset"
)

// Subset returns a db with the gene sets whose entry in keep is true. keep
// is indexed like GeneSetTable() and must have one entry per gene set.
func (db *GeneSetDb) Subset(keep []bool) (*GeneSetDb, error) {
	if len(keep) != len(db.table) {
		return nil, &DimensionMismatchError{Got: len(keep), Want: len(db.table)}
	}
	var positions []int
	for i, k := range keep {
		if k {
			positions = append(positions, i)
		}
	}
	return db.subsetPositions(positions), nil
}

// SubsetFunc returns a db with the gene sets for which pred returns true.
func (db *GeneSetDb) SubsetFunc(pred func(GeneSet) bool) *GeneSetDb {
	var positions []int
	for i, gs := range db.table {
		if pred(gs) {
			positions = append(positions, i)
		}
	}
	return db.subsetPositions(positions)
}

// SubsetByFeatures returns a db with the gene sets that contain at least one
// of the given features. Membership of the retained sets is not filtered.
func (db *GeneSetDb) SubsetByFeatures(features []string) *GeneSetDb {
	sub := db.store.SubsetByFeatures(features)
	positions := make([]int, 0, sub.Len())
	for _, k := range sub.Keys() {
		positions = append(positions, db.store.Position(k))
	}
	return db.subsetPositions(positions)
}

// subsetPositions keeps the table rows at ascending positions, along with
// their membership and conform state. Metadata is dropped for collections
// whose gene sets were all removed; collections added to the metadata
// without membership are kept.
func (db *GeneSetDb) subsetPositions(positions []int) *GeneSetDb {
	keys := make([]geneset.Key, len(positions))
	table := make([]GeneSet, len(positions))
	for i, p := range positions {
		keys[i] = db.table[p].Key()
		table[i] = db.table[p]
	}
	store := db.store.Subset(keys)

	meta := db.meta.Clone()
	remaining := make(map[string]bool)
	for _, c := range store.Collections() {
		remaining[c] = true
	}
	// collections that only exist in the metadata are kept
	for _, c := range db.store.Collections() {
		if !remaining[c] {
			meta.Delete(c)
		}
	}

	var c *conformation
	if db.conformed != nil {
		c = db.conformed.subset(positions)
	}
	return db.derive(store, table, meta, c)
}

// AppendOption configures Append.
type AppendOption func(*appendConfig)

type appendConfig struct {
	overwrite bool
}

// WithOverwrite lets the appended db replace gene sets and metadata values
// that collide with the receiver's.
func WithOverwrite() AppendOption {
	return func(c *appendConfig) {
		c.overwrite = true
	}
}

// Append returns the union of two dbs. Gene sets present in both with the
// same features are kept once; different features fail with a
// *CollisionError unless WithOverwrite is given. Metadata is merged, the
// receiver's values winning unless overwriting. The result is unconformed.
func (db *GeneSetDb) Append(other *GeneSetDb, opts ...AppendOption) (*GeneSetDb, error) {
	var cfg appendConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	store, err := db.store.Merge(other.store, cfg.overwrite)
	if err != nil {
		return nil, err
	}

	meta := db.meta.Clone()
	for _, e := range other.meta.Entries() {
		if _, exists := meta.Get(e.Collection, e.Variable); exists && !cfg.overwrite {
			continue
		}
		if err := meta.Set(e.Collection, e.Variable, e.Value, collection.WithAllowAdd()); err != nil {
			return nil, err
		}
	}
	for _, c := range store.Collections() {
		meta.Defaults(c)
	}

	if db.conformed != nil || other.conformed != nil {
		db.logger.Debug("appended db is unconformed; conform it again before scoring",
			zap.Int("gene_sets", store.Len()))
	}
	return db.derive(store, freshTable(store), meta, nil), nil
}
