// Package gsdb provides the GeneSetDb: a collection-aware gene set catalog
// that composes the membership store with collection metadata, keeps a
// gene set level table in step with membership, and conforms the catalog to
// an experiment's feature universe.
package gsdb

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-gsea/internal/collection"
	"github.com/inodb/vibe-gsea/internal/geneset"
)

// GeneSet is one row of the gene set table.
type GeneSet struct {
	Collection  string
	Name        string
	Active      bool
	N           int // distinct features in the original membership
	NConformed  int // features matched by the last conform, 0 before
	Annotations map[string]string
}

// Key returns the gene set key.
func (g GeneSet) Key() geneset.Key {
	return geneset.Key{Collection: g.Collection, Name: g.Name}
}

// Member is one annotated membership row of a gene set.
type Member struct {
	Collection string
	Name       string
	FeatureID  string
	Extra      map[string]string

	// TargetID is the identifier used against the universe (FeatureID
	// unless a feature map was applied; "" when unmapped).
	TargetID string
	// Index is the position of TargetID in the conformed universe, or -1.
	// When a feature map sends several members to one target only the
	// first of them carries the position.
	Index int
}

// Present reports whether the member matched the conformed universe.
func (m Member) Present() bool {
	return m.Index >= 0
}

// GeneSetDb is the gene set catalog. Membership is shared between derived
// dbs and never mutated; each db owns its gene set table and metadata.
type GeneSetDb struct {
	store     *geneset.Store
	table     []GeneSet // aligned with store.Keys()
	meta      *collection.Metadata
	conformed *conformation
	logger    *zap.Logger
}

// Option configures a new GeneSetDb.
type Option func(*config)

type config struct {
	logger   *zap.Logger
	organism string
	idType   collection.IDType
	url      collection.URLGenerator
	build    []geneset.Option
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithOrganism sets the organism of every collection.
func WithOrganism(org string) Option {
	return func(c *config) {
		c.organism = org
	}
}

// WithIDType sets the feature identifier type of every collection.
func WithIDType(t collection.IDType) Option {
	return func(c *config) {
		c.idType = t
	}
}

// WithURLGenerator sets the URL generator of every collection.
func WithURLGenerator(g collection.URLGenerator) Option {
	return func(c *config) {
		c.url = g
	}
}

// WithBuildOptions passes options to the membership store constructor used
// by FromRows, FromTable, FromCollections and FromSets.
func WithBuildOptions(opts ...geneset.Option) Option {
	return func(c *config) {
		c.build = append(c.build, opts...)
	}
}

// New creates a GeneSetDb over a membership store. Every collection gets
// the reserved metadata variables, set from the options or to their
// defaults.
func New(store *geneset.Store, opts ...Option) (*GeneSetDb, error) {
	cfg := newConfig(opts)

	db := &GeneSetDb{
		store:  store,
		table:  freshTable(store),
		meta:   collection.New(),
		logger: cfg.logger,
	}
	for _, c := range store.Collections() {
		db.meta.Defaults(c)
		if cfg.organism != "" {
			if err := db.meta.Set(c, collection.VarOrganism, cfg.organism); err != nil {
				return nil, err
			}
		}
		if cfg.idType != "" {
			if err := db.meta.Set(c, collection.VarIDType, cfg.idType); err != nil {
				return nil, err
			}
		}
		if cfg.url != nil {
			if err := db.meta.Set(c, collection.VarURLFunction, cfg.url); err != nil {
				return nil, err
			}
		}
	}

	db.logger.Debug("created gene set db",
		zap.Int("gene_sets", store.Len()),
		zap.Int("rows", store.NumRows()),
		zap.Int("duplicates_dropped", store.Duplicates()),
		zap.Strings("collections", store.Collections()))
	return db, nil
}

func newConfig(opts []Option) config {
	cfg := config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return cfg
}

// FromRows builds a GeneSetDb from flat membership rows.
func FromRows(rows []geneset.Row, opts ...Option) (*GeneSetDb, error) {
	store, err := geneset.FromRows(rows, newConfig(opts).build...)
	if err != nil {
		return nil, err
	}
	return New(store, opts...)
}

// FromTable builds a GeneSetDb from a header and string records.
func FromTable(header []string, records [][]string, opts ...Option) (*GeneSetDb, error) {
	store, err := geneset.FromTable(header, records, newConfig(opts).build...)
	if err != nil {
		return nil, err
	}
	return New(store, opts...)
}

// FromCollections builds a GeneSetDb from collection -> name -> features.
func FromCollections(sets map[string]map[string][]string, opts ...Option) (*GeneSetDb, error) {
	store, err := geneset.FromCollections(sets, newConfig(opts).build...)
	if err != nil {
		return nil, err
	}
	return New(store, opts...)
}

// FromSets builds a GeneSetDb from name -> features in one collection.
func FromSets(collectionName string, sets map[string][]string, opts ...Option) (*GeneSetDb, error) {
	store, err := geneset.FromSets(collectionName, sets, newConfig(opts).build...)
	if err != nil {
		return nil, err
	}
	return New(store, opts...)
}

// freshTable builds an unconformed gene set table: every set active and
// NConformed zero.
func freshTable(store *geneset.Store) []GeneSet {
	keys := store.Keys()
	table := make([]GeneSet, len(keys))
	for i, k := range keys {
		table[i] = GeneSet{
			Collection:  k.Collection,
			Name:        k.Name,
			Active:      true,
			N:           len(store.FeatureIDs(k)),
			Annotations: store.SetAnnotations(k),
		}
	}
	return table
}

// derive builds a db that shares membership with the receiver.
func (db *GeneSetDb) derive(store *geneset.Store, table []GeneSet, meta *collection.Metadata, c *conformation) *GeneSetDb {
	return &GeneSetDb{
		store:     store,
		table:     table,
		meta:      meta,
		conformed: c,
		logger:    db.logger,
	}
}

// SetLogger sets the logger used by this db and the dbs derived from it.
func (db *GeneSetDb) SetLogger(l *zap.Logger) {
	db.logger = l
}

// Len returns the number of gene sets.
func (db *GeneSetDb) Len() int {
	return len(db.table)
}

// Collections returns the collections in table order.
func (db *GeneSetDb) Collections() []string {
	return db.store.Collections()
}

// Columns returns the extra per-row annotation columns.
func (db *GeneSetDb) Columns() []string {
	return db.store.Columns()
}

// AnnotationColumns returns the promoted gene set level columns.
func (db *GeneSetDb) AnnotationColumns() []string {
	return db.store.AnnotationColumns()
}

// HasGeneSet reports whether the gene set exists.
func (db *GeneSetDb) HasGeneSet(collectionName, name string) bool {
	return db.store.Has(geneset.Key{Collection: collectionName, Name: name})
}

func (db *GeneSetDb) position(collectionName, name string) (int, error) {
	i := db.store.Position(geneset.Key{Collection: collectionName, Name: name})
	if i < 0 {
		return -1, notFound(collectionName, name)
	}
	return i, nil
}

// GeneSets returns the gene set table, optionally restricted to active sets.
func (db *GeneSetDb) GeneSets(activeOnly bool) []GeneSet {
	out := make([]GeneSet, 0, len(db.table))
	for _, gs := range db.table {
		if activeOnly && !gs.Active {
			continue
		}
		gs.Annotations = cloneAnnotations(gs.Annotations)
		out = append(out, gs)
	}
	return out
}

// GeneSetTable returns every row of the gene set table.
func (db *GeneSetDb) GeneSetTable() []GeneSet {
	return db.GeneSets(false)
}

// FeatureIDs returns the features of a gene set. With activeOnly, an
// inactive set yields no features and a conformed set yields only the
// features matched in the universe (in target identifier space).
func (db *GeneSetDb) FeatureIDs(collectionName, name string, activeOnly bool) ([]string, error) {
	i, err := db.position(collectionName, name)
	if err != nil {
		return nil, err
	}
	if !activeOnly {
		return db.store.FeatureIDs(db.table[i].Key()), nil
	}
	if !db.table[i].Active {
		return []string{}, nil
	}
	if db.conformed == nil {
		return db.store.FeatureIDs(db.table[i].Key()), nil
	}
	return append([]string{}, db.conformed.sets[i].features...), nil
}

// AllFeatureIDs returns the distinct features over all gene sets in
// first-seen order, honoring activeOnly as FeatureIDs does.
func (db *GeneSetDb) AllFeatureIDs(activeOnly bool) []string {
	if !activeOnly {
		return db.store.Features()
	}
	seen := make(map[string]bool)
	var out []string
	for _, gs := range db.table {
		ids, _ := db.FeatureIDs(gs.Collection, gs.Name, true)
		for _, f := range ids {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

// GeneSet returns the annotated membership rows of a gene set. With
// activeOnly, an inactive set yields no rows and a conformed set yields only
// the rows that matched the universe, one per matched target, so their count
// is NConformed.
func (db *GeneSetDb) GeneSet(collectionName, name string, activeOnly bool) ([]Member, error) {
	i, err := db.position(collectionName, name)
	if err != nil {
		return nil, err
	}
	gs := db.table[i]
	if activeOnly && !gs.Active {
		return []Member{}, nil
	}

	rows := db.store.Rows(gs.Key())
	out := make([]Member, 0, len(rows))
	matched := make(map[string]bool)
	for _, r := range rows {
		m := Member{
			Collection: r.Collection,
			Name:       r.Name,
			FeatureID:  r.FeatureID,
			Extra:      r.Extra,
			TargetID:   r.FeatureID,
			Index:      -1,
		}
		if db.conformed != nil {
			m.TargetID, m.Index = db.conformed.locate(r.FeatureID)
			// members translated to an already matched target are not counted
			if m.Index >= 0 {
				if matched[m.TargetID] {
					m.Index = -1
				}
				matched[m.TargetID] = true
			}
			if activeOnly && m.Index < 0 {
				continue
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// Members returns the annotated membership rows of every gene set in table
// order: the long-form view of the db.
func (db *GeneSetDb) Members(activeOnly bool) []Member {
	var out []Member
	for _, gs := range db.table {
		m, _ := db.GeneSet(gs.Collection, gs.Name, activeOnly)
		out = append(out, m...)
	}
	return out
}

// AsMap returns collection -> name -> features, honoring activeOnly as
// FeatureIDs does. Inactive sets are omitted when activeOnly is set.
func (db *GeneSetDb) AsMap(activeOnly bool) map[string]map[string][]string {
	out := make(map[string]map[string][]string)
	for _, gs := range db.table {
		if activeOnly && !gs.Active {
			continue
		}
		ids, _ := db.FeatureIDs(gs.Collection, gs.Name, activeOnly)
		if out[gs.Collection] == nil {
			out[gs.Collection] = make(map[string][]string)
		}
		out[gs.Collection][gs.Name] = ids
	}
	return out
}

// SetActive flags a gene set active or inactive in this db only. A
// conformed set whose size is outside the conform bounds cannot be
// activated.
func (db *GeneSetDb) SetActive(collectionName, name string, active bool) error {
	i, err := db.position(collectionName, name)
	if err != nil {
		return err
	}
	if active && db.conformed != nil && !db.conformed.bounds.Contains(db.table[i].NConformed) {
		return fmt.Errorf("%w: %s has %d features, bounds [%d, %d]", ErrOutOfBounds,
			db.table[i].Key(), db.table[i].NConformed, db.conformed.bounds.MinSize, db.conformed.bounds.MaxSize)
	}
	db.table[i].Active = active
	return nil
}

func cloneAnnotations(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
