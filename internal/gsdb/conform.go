package gsdb

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/inodb/vibe-gsea/internal/geneset"
)

// Unbounded is the default maximum gene set size.
const Unbounded = math.MaxInt

// Bounds is the inclusive range of conformed sizes an active set must fall in.
type Bounds struct {
	MinSize int
	MaxSize int
}

// DefaultBounds accepts any set with at least one matched feature.
func DefaultBounds() Bounds {
	return Bounds{MinSize: 1, MaxSize: Unbounded}
}

// Contains reports whether n is within the bounds.
func (b Bounds) Contains(n int) bool {
	return n >= b.MinSize && n <= b.MaxSize
}

func (b Bounds) validate() error {
	if b.MinSize < 1 || b.MaxSize < b.MinSize {
		return fmt.Errorf("%w: min %d, max %d", ErrInvalidBounds, b.MinSize, b.MaxSize)
	}
	return nil
}

// ConformOption configures Conform.
type ConformOption func(*conformConfig)

type conformConfig struct {
	bounds     Bounds
	featureMap map[string]string
}

// WithMinSize sets the minimum conformed size of an active set.
func WithMinSize(n int) ConformOption {
	return func(c *conformConfig) {
		c.bounds.MinSize = n
	}
}

// WithMaxSize sets the maximum conformed size of an active set.
func WithMaxSize(n int) ConformOption {
	return func(c *conformConfig) {
		c.bounds.MaxSize = n
	}
}

// WithBounds sets both size bounds.
func WithBounds(b Bounds) ConformOption {
	return func(c *conformConfig) {
		c.bounds = b
	}
}

// WithFeatureMap translates membership features (old id -> new id) before
// they are matched against the universe. Features without a mapping are
// dropped and counted.
func WithFeatureMap(m map[string]string) ConformOption {
	return func(c *conformConfig) {
		c.featureMap = m
	}
}

// conformation is the state cached on a conformed db.
type conformation struct {
	universe   []string
	lookup     map[string]int // feature -> first position in universe
	bounds     Bounds
	featureMap map[string]string
	unmapped   int
	sets       []conformedSet // aligned with the table
}

// conformedSet holds the matched features of one gene set and their
// positions in the universe.
type conformedSet struct {
	features  []string
	positions []int
}

// translate maps a membership feature into universe identifier space.
func (c *conformation) translate(feature string) (string, bool) {
	if c.featureMap == nil {
		return feature, true
	}
	target, ok := c.featureMap[feature]
	return target, ok && target != ""
}

// locate returns the target id of a membership feature and its universe
// position, or -1 when it is unmapped or absent.
func (c *conformation) locate(feature string) (string, int) {
	target, ok := c.translate(feature)
	if !ok {
		return "", -1
	}
	if pos, ok := c.lookup[target]; ok {
		return target, pos
	}
	return target, -1
}

// subset keeps the per-set state of the given table positions.
func (c *conformation) subset(positions []int) *conformation {
	out := *c
	out.sets = make([]conformedSet, len(positions))
	for i, p := range positions {
		out.sets[i] = c.sets[p]
	}
	return &out
}

// Conform intersects every gene set with the universe and returns a new db
// whose table carries NConformed and the bounds-derived Active flag.
// Membership is untouched. The result depends only on membership,
// universe, bounds and feature map, so conforming again is idempotent and
// resets explicit deactivations. An empty intersection is not an error.
func (db *GeneSetDb) Conform(universe []string, opts ...ConformOption) (*GeneSetDb, error) {
	cfg := conformConfig{bounds: DefaultBounds()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.bounds.validate(); err != nil {
		return nil, err
	}

	c := &conformation{
		universe: append([]string(nil), universe...),
		lookup:   make(map[string]int, len(universe)),
		bounds:   cfg.bounds,
		sets:     make([]conformedSet, len(db.table)),
	}
	if cfg.featureMap != nil {
		c.featureMap = make(map[string]string, len(cfg.featureMap))
		for k, v := range cfg.featureMap {
			c.featureMap[k] = v
		}
	}
	for i, f := range universe {
		if _, ok := c.lookup[f]; !ok {
			c.lookup[f] = i
		}
	}

	unmapped := make(map[string]bool)
	table := make([]GeneSet, len(db.table))
	active := 0
	for i, gs := range db.table {
		var cs conformedSet
		seen := make(map[string]bool)
		for _, f := range db.store.FeatureIDs(gs.Key()) {
			target, ok := c.translate(f)
			if !ok {
				unmapped[f] = true
				continue
			}
			if seen[target] {
				continue
			}
			seen[target] = true
			if pos, ok := c.lookup[target]; ok {
				cs.features = append(cs.features, target)
				cs.positions = append(cs.positions, pos)
			}
		}

		gs.NConformed = len(cs.features)
		gs.Active = c.bounds.Contains(gs.NConformed)
		if gs.Active {
			active++
		}
		table[i] = gs
		c.sets[i] = cs
	}
	c.unmapped = len(unmapped)

	if c.unmapped > 0 {
		db.logger.Info("dropped features without a mapping",
			zap.Int("unmapped", c.unmapped))
	}
	db.logger.Debug("conformed gene sets",
		zap.Int("universe", len(c.lookup)),
		zap.Int("active", active),
		zap.Int("inactive", len(table)-active),
		zap.Int("min_size", c.bounds.MinSize),
		zap.Int("max_size", c.bounds.MaxSize))

	return db.derive(db.store, table, db.meta.Clone(), c), nil
}

// Unconform returns a db with conform state removed: every set active and
// NConformed zero.
func (db *GeneSetDb) Unconform() *GeneSetDb {
	return db.derive(db.store, freshTable(db.store), db.meta.Clone(), nil)
}

// IsConformed reports whether the db was conformed to a universe.
func (db *GeneSetDb) IsConformed() bool {
	return db.conformed != nil
}

// ConformInfo summarizes the last conform.
type ConformInfo struct {
	Conformed    bool
	UniverseSize int // distinct identifiers
	Bounds       Bounds
	Unmapped     int // distinct features dropped by the feature map
	Active       int
	Inactive     int
}

// ConformInfo returns a summary of the conform state.
func (db *GeneSetDb) ConformInfo() ConformInfo {
	var info ConformInfo
	for _, gs := range db.table {
		if gs.Active {
			info.Active++
		} else {
			info.Inactive++
		}
	}
	if db.conformed == nil {
		return info
	}
	info.Conformed = true
	info.UniverseSize = len(db.conformed.lookup)
	info.Bounds = db.conformed.bounds
	info.Unmapped = db.conformed.unmapped
	return info
}

// Universe returns the universe the db was conformed to, or nil.
func (db *GeneSetDb) Universe() []string {
	if db.conformed == nil {
		return nil
	}
	return append([]string(nil), db.conformed.universe...)
}

// IndexedSet is the per gene set input handed to enrichment method
// adapters: the positions of the set's matched features in the target
// matrix or statistic vector.
type IndexedSet struct {
	Collection string
	Name       string
	Positions  []int
}

// Key returns the gene set key.
func (s IndexedSet) Key() geneset.Key {
	return geneset.Key{Collection: s.Collection, Name: s.Name}
}

// Indices returns, for every active gene set in table order, the universe
// positions of its matched features.
func (db *GeneSetDb) Indices() ([]IndexedSet, error) {
	if db.conformed == nil {
		return nil, ErrNotConformed
	}
	var out []IndexedSet
	for i, gs := range db.table {
		if !gs.Active {
			continue
		}
		out = append(out, IndexedSet{
			Collection: gs.Collection,
			Name:       gs.Name,
			Positions:  append([]int(nil), db.conformed.sets[i].positions...),
		})
	}
	return out, nil
}
