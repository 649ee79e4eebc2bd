// Package geneset provides the normalized long-form gene set membership table.
//
// A Store holds one row per (collection, name, feature) triple together with
// any extra per-row annotation columns. Stores are immutable after
// construction; every derivation returns a new Store that shares the
// underlying rows.
package geneset

import (
	"sort"
)

// Key identifies a gene set by its collection and name.
type Key struct {
	Collection string
	Name       string
}

// String formats the key as "collection;;name".
func (k Key) String() string {
	return k.Collection + ";;" + k.Name
}

// Row is a single membership row. Extra holds passive per-row annotation
// columns (e.g. symbol, logFC); a column missing from Extra is NA.
type Row struct {
	Collection string
	Name       string
	FeatureID  string
	Extra      map[string]string
}

// Key returns the gene set key of the row.
func (r Row) Key() Key {
	return Key{Collection: r.Collection, Name: r.Name}
}

// Store is the normalized membership table.
type Store struct {
	keys    []Key
	index   map[Key]int
	members [][]Row // aligned with keys

	columns []string // extra columns still carried on rows

	annotationColumns []string
	annotations       []map[string]string // promoted set-level values, aligned with keys

	byFeature  map[string][]int // feature -> positions in keys
	duplicates int
}

// Len returns the number of gene sets.
func (s *Store) Len() int {
	return len(s.keys)
}

// NumRows returns the total number of membership rows.
func (s *Store) NumRows() int {
	n := 0
	for _, m := range s.members {
		n += len(m)
	}
	return n
}

// Duplicates returns how many duplicate (collection, name, feature) rows were
// dropped while the store was built.
func (s *Store) Duplicates() int {
	return s.duplicates
}

// Keys returns the gene set keys in table order.
func (s *Store) Keys() []Key {
	out := make([]Key, len(s.keys))
	copy(out, s.keys)
	return out
}

// Has reports whether the store contains the gene set.
func (s *Store) Has(k Key) bool {
	_, ok := s.index[k]
	return ok
}

// Position returns the table position of a gene set, or -1.
func (s *Store) Position(k Key) int {
	if i, ok := s.index[k]; ok {
		return i
	}
	return -1
}

// Columns returns the names of the extra per-row columns.
func (s *Store) Columns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

// AnnotationColumns returns the names of the promoted set-level columns.
func (s *Store) AnnotationColumns() []string {
	out := make([]string, len(s.annotationColumns))
	copy(out, s.annotationColumns)
	return out
}

// Collections returns the distinct collections in first-seen order.
func (s *Store) Collections() []string {
	seen := make(map[string]bool)
	var out []string
	for _, k := range s.keys {
		if !seen[k.Collection] {
			seen[k.Collection] = true
			out = append(out, k.Collection)
		}
	}
	return out
}

// FeatureIDs returns the features of a gene set in membership order, or nil
// if the set does not exist.
func (s *Store) FeatureIDs(k Key) []string {
	i, ok := s.index[k]
	if !ok {
		return nil
	}
	rows := s.members[i]
	out := make([]string, len(rows))
	for j, r := range rows {
		out[j] = r.FeatureID
	}
	return out
}

// Rows returns copies of the membership rows of a gene set.
func (s *Store) Rows(k Key) []Row {
	i, ok := s.index[k]
	if !ok {
		return nil
	}
	out := make([]Row, len(s.members[i]))
	for j, r := range s.members[i] {
		r.Extra = cloneMap(r.Extra)
		out[j] = r
	}
	return out
}

// SetAnnotations returns the promoted set-level annotation values of a gene set.
func (s *Store) SetAnnotations(k Key) map[string]string {
	i, ok := s.index[k]
	if !ok {
		return nil
	}
	return cloneMap(s.annotations[i])
}

// Features returns every distinct feature in first-seen order.
func (s *Store) Features() []string {
	seen := make(map[string]bool, len(s.byFeature))
	var out []string
	for _, rows := range s.members {
		for _, r := range rows {
			if !seen[r.FeatureID] {
				seen[r.FeatureID] = true
				out = append(out, r.FeatureID)
			}
		}
	}
	return out
}

// KeysWithFeature returns the gene sets that contain a feature.
func (s *Store) KeysWithFeature(feature string) []Key {
	positions := s.byFeature[feature]
	out := make([]Key, len(positions))
	for i, p := range positions {
		out[i] = s.keys[p]
	}
	return out
}

// Filter returns a store with the gene sets for which keep returns true.
// Table order is preserved.
func (s *Store) Filter(keep func(Key) bool) *Store {
	var positions []int
	for i, k := range s.keys {
		if keep(k) {
			positions = append(positions, i)
		}
	}
	return s.derive(positions)
}

// Subset returns a store restricted to the given keys. Unknown keys are
// ignored and table order is preserved.
func (s *Store) Subset(keys []Key) *Store {
	want := make(map[Key]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	return s.Filter(func(k Key) bool { return want[k] })
}

// SubsetByFeatures returns a store with the gene sets that contain at least
// one of the given features. Membership of the retained sets is not filtered.
func (s *Store) SubsetByFeatures(features []string) *Store {
	hit := make(map[int]bool)
	for _, f := range features {
		for _, p := range s.byFeature[f] {
			hit[p] = true
		}
	}
	positions := make([]int, 0, len(hit))
	for p := range hit {
		positions = append(positions, p)
	}
	sort.Ints(positions)
	return s.derive(positions)
}

// derive builds a store over a subset of positions, sharing row data.
func (s *Store) derive(positions []int) *Store {
	out := &Store{
		keys:              make([]Key, len(positions)),
		members:           make([][]Row, len(positions)),
		annotations:       make([]map[string]string, len(positions)),
		columns:           s.columns,
		annotationColumns: s.annotationColumns,
		duplicates:        s.duplicates,
	}
	for i, p := range positions {
		out.keys[i] = s.keys[p]
		out.members[i] = s.members[p]
		out.annotations[i] = s.annotations[p]
	}
	out.reindex()
	return out
}

// reindex rebuilds the key and feature indexes.
func (s *Store) reindex() {
	s.index = make(map[Key]int, len(s.keys))
	s.byFeature = make(map[string][]int)
	for i, k := range s.keys {
		s.index[k] = i
		for _, r := range s.members[i] {
			s.byFeature[r.FeatureID] = append(s.byFeature[r.FeatureID], i)
		}
	}
}

// Merge returns the union of two stores. A gene set present in both with the
// same feature set is kept once; one with a different feature set is a
// collision, reported as a *CollisionError unless overwrite is set, in which
// case other's membership replaces the receiver's.
func (s *Store) Merge(other *Store, overwrite bool) (*Store, error) {
	out := &Store{
		keys:        append([]Key(nil), s.keys...),
		members:     append([][]Row(nil), s.members...),
		annotations: append([]map[string]string(nil), s.annotations...),
		columns:     unionStrings(s.columns, other.columns),
		duplicates:  s.duplicates + other.duplicates,

		annotationColumns: unionStrings(s.annotationColumns, other.annotationColumns),
	}

	var collisions []Key
	for j, k := range other.keys {
		i, exists := s.index[k]
		if !exists {
			out.keys = append(out.keys, k)
			out.members = append(out.members, other.members[j])
			out.annotations = append(out.annotations, other.annotations[j])
			continue
		}
		if sameFeatures(s.members[i], other.members[j]) {
			continue
		}
		if !overwrite {
			collisions = append(collisions, k)
			continue
		}
		out.members[i] = other.members[j]
		out.annotations[i] = other.annotations[j]
	}

	if len(collisions) > 0 {
		return nil, &CollisionError{Keys: collisions}
	}
	out.reindex()
	return out, nil
}

func sameFeatures(a, b []Row) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, r := range a {
		set[r.FeatureID] = true
	}
	for _, r := range b {
		if !set[r.FeatureID] {
			return false
		}
	}
	return true
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
