package geneset

import (
	"sort"
)

// Required column names for tabular input. Aliases are accepted for the
// feature column.
const (
	ColCollection = "collection"
	ColName       = "name"
	ColFeatureID  = "feature_id"
)

var featureColumnAliases = []string{ColFeatureID, "featureId", "feature", "gene_id"}

// Option configures how a Store is built.
type Option func(*buildOptions)

type buildOptions struct {
	promote     []string
	autoPromote bool
}

// WithPromotedColumns moves the named extra columns from membership rows to
// the gene set level. Each column must hold a single value within every gene
// set.
func WithPromotedColumns(cols ...string) Option {
	return func(o *buildOptions) {
		o.promote = append(o.promote, cols...)
	}
}

// WithAutoPromote promotes every extra column whose value is constant within
// every gene set.
func WithAutoPromote() Option {
	return func(o *buildOptions) {
		o.autoPromote = true
	}
}

// FromRows builds a store from flat membership rows.
func FromRows(rows []Row, opts ...Option) (*Store, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	return normalize(rows, o)
}

// FromTable builds a store from a header and string records. The header must
// contain collection, name and feature_id (or featureId, feature, gene_id);
// every other column becomes an extra column. Empty and "NA" cells are NA.
func FromTable(header []string, records [][]string, opts ...Option) (*Store, error) {
	colIdx, nameIdx, featIdx := -1, -1, -1
	for i, h := range header {
		switch {
		case h == ColCollection:
			colIdx = i
		case h == ColName:
			nameIdx = i
		case featIdx < 0 && isFeatureColumn(h):
			featIdx = i
		}
	}
	switch {
	case colIdx < 0:
		return nil, malformed("missing required column %q", ColCollection)
	case nameIdx < 0:
		return nil, malformed("missing required column %q", ColName)
	case featIdx < 0:
		return nil, malformed("missing required column %q", ColFeatureID)
	}

	rows := make([]Row, 0, len(records))
	for n, rec := range records {
		if len(rec) != len(header) {
			return nil, malformed("record %d has %d fields, want %d", n+1, len(rec), len(header))
		}
		r := Row{
			Collection: rec[colIdx],
			Name:       rec[nameIdx],
			FeatureID:  rec[featIdx],
		}
		for i, h := range header {
			if i == colIdx || i == nameIdx || i == featIdx {
				continue
			}
			if v := rec[i]; v != "" && v != "NA" {
				if r.Extra == nil {
					r.Extra = make(map[string]string)
				}
				r.Extra[h] = v
			}
		}
		rows = append(rows, r)
	}
	return FromRows(rows, opts...)
}

func isFeatureColumn(h string) bool {
	for _, a := range featureColumnAliases {
		if h == a {
			return true
		}
	}
	return false
}

// FromCollections builds a store from collection -> set name -> features.
// Gene sets are ordered by collection then name; feature order is kept.
func FromCollections(sets map[string]map[string][]string, opts ...Option) (*Store, error) {
	collections := make([]string, 0, len(sets))
	for c := range sets {
		collections = append(collections, c)
	}
	sort.Strings(collections)

	var rows []Row
	for _, c := range collections {
		if c == "" {
			return nil, malformed("empty collection name")
		}
		names := make([]string, 0, len(sets[c]))
		for name := range sets[c] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			features := sets[c][name]
			if len(features) == 0 {
				return nil, malformed("gene set %s has no features", Key{c, name})
			}
			for _, f := range features {
				rows = append(rows, Row{Collection: c, Name: name, FeatureID: f})
			}
		}
	}
	return FromRows(rows, opts...)
}

// FromSets builds a store from set name -> features in a single collection.
func FromSets(collection string, sets map[string][]string, opts ...Option) (*Store, error) {
	if collection == "" {
		return nil, malformed("empty collection name")
	}
	return FromCollections(map[string]map[string][]string{collection: sets}, opts...)
}

// Empty returns a store without gene sets. The constructors reject empty
// input; Empty is for restoring a db whose gene sets were all filtered out.
func Empty() *Store {
	s := &Store{}
	s.reindex()
	return s
}

// normalize is the single path every input shape funnels through: it
// validates rows, groups them by gene set in first-seen order, drops
// duplicate features (first occurrence wins) and runs column promotion.
func normalize(rows []Row, o buildOptions) (*Store, error) {
	s := &Store{index: make(map[Key]int)}
	seen := make(map[Key]map[string]bool)
	colSeen := make(map[string]bool)

	for i, r := range rows {
		switch {
		case r.Collection == "":
			return nil, malformed("row %d: empty collection", i+1)
		case r.Name == "":
			return nil, malformed("row %d: empty gene set name", i+1)
		case r.FeatureID == "":
			return nil, malformed("row %d: empty feature id in %s", i+1, r.Key())
		}

		k := r.Key()
		pos, ok := s.index[k]
		if !ok {
			pos = len(s.keys)
			s.index[k] = pos
			s.keys = append(s.keys, k)
			s.members = append(s.members, nil)
			seen[k] = make(map[string]bool)
		}
		if seen[k][r.FeatureID] {
			s.duplicates++
			continue
		}
		seen[k][r.FeatureID] = true

		r.Extra = cloneMap(r.Extra)
		for _, c := range sortedKeys(r.Extra) {
			if !colSeen[c] {
				colSeen[c] = true
				s.columns = append(s.columns, c)
			}
		}
		s.members[pos] = append(s.members[pos], r)
	}

	if len(s.keys) == 0 {
		return nil, malformed("no gene sets")
	}

	if err := s.promote(o); err != nil {
		return nil, err
	}
	s.reindex()
	return s, nil
}

// promote moves set-constant columns from rows to the annotation table.
func (s *Store) promote(o buildOptions) error {
	s.annotations = make([]map[string]string, len(s.keys))

	var cols []string
	for _, c := range o.promote {
		found := false
		for _, have := range s.columns {
			if have == c {
				found = true
				break
			}
		}
		if !found {
			return malformed("promoted column %q is not present", c)
		}
		if k, ok := s.constantColumn(c); !ok {
			return malformed("promoted column %q varies within gene set %s", c, k)
		}
		cols = append(cols, c)
	}
	if o.autoPromote {
		for _, c := range s.columns {
			if _, ok := s.constantColumn(c); ok {
				cols = append(cols, c)
			}
		}
	}
	cols = unionStrings(cols, nil)
	if len(cols) == 0 {
		return nil
	}

	promoted := make(map[string]bool, len(cols))
	for _, c := range cols {
		promoted[c] = true
	}
	for i, rows := range s.members {
		ann := make(map[string]string)
		for _, c := range cols {
			if v, ok := rows[0].Extra[c]; ok {
				ann[c] = v
			}
		}
		s.annotations[i] = ann
		for j := range rows {
			rows[j].Extra = withoutKeys(rows[j].Extra, promoted)
		}
	}

	var kept []string
	for _, c := range s.columns {
		if !promoted[c] {
			kept = append(kept, c)
		}
	}
	s.columns = kept
	s.annotationColumns = cols
	return nil
}

// constantColumn reports whether column c holds one value (or is NA
// throughout) within every gene set. On failure it returns the first
// offending key.
func (s *Store) constantColumn(c string) (Key, bool) {
	for i, rows := range s.members {
		first, firstOK := rows[0].Extra[c]
		for _, r := range rows[1:] {
			v, ok := r.Extra[c]
			if ok != firstOK || v != first {
				return s.keys[i], false
			}
		}
	}
	return Key{}, true
}

func withoutKeys(m map[string]string, drop map[string]bool) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if !drop[k] {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
