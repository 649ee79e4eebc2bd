package gsdb

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-gsea/internal/collection"
	"github.com/inodb/vibe-gsea/internal/geneset"
)

// Metadata value kinds that survive a snapshot.
const (
	KindNone        = "none"
	KindString      = "string"
	KindIDType      = "id_type"
	KindURLTemplate = "url_template"
)

// Snapshot is the serializable form of a GeneSetDb. Rows carry promoted
// annotation values in Extra so the store can be rebuilt with the same
// promotion. URL closures and non-string metadata values are not kept.
type Snapshot struct {
	Rows              []geneset.Row
	AnnotationColumns []string
	Inactive          []geneset.Key // explicitly deactivated sets
	Metadata          []MetadataValue
	Conform           *ConformState
}

// MetadataValue is a metadata entry with its value in text form.
type MetadataValue struct {
	Collection string
	Variable   string
	Kind       string
	Value      string
}

// ConformState is what is needed to conform a restored db again.
type ConformState struct {
	Universe   []string
	MinSize    int
	MaxSize    int
	FeatureMap map[string]string
}

// Snapshot exports the db. Explicit deactivations are recorded as the
// inactive sets that the bounds alone would have kept active.
func (db *GeneSetDb) Snapshot() Snapshot {
	var s Snapshot
	used := make(map[string]bool)

	for _, gs := range db.table {
		ann := db.store.SetAnnotations(gs.Key())
		for k := range ann {
			used[k] = true
		}
		for _, r := range db.store.Rows(gs.Key()) {
			if len(ann) > 0 {
				if r.Extra == nil {
					r.Extra = make(map[string]string, len(ann))
				}
				for k, v := range ann {
					r.Extra[k] = v
				}
			}
			s.Rows = append(s.Rows, r)
		}

		boundsActive := true
		if db.conformed != nil {
			boundsActive = db.conformed.bounds.Contains(gs.NConformed)
		}
		if !gs.Active && boundsActive {
			s.Inactive = append(s.Inactive, gs.Key())
		}
	}

	for _, c := range db.store.AnnotationColumns() {
		if used[c] {
			s.AnnotationColumns = append(s.AnnotationColumns, c)
		}
	}

	for _, e := range db.meta.Entries() {
		mv := MetadataValue{Collection: e.Collection, Variable: e.Variable}
		switch v := e.Value.(type) {
		case nil:
			mv.Kind = KindNone
		case collection.IDType:
			mv.Kind, mv.Value = KindIDType, string(v)
		case collection.URLTemplate:
			mv.Kind, mv.Value = KindURLTemplate, string(v)
		case string:
			mv.Kind, mv.Value = KindString, v
		default:
			db.logger.Warn("metadata value is not serializable, skipping",
				zap.String("collection", e.Collection),
				zap.String("variable", e.Variable),
				zap.String("type", fmt.Sprintf("%T", v)))
			continue
		}
		s.Metadata = append(s.Metadata, mv)
	}

	if c := db.conformed; c != nil {
		s.Conform = &ConformState{
			Universe:   append([]string(nil), c.universe...),
			MinSize:    c.bounds.MinSize,
			MaxSize:    c.bounds.MaxSize,
			FeatureMap: c.featureMap,
		}
	}
	return s
}

// FromSnapshot rebuilds a db: membership and promotion, metadata, then the
// conform (if any) and the explicit deactivations.
func FromSnapshot(s Snapshot, opts ...Option) (*GeneSetDb, error) {
	store := geneset.Empty()
	if len(s.Rows) > 0 {
		var err error
		store, err = geneset.FromRows(s.Rows, geneset.WithPromotedColumns(s.AnnotationColumns...))
		if err != nil {
			return nil, fmt.Errorf("restore membership: %w", err)
		}
	}
	db, err := New(store, opts...)
	if err != nil {
		return nil, err
	}

	for _, mv := range s.Metadata {
		var v any
		switch mv.Kind {
		case KindNone:
		case KindIDType:
			v = collection.IDType(mv.Value)
		case KindURLTemplate:
			v = collection.URLTemplate(mv.Value)
		case KindString:
			v = mv.Value
		default:
			return nil, fmt.Errorf("restore metadata %s/%s: unknown kind %q", mv.Collection, mv.Variable, mv.Kind)
		}
		if err := db.meta.Set(mv.Collection, mv.Variable, v, collection.WithAllowAdd()); err != nil {
			return nil, fmt.Errorf("restore metadata: %w", err)
		}
	}

	if c := s.Conform; c != nil {
		db, err = db.Conform(c.Universe,
			WithBounds(Bounds{MinSize: c.MinSize, MaxSize: c.MaxSize}),
			WithFeatureMap(c.FeatureMap))
		if err != nil {
			return nil, fmt.Errorf("restore conform: %w", err)
		}
	}

	for _, k := range s.Inactive {
		if err := db.SetActive(k.Collection, k.Name, false); err != nil {
			return nil, fmt.Errorf("restore deactivation: %w", err)
		}
	}
	return db, nil
}
