package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/inodb/vibe-gsea/internal/geneset"
	"github.com/inodb/vibe-gsea/internal/gsdb"
)

// Entry describes a saved db.
type Entry struct {
	ID        string
	Label     string
	CreatedAt time.Time
	Conformed bool
	MinSize   int
	MaxSize   int
	GeneSets  int
	Active    int
}

// Hit is a gene set that contains a searched feature.
type Hit struct {
	DBID       string
	Label      string
	Collection string
	Name       string
	Active     bool
}

// Save writes db to the catalog under a new id and returns it.
func (s *Store) Save(db *gsdb.GeneSetDb, label string) (string, error) {
	id := uuid.NewString()
	snap := db.Snapshot()

	annCols, err := encodeJSON(snap.AnnotationColumns)
	if err != nil {
		return "", err
	}
	var (
		conformed, hasMap bool
		minSize, maxSize  int64
	)
	if c := snap.Conform; c != nil {
		conformed = true
		minSize, maxSize = int64(c.MinSize), int64(c.MaxSize)
		hasMap = c.FeatureMap != nil
	}
	if _, err := s.db.Exec(`INSERT INTO genesetdbs VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, label, time.Now().UTC(), conformed, minSize, maxSize, hasMap, annCols); err != nil {
		return "", fmt.Errorf("insert gene set db: %w", err)
	}

	if err := s.writeRows(id, db, snap); err != nil {
		if derr := s.Delete(id); derr != nil {
			s.logger.Warn("could not remove partially saved gene set db",
				zap.String("id", id), zap.Error(derr))
		}
		return "", err
	}

	s.logger.Info("saved gene set db",
		zap.String("id", id),
		zap.String("label", label),
		zap.Int("gene_sets", db.Len()),
		zap.Int("rows", len(snap.Rows)))
	return id, nil
}

func (s *Store) writeRows(id string, db *gsdb.GeneSetDb, snap gsdb.Snapshot) error {
	err := s.appendRows("membership", func(a *goduckdb.Appender) error {
		for i, r := range snap.Rows {
			extra, err := encodeJSON(r.Extra)
			if err != nil {
				return err
			}
			if err := a.AppendRow(id, int64(i), r.Collection, r.Name, r.FeatureID, extra); err != nil {
				return fmt.Errorf("append membership row: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	deactivated := make(map[geneset.Key]bool, len(snap.Inactive))
	for _, k := range snap.Inactive {
		deactivated[k] = true
	}
	err = s.appendRows("genesets", func(a *goduckdb.Appender) error {
		for i, gs := range db.GeneSetTable() {
			ann, err := encodeJSON(gs.Annotations)
			if err != nil {
				return err
			}
			if err := a.AppendRow(id, int64(i), gs.Collection, gs.Name, gs.Active,
				int64(gs.N), int64(gs.NConformed), deactivated[gs.Key()], ann); err != nil {
				return fmt.Errorf("append gene set: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = s.appendRows("collection_metadata", func(a *goduckdb.Appender) error {
		for i, mv := range snap.Metadata {
			if err := a.AppendRow(id, int64(i), mv.Collection, mv.Variable, mv.Kind, mv.Value); err != nil {
				return fmt.Errorf("append collection metadata: %w", err)
			}
		}
		return nil
	})
	if err != nil || snap.Conform == nil {
		return err
	}

	err = s.appendRows("universe", func(a *goduckdb.Appender) error {
		for i, f := range snap.Conform.Universe {
			if err := a.AppendRow(id, int64(i), f); err != nil {
				return fmt.Errorf("append universe: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.appendRows("feature_map", func(a *goduckdb.Appender) error {
		from := make([]string, 0, len(snap.Conform.FeatureMap))
		for k := range snap.Conform.FeatureMap {
			from = append(from, k)
		}
		sort.Strings(from)
		for _, k := range from {
			if err := a.AppendRow(id, k, snap.Conform.FeatureMap[k]); err != nil {
				return fmt.Errorf("append feature map: %w", err)
			}
		}
		return nil
	})
}

// appendRows batch-inserts into a table using the Appender API.
func (s *Store) appendRows(table string, fn func(a *goduckdb.Appender) error) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create %s appender: %w", table, err)
	}
	defer appender.Close()

	if err := fn(appender); err != nil {
		return err
	}
	return appender.Flush()
}

// Load rebuilds a saved db. opts are passed to gsdb.FromSnapshot.
func (s *Store) Load(id string, opts ...gsdb.Option) (*gsdb.GeneSetDb, error) {
	var (
		conformed, hasMap bool
		minSize, maxSize  int64
		annCols           sql.NullString
	)
	err := s.db.QueryRow(`SELECT conformed, min_size, max_size, has_feature_map, annotation_columns
		FROM genesetdbs WHERE id=?`, id).Scan(&conformed, &minSize, &maxSize, &hasMap, &annCols)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query gene set db: %w", err)
	}

	var snap gsdb.Snapshot
	if err := decodeJSON(annCols, &snap.AnnotationColumns); err != nil {
		return nil, err
	}
	if snap.Rows, err = s.loadMembership(id); err != nil {
		return nil, err
	}
	if snap.Inactive, err = s.loadDeactivated(id); err != nil {
		return nil, err
	}
	if snap.Metadata, err = s.loadMetadata(id); err != nil {
		return nil, err
	}
	if conformed {
		snap.Conform = &gsdb.ConformState{MinSize: int(minSize), MaxSize: int(maxSize)}
		if snap.Conform.Universe, err = s.loadUniverse(id); err != nil {
			return nil, err
		}
		if hasMap {
			if snap.Conform.FeatureMap, err = s.loadFeatureMap(id); err != nil {
				return nil, err
			}
		}
	}

	db, err := gsdb.FromSnapshot(snap, opts...)
	if err != nil {
		return nil, fmt.Errorf("restore gene set db %s: %w", id, err)
	}
	return db, nil
}

func (s *Store) loadMembership(id string) ([]geneset.Row, error) {
	rows, err := s.db.Query(`SELECT collection, name, feature_id, extra
		FROM membership WHERE db_id=? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query membership: %w", err)
	}
	defer rows.Close()

	var out []geneset.Row
	for rows.Next() {
		var r geneset.Row
		var extra sql.NullString
		if err := rows.Scan(&r.Collection, &r.Name, &r.FeatureID, &extra); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		if err := decodeJSON(extra, &r.Extra); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate membership: %w", err)
	}
	return out, nil
}

func (s *Store) loadDeactivated(id string) ([]geneset.Key, error) {
	rows, err := s.db.Query(`SELECT collection, name
		FROM genesets WHERE db_id=? AND deactivated ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query gene sets: %w", err)
	}
	defer rows.Close()

	var out []geneset.Key
	for rows.Next() {
		var k geneset.Key
		if err := rows.Scan(&k.Collection, &k.Name); err != nil {
			return nil, fmt.Errorf("scan gene set: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gene sets: %w", err)
	}
	return out, nil
}

func (s *Store) loadMetadata(id string) ([]gsdb.MetadataValue, error) {
	rows, err := s.db.Query(`SELECT collection, variable, kind, value
		FROM collection_metadata WHERE db_id=? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query collection metadata: %w", err)
	}
	defer rows.Close()

	var out []gsdb.MetadataValue
	for rows.Next() {
		var mv gsdb.MetadataValue
		if err := rows.Scan(&mv.Collection, &mv.Variable, &mv.Kind, &mv.Value); err != nil {
			return nil, fmt.Errorf("scan collection metadata: %w", err)
		}
		out = append(out, mv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection metadata: %w", err)
	}
	return out, nil
}

func (s *Store) loadUniverse(id string) ([]string, error) {
	rows, err := s.db.Query(`SELECT feature_id FROM universe WHERE db_id=? ORDER BY pos`, id)
	if err != nil {
		return nil, fmt.Errorf("query universe: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("scan universe: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate universe: %w", err)
	}
	return out, nil
}

func (s *Store) loadFeatureMap(id string) (map[string]string, error) {
	rows, err := s.db.Query(`SELECT from_id, to_id FROM feature_map WHERE db_id=?`, id)
	if err != nil {
		return nil, fmt.Errorf("query feature map: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var from, to string
		if err := rows.Scan(&from, &to); err != nil {
			return nil, fmt.Errorf("scan feature map: %w", err)
		}
		out[from] = to
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature map: %w", err)
	}
	return out, nil
}

// List returns every saved db, oldest first.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query(`SELECT
		d.id, d.label, d.created_at, d.conformed, d.min_size, d.max_size,
		(SELECT COUNT(*) FROM genesets g WHERE g.db_id = d.id),
		(SELECT COUNT(*) FROM genesets g WHERE g.db_id = d.id AND g.active)
		FROM genesetdbs d
		ORDER BY d.created_at, d.id`)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var minSize, maxSize, n, active int64
		if err := rows.Scan(&e.ID, &e.Label, &e.CreatedAt, &e.Conformed,
			&minSize, &maxSize, &n, &active); err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		e.MinSize, e.MaxSize = int(minSize), int(maxSize)
		e.GeneSets, e.Active = int(n), int(active)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog: %w", err)
	}
	return out, nil
}

// Resolve finds a saved db by exact id, unique id prefix, or label (the
// most recent db with that label).
func (s *Store) Resolve(ref string) (string, error) {
	entries, err := s.List()
	if err != nil {
		return "", err
	}

	var prefixed []string
	labelled := ""
	for _, e := range entries {
		if e.ID == ref {
			return e.ID, nil
		}
		if strings.HasPrefix(e.ID, ref) {
			prefixed = append(prefixed, e.ID)
		}
		if e.Label == ref {
			labelled = e.ID
		}
	}
	switch {
	case len(prefixed) == 1:
		return prefixed[0], nil
	case len(prefixed) > 1:
		return "", fmt.Errorf("ambiguous gene set db reference %q matches %d ids", ref, len(prefixed))
	case labelled != "":
		return labelled, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
}

// Delete removes a saved db.
func (s *Store) Delete(id string) error {
	for _, table := range dataTables {
		if _, err := s.db.Exec("DELETE FROM "+table+" WHERE db_id=?", id); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	res, err := s.db.Exec("DELETE FROM genesetdbs WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete gene set db: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// SearchByFeature returns every saved gene set whose membership contains
// the feature, across all dbs.
func (s *Store) SearchByFeature(featureID string) ([]Hit, error) {
	rows, err := s.db.Query(`SELECT DISTINCT
		d.id, d.label, d.created_at, g.seq, g.collection, g.name, g.active
		FROM membership m
		JOIN genesetdbs d ON d.id = m.db_id
		JOIN genesets g ON g.db_id = m.db_id AND g.collection = m.collection AND g.name = m.name
		WHERE m.feature_id=?
		ORDER BY d.created_at, d.id, g.seq`, featureID)
	if err != nil {
		return nil, fmt.Errorf("query by feature: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var created time.Time
		var seq int64
		if err := rows.Scan(&h.DBID, &h.Label, &created, &seq, &h.Collection, &h.Name, &h.Active); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hits: %w", err)
	}
	return hits, nil
}

// encodeJSON encodes v, storing NULL for empty values.
func encodeJSON[T any](v T) (any, error) {
	switch x := any(v).(type) {
	case map[string]string:
		if len(x) == 0 {
			return nil, nil
		}
	case []string:
		if len(x) == 0 {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return string(b), nil
}

func decodeJSON(s sql.NullString, v any) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s.String), v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}
