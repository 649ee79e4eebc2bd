package geneset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoSetStore(t *testing.T) *Store {
	t.Helper()
	s, err := FromSets("c1", map[string][]string{
		"s1": {"g1", "g2", "g3"},
		"s2": {"g2", "g4"},
	})
	require.NoError(t, err)
	return s
}

func TestFromSets(t *testing.T) {
	s := twoSetStore(t)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 5, s.NumRows())
	assert.Equal(t, []Key{{"c1", "s1"}, {"c1", "s2"}}, s.Keys())
	assert.Equal(t, []string{"g1", "g2", "g3"}, s.FeatureIDs(Key{"c1", "s1"}))
	assert.Equal(t, []string{"c1"}, s.Collections())
	assert.Nil(t, s.FeatureIDs(Key{"c1", "nope"}))
}

func TestFromCollections_Ordering(t *testing.T) {
	s, err := FromCollections(map[string]map[string][]string{
		"reactome": {"b": {"x"}, "a": {"y", "z"}},
		"hallmark": {"h1": {"x", "y"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []Key{
		{"hallmark", "h1"},
		{"reactome", "a"},
		{"reactome", "b"},
	}, s.Keys())
	assert.Equal(t, []string{"hallmark", "reactome"}, s.Collections())
	assert.Equal(t, []string{"x", "y", "z"}, s.Features())
}

func TestMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		build func() (*Store, error)
	}{
		{
			name: "empty gene set",
			build: func() (*Store, error) {
				return FromSets("c1", map[string][]string{"s1": {}})
			},
		},
		{
			name: "empty collection",
			build: func() (*Store, error) {
				return FromSets("", map[string][]string{"s1": {"g1"}})
			},
		},
		{
			name: "empty feature id",
			build: func() (*Store, error) {
				return FromRows([]Row{{Collection: "c1", Name: "s1", FeatureID: ""}})
			},
		},
		{
			name: "no rows",
			build: func() (*Store, error) {
				return FromRows(nil)
			},
		},
		{
			name: "missing feature column",
			build: func() (*Store, error) {
				return FromTable([]string{"collection", "name", "symbol"}, [][]string{{"c1", "s1", "A"}})
			},
		},
		{
			name: "missing collection column",
			build: func() (*Store, error) {
				return FromTable([]string{"name", "feature_id"}, [][]string{{"s1", "g1"}})
			},
		},
		{
			name: "ragged record",
			build: func() (*Store, error) {
				return FromTable([]string{"collection", "name", "feature_id"}, [][]string{{"c1", "s1"}})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			require.Error(t, err)
			var mErr *MalformedInputError
			assert.True(t, errors.As(err, &mErr), "want MalformedInputError, got %T", err)
		})
	}
}

func TestDeduplicationFirstWins(t *testing.T) {
	s, err := FromRows([]Row{
		{Collection: "c1", Name: "s1", FeatureID: "g1", Extra: map[string]string{"symbol": "A"}},
		{Collection: "c1", Name: "s1", FeatureID: "g2", Extra: map[string]string{"symbol": "B"}},
		{Collection: "c1", Name: "s1", FeatureID: "g1", Extra: map[string]string{"symbol": "Z"}},
	})
	require.NoError(t, err)

	rows := s.Rows(Key{"c1", "s1"})
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Extra["symbol"])
	assert.Equal(t, 1, s.Duplicates())
}

func TestFromTable(t *testing.T) {
	header := []string{"collection", "name", "featureId", "symbol", "logFC"}
	records := [][]string{
		{"c1", "s1", "1", "TP53", "1.5"},
		{"c1", "s1", "2", "KRAS", "NA"},
		{"c1", "s2", "2", "KRAS", "-0.3"},
	}
	s, err := FromTable(header, records)
	require.NoError(t, err)

	assert.Equal(t, []string{"logFC", "symbol"}, s.Columns())
	rows := s.Rows(Key{"c1", "s1"})
	require.Len(t, rows, 2)
	assert.Equal(t, "TP53", rows[0].Extra["symbol"])
	_, hasFC := rows[1].Extra["logFC"]
	assert.False(t, hasFC, "NA cells are not stored")
}

func TestRowsAreCopies(t *testing.T) {
	extra := map[string]string{"symbol": "A"}
	s, err := FromRows([]Row{{Collection: "c1", Name: "s1", FeatureID: "g1", Extra: extra}})
	require.NoError(t, err)

	extra["symbol"] = "mutated"
	rows := s.Rows(Key{"c1", "s1"})
	assert.Equal(t, "A", rows[0].Extra["symbol"])

	rows[0].Extra["symbol"] = "also mutated"
	assert.Equal(t, "A", s.Rows(Key{"c1", "s1"})[0].Extra["symbol"])
}

func TestPromotedColumns(t *testing.T) {
	rows := []Row{
		{Collection: "c1", Name: "s1", FeatureID: "g1", Extra: map[string]string{"description": "first", "symbol": "A"}},
		{Collection: "c1", Name: "s1", FeatureID: "g2", Extra: map[string]string{"description": "first", "symbol": "B"}},
		{Collection: "c1", Name: "s2", FeatureID: "g3", Extra: map[string]string{"description": "second", "symbol": "C"}},
	}

	t.Run("explicit", func(t *testing.T) {
		s, err := FromRows(rows, WithPromotedColumns("description"))
		require.NoError(t, err)

		assert.Equal(t, []string{"description"}, s.AnnotationColumns())
		assert.Equal(t, []string{"symbol"}, s.Columns())
		assert.Equal(t, map[string]string{"description": "first"}, s.SetAnnotations(Key{"c1", "s1"}))
		for _, r := range s.Rows(Key{"c1", "s1"}) {
			assert.NotContains(t, r.Extra, "description")
		}
	})

	t.Run("explicit varying column fails", func(t *testing.T) {
		_, err := FromRows(rows, WithPromotedColumns("symbol"))
		var mErr *MalformedInputError
		require.ErrorAs(t, err, &mErr)
		assert.Contains(t, mErr.Message, "symbol")
	})

	t.Run("explicit unknown column fails", func(t *testing.T) {
		_, err := FromRows(rows, WithPromotedColumns("pathway"))
		var mErr *MalformedInputError
		require.ErrorAs(t, err, &mErr)
	})

	t.Run("auto", func(t *testing.T) {
		s, err := FromRows(rows, WithAutoPromote())
		require.NoError(t, err)
		assert.Equal(t, []string{"description"}, s.AnnotationColumns())
	})

	t.Run("off by default", func(t *testing.T) {
		s, err := FromRows(rows)
		require.NoError(t, err)
		assert.Empty(t, s.AnnotationColumns())
		assert.Equal(t, []string{"description", "symbol"}, s.Columns())
	})
}

func TestSubsetByFeatures(t *testing.T) {
	s := twoSetStore(t)

	sub := s.SubsetByFeatures([]string{"g4"})
	assert.Equal(t, []Key{{"c1", "s2"}}, sub.Keys())
	assert.Equal(t, []string{"g2", "g4"}, sub.FeatureIDs(Key{"c1", "s2"}), "membership is not filtered")

	sub = s.SubsetByFeatures([]string{"g2"})
	assert.Equal(t, 2, sub.Len())

	sub = s.SubsetByFeatures([]string{"unknown"})
	assert.Equal(t, 0, sub.Len())
}

func TestKeysWithFeature(t *testing.T) {
	s := twoSetStore(t)
	assert.Equal(t, []Key{{"c1", "s1"}, {"c1", "s2"}}, s.KeysWithFeature("g2"))
	assert.Empty(t, s.KeysWithFeature("g9"))
}

func TestSubset(t *testing.T) {
	s := twoSetStore(t)

	sub := s.Subset([]Key{{"c1", "s2"}, {"c1", "missing"}})
	assert.Equal(t, []Key{{"c1", "s2"}}, sub.Keys())
	assert.False(t, sub.Has(Key{"c1", "s1"}))
	assert.Equal(t, []Key{{"c1", "s2"}}, sub.KeysWithFeature("g2"))

	// Parent is untouched.
	assert.Equal(t, 2, s.Len())
}

func TestMerge(t *testing.T) {
	a := twoSetStore(t)

	t.Run("disjoint", func(t *testing.T) {
		b, err := FromSets("c2", map[string][]string{"t1": {"g9"}})
		require.NoError(t, err)

		m, err := a.Merge(b, false)
		require.NoError(t, err)
		assert.Equal(t, 3, m.Len())
		assert.Equal(t, []string{"c1", "c2"}, m.Collections())
	})

	t.Run("identical duplicate", func(t *testing.T) {
		b, err := FromSets("c1", map[string][]string{"s2": {"g4", "g2"}})
		require.NoError(t, err)

		m, err := a.Merge(b, false)
		require.NoError(t, err)
		assert.Equal(t, 2, m.Len())
	})

	t.Run("collision", func(t *testing.T) {
		b, err := FromSets("c1", map[string][]string{"s2": {"g5"}})
		require.NoError(t, err)

		_, err = a.Merge(b, false)
		var cErr *CollisionError
		require.ErrorAs(t, err, &cErr)
		assert.Equal(t, []Key{{"c1", "s2"}}, cErr.Keys)
	})

	t.Run("overwrite", func(t *testing.T) {
		b, err := FromSets("c1", map[string][]string{"s2": {"g5"}})
		require.NoError(t, err)

		m, err := a.Merge(b, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"g5"}, m.FeatureIDs(Key{"c1", "s2"}))
		assert.Equal(t, []Key{{"c1", "s2"}}, m.KeysWithFeature("g5"))
		assert.Empty(t, m.KeysWithFeature("g4"))
	})
}

func TestEmpty(t *testing.T) {
	s := Empty()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Keys())
	assert.Empty(t, s.Collections())
	assert.Empty(t, s.KeysWithFeature("g1"))

	merged, err := s.Merge(twoSetStore(t), false)
	require.NoError(t, err)
	assert.Equal(t, 2, merged.Len())
}
