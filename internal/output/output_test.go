package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/inodb/vibe-gsea/internal/duckdb"
	"github.com/inodb/vibe-gsea/internal/gsdb"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatTab},
		{"tab", FormatTab},
		{"TSV", FormatTab},
		{"json", FormatJSON},
		{"yml", FormatYAML},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

var hypoxia = gsdb.GeneSet{
	Collection:  "H",
	Name:        "HALLMARK_HYPOXIA",
	Active:      true,
	N:           200,
	NConformed:  187,
	Annotations: map[string]string{"description": "hypoxia"},
}

func TestGeneSetWriter_Tab(t *testing.T) {
	var buf bytes.Buffer
	w := NewGeneSetWriter(&buf, FormatTab, []string{"description", "source"}, true)

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Write(hypoxia, "https://example.org/HALLMARK_HYPOXIA"))
	require.NoError(t, w.Write(gsdb.GeneSet{Collection: "C2", Name: "KEGG_P53", N: 3}, ""))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "collection\tname\tactive\tN\tn_conformed\tdescription\tsource\turl", lines[0])
	assert.Equal(t, "H\tHALLMARK_HYPOXIA\ttrue\t200\t187\thypoxia\t-\thttps://example.org/HALLMARK_HYPOXIA", lines[1])
	assert.Equal(t, "C2\tKEGG_P53\tfalse\t3\t0\t-\t-\t-", lines[2])
}

func TestGeneSetWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	w := NewGeneSetWriter(&buf, FormatJSON, nil, false)

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Write(hypoxia, "ignored"))
	require.NoError(t, w.Flush())

	var got []GeneSetRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "HALLMARK_HYPOXIA", got[0].Name)
	assert.Equal(t, 187, got[0].NConformed)
	assert.Equal(t, "hypoxia", got[0].Annotations["description"])
	assert.Empty(t, got[0].URL)
}

func TestGeneSetWriter_EmptyJSON(t *testing.T) {
	var buf bytes.Buffer
	w := NewGeneSetWriter(&buf, FormatJSON, nil, false)
	require.NoError(t, w.Flush())
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestMemberWriter(t *testing.T) {
	members := []gsdb.Member{
		{Collection: "H", Name: "S1", FeatureID: "7157", Extra: map[string]string{"symbol": "TP53"}, TargetID: "TP53", Index: 0},
		{Collection: "H", Name: "S1", FeatureID: "672", TargetID: "BRCA1", Index: -1},
	}

	t.Run("tab", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewMemberWriter(&buf, FormatTab, []string{"symbol"}, true)
		require.NoError(t, w.WriteHeader())
		for _, m := range members {
			require.NoError(t, w.Write(m))
		}
		require.NoError(t, w.Flush())

		assert.Equal(t,
			"collection\tname\tfeature_id\tsymbol\ttarget_id\tindex\n"+
				"H\tS1\t7157\tTP53\tTP53\t1\n"+
				"H\tS1\t672\t-\tBRCA1\t-\n",
			buf.String())
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewMemberWriter(&buf, FormatYAML, nil, true)
		for _, m := range members {
			require.NoError(t, w.Write(m))
		}
		require.NoError(t, w.Flush())

		var got []MemberRecord
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 2)
		require.NotNil(t, got[0].Index)
		assert.Equal(t, 1, *got[0].Index)
		assert.Nil(t, got[1].Index)
		assert.Equal(t, "TP53", got[0].Extra["symbol"])
	})

	t.Run("unconformed", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewMemberWriter(&buf, FormatTab, nil, false)
		require.NoError(t, w.WriteHeader())
		require.NoError(t, w.Write(members[0]))
		require.NoError(t, w.Flush())
		assert.Equal(t, "collection\tname\tfeature_id\nH\tS1\t7157\n", buf.String())
	})
}

func TestWriteEntriesAndHits(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []duckdb.Entry{
		{ID: "a1", Label: "msigdb", CreatedAt: created, GeneSets: 50, Active: 50},
		{ID: "b2", CreatedAt: created, Conformed: true, MinSize: 15, MaxSize: gsdb.Unbounded, GeneSets: 50, Active: 41},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteEntries(&buf, FormatTab, entries))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "a1\tmsigdb\t2026-03-01T12:00:00Z\tfalse\t-\t50\t50", lines[1])
	assert.Equal(t, "b2\t-\t2026-03-01T12:00:00Z\ttrue\t[15, Inf]\t50\t41", lines[2])

	buf.Reset()
	require.NoError(t, WriteHits(&buf, FormatJSON, []duckdb.Hit{{DBID: "a1", Label: "msigdb", Collection: "H", Name: "S1", Active: true}}))
	assert.Contains(t, buf.String(), `"db_id": "a1"`)
}
