package loader

import (
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-gsea/internal/geneset"
)

const sampleGMT = `# hallmark subset
HALLMARK_HYPOXIA	http://www.gsea-msigdb.org/HALLMARK_HYPOXIA	ADM	ADORA2B	AK4

HALLMARK_APOPTOSIS	programmed cell death	CASP3	BAX	
`

func TestReadGMT(t *testing.T) {
	rows, err := ReadGMT(strings.NewReader(sampleGMT), "H")
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, geneset.Row{
		Collection: "H",
		Name:       "HALLMARK_HYPOXIA",
		FeatureID:  "ADM",
		Extra:      map[string]string{ColDescription: "http://www.gsea-msigdb.org/HALLMARK_HYPOXIA"},
	}, rows[0])
	assert.Equal(t, "BAX", rows[4].FeatureID)
	assert.Equal(t, "programmed cell death", rows[4].Extra[ColDescription])

	store, err := geneset.FromRows(rows, geneset.WithPromotedColumns(ColDescription))
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())
	assert.Empty(t, store.Columns())
}

func TestReadGMT_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"too few fields", "s1\tdesc\n", 1},
		{"empty name", "s1\td\tg1\n\td\tg2\n", 2},
		{"no features", "s1\td\t\t\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGMT(strings.NewReader(tt.input), "c1")
			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}

func TestReadTable(t *testing.T) {
	input := "collection\tname\tfeature_id\tsymbol\n" +
		"c1\ts1\t7157\tTP53\n" +
		"c1\ts1\t672\tBRCA1\n"

	header, records, err := ReadTable(strings.NewReader(input), '\t')
	require.NoError(t, err)
	assert.Equal(t, []string{"collection", "name", "feature_id", "symbol"}, header)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"c1", "s1", "672", "BRCA1"}, records[1])

	store, err := geneset.FromTable(header, records)
	require.NoError(t, err)
	assert.Equal(t, []string{"7157", "672"}, store.FeatureIDs(geneset.Key{Collection: "c1", Name: "s1"}))
}

func TestReadTable_CSVAndErrors(t *testing.T) {
	header, records, err := ReadTable(strings.NewReader("collection,name,feature_id\nc1,\"s 1\",g1\n"), ',')
	require.NoError(t, err)
	assert.Len(t, header, 3)
	assert.Equal(t, "s 1", records[0][1])

	_, _, err = ReadTable(strings.NewReader(""), '\t')
	var pe *ParseError
	require.True(t, errors.As(err, &pe))

	_, _, err = ReadTable(strings.NewReader("a\tb\tc\nx\ty\n"), '\t')
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Line)
}

func TestSeparatorFor(t *testing.T) {
	assert.Equal(t, ',', SeparatorFor("sets.csv"))
	assert.Equal(t, ',', SeparatorFor("sets.CSV.gz"))
	assert.Equal(t, '\t', SeparatorFor("sets.tsv"))
	assert.Equal(t, '\t', SeparatorFor("sets.txt.gz"))
}

func TestReadUniverse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"expression matrix", "gene\tS1\tS2\nTP53\t1.2\t3.4\nKRAS\t0.1\t0.2\n", []string{"TP53", "KRAS"}},
		{"ranked list", "TP53\t2.5\nKRAS\t-1e-3\n", []string{"TP53", "KRAS"}},
		{"plain list", "# ids\nTP53\nKRAS\n\nTP53\n", []string{"TP53", "KRAS", "TP53"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadUniverse(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadFeatureMap(t *testing.T) {
	m, err := ReadFeatureMap(strings.NewReader("from\tto\n7157\tTP53\n672\tBRCA1\n7157\tOTHER\n999\t\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"7157": "TP53", "672": "BRCA1", "999": ""}, m)

	_, err = ReadFeatureMap(strings.NewReader("7157\n"))
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 1, pe.Line)
}

func TestReadFeatureMap_LongLine(t *testing.T) {
	long := strings.Repeat("x", 100*1024)
	m, err := ReadFeatureMap(strings.NewReader("7157\tTP53\n" + long + "\tLONG\n"))
	require.NoError(t, err)
	assert.Equal(t, "LONG", m[long])
	assert.Equal(t, "TP53", m["7157"])
}

func TestOpen_Gzip(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "sets.gmt")
	gz := filepath.Join(dir, "sets.gmt.gz")

	require.NoError(t, os.WriteFile(plain, []byte(sampleGMT), 0o644))

	out, err := os.Create(gz)
	require.NoError(t, err)
	zw := gzip.NewWriter(out)
	_, err = zw.Write([]byte(sampleGMT))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	fromPlain, err := LoadGMT(plain, "H")
	require.NoError(t, err)
	fromGzip, err := LoadGMT(gz, "H")
	require.NoError(t, err)
	assert.Equal(t, fromPlain, fromGzip)

	_, err = Open(filepath.Join(dir, "missing.gmt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpen_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	ids, err := LoadUniverse(path)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDetectFormatAndCollectionName(t *testing.T) {
	assert.Equal(t, FormatGMT, DetectFormat("/data/h.all.v7.5.symbols.gmt"))
	assert.Equal(t, FormatGMT, DetectFormat("c2.GMT.gz"))
	assert.Equal(t, FormatTable, DetectFormat("sets.tsv"))

	assert.Equal(t, "h.all.v7.5.symbols", CollectionName("/data/h.all.v7.5.symbols.gmt.gz"))
	assert.Equal(t, "sets", CollectionName("sets.tsv"))
}

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	gmt := filepath.Join(dir, "hallmark.gmt")
	table := filepath.Join(dir, "custom.csv")
	require.NoError(t, os.WriteFile(gmt, []byte(sampleGMT), 0o644))
	require.NoError(t, os.WriteFile(table, []byte("collection,name,feature_id\nmine,s1,TP53\nmine,s1,KRAS\n"), 0o644))

	rows, err := LoadSources(context.Background(), []Source{
		{Path: gmt},
		{Path: table},
		{Path: gmt, Collection: "H"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 12)
	assert.Equal(t, "hallmark", rows[0].Collection)
	assert.Equal(t, "mine", rows[5].Collection)
	assert.Equal(t, "KRAS", rows[6].FeatureID)
	assert.Equal(t, "H", rows[7].Collection)

	_, err = LoadSources(context.Background(), []Source{{Path: filepath.Join(dir, "missing.gmt")}})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadSources(context.Background(), []Source{{Path: gmt, Format: "xml"}})
	assert.Error(t, err)
}
