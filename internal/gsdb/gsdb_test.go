package gsdb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-gsea/internal/collection"
	"github.com/inodb/vibe-gsea/internal/geneset"
)

func twoSetDB(t *testing.T, opts ...Option) *GeneSetDb {
	t.Helper()
	db, err := FromSets("c1", map[string][]string{
		"s1": {"g1", "g2", "g3"},
		"s2": {"g2", "g4"},
	}, opts...)
	require.NoError(t, err)
	return db
}

func TestGeneSets_Unconformed(t *testing.T) {
	db := twoSetDB(t)

	sets := db.GeneSets(false)
	require.Len(t, sets, 2)
	assert.Equal(t, GeneSet{Collection: "c1", Name: "s1", Active: true, N: 3}, sets[0])
	assert.Equal(t, GeneSet{Collection: "c1", Name: "s2", Active: true, N: 2}, sets[1])
	assert.Equal(t, sets, db.GeneSets(true))
	assert.False(t, db.IsConformed())
	assert.Equal(t, 2, db.Len())
}

func TestNew_DefaultMetadata(t *testing.T) {
	db := twoSetDB(t)

	assert.Equal(t, collection.Unknown, db.Organism("c1"))
	assert.Equal(t, collection.IDTypeUnknown, db.IDType("c1"))
	assert.Nil(t, db.URLGenerator("c1"))

	v, ok := db.CollectionMetadata("c1", collection.VarURLFunction)
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestNew_Options(t *testing.T) {
	db := twoSetDB(t,
		WithOrganism("Homo sapiens"),
		WithIDType(collection.IDTypeEntrez),
		WithURLGenerator(collection.MSigDBURL))

	assert.Equal(t, "Homo sapiens", db.Organism("c1"))
	assert.Equal(t, collection.IDTypeEntrez, db.IDType("c1"))
	assert.Equal(t, collection.MSigDBURL, db.URLGenerator("c1"))
}

func TestNew_MalformedInput(t *testing.T) {
	_, err := FromRows([]geneset.Row{{Collection: "c1", Name: "s1"}})
	var malformed *MalformedInputError
	assert.True(t, errors.As(err, &malformed))
}

func TestFeatureIDs(t *testing.T) {
	db := twoSetDB(t)

	ids, err := db.FeatureIDs("c1", "s1", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2", "g3"}, ids)

	_, err = db.FeatureIDs("c1", "nope", false)
	assert.ErrorIs(t, err, ErrGeneSetNotFound)

	assert.Equal(t, []string{"g1", "g2", "g3", "g4"}, db.AllFeatureIDs(false))
}

func TestGeneSet_Members(t *testing.T) {
	db, err := FromRows([]geneset.Row{
		{Collection: "c1", Name: "s1", FeatureID: "g1", Extra: map[string]string{"symbol": "A"}},
		{Collection: "c1", Name: "s1", FeatureID: "g2", Extra: map[string]string{"symbol": "B"}},
	})
	require.NoError(t, err)

	members, err := db.GeneSet("c1", "s1", false)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "g1", members[0].FeatureID)
	assert.Equal(t, "g1", members[0].TargetID)
	assert.Equal(t, "A", members[0].Extra["symbol"])
	assert.False(t, members[0].Present())

	members[0].Extra["symbol"] = "changed"
	again, _ := db.GeneSet("c1", "s1", false)
	assert.Equal(t, "A", again[0].Extra["symbol"])

	assert.Len(t, db.Members(false), 2)
	assert.Equal(t, []string{"symbol"}, db.Columns())
}

func TestAsMap(t *testing.T) {
	db := twoSetDB(t)

	assert.Equal(t, map[string]map[string][]string{
		"c1": {"s1": {"g1", "g2", "g3"}, "s2": {"g2", "g4"}},
	}, db.AsMap(false))

	require.NoError(t, db.SetActive("c1", "s2", false))
	assert.Equal(t, map[string]map[string][]string{
		"c1": {"s1": {"g1", "g2", "g3"}},
	}, db.AsMap(true))
}

func TestSetActive_Unconformed(t *testing.T) {
	db := twoSetDB(t)

	require.NoError(t, db.SetActive("c1", "s1", false))
	assert.Len(t, db.GeneSets(true), 1)

	ids, err := db.FeatureIDs("c1", "s1", true)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)

	members, err := db.GeneSet("c1", "s1", true)
	require.NoError(t, err)
	assert.Empty(t, members)

	require.NoError(t, db.SetActive("c1", "s1", true))
	assert.Len(t, db.GeneSets(true), 2)

	assert.ErrorIs(t, db.SetActive("c1", "nope", true), ErrGeneSetNotFound)
}

func TestGeneSetTableIsACopy(t *testing.T) {
	db, err := FromRows([]geneset.Row{
		{Collection: "c1", Name: "s1", FeatureID: "g1", Extra: map[string]string{"source": "x"}},
	}, WithBuildOptions(geneset.WithPromotedColumns("source")))
	require.NoError(t, err)

	table := db.GeneSetTable()
	table[0].Active = false
	table[0].Annotations["source"] = "changed"

	fresh := db.GeneSetTable()
	assert.True(t, fresh[0].Active)
	assert.Equal(t, "x", fresh[0].Annotations["source"])
	assert.Equal(t, []string{"source"}, db.AnnotationColumns())
}
