package gsdb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-gsea/internal/collection"
	"github.com/inodb/vibe-gsea/internal/geneset"
)

func TestCollectionMetadata(t *testing.T) {
	db := twoSetDB(t)

	require.NoError(t, db.SetOrganism("c1", "human"))
	v, ok := db.CollectionMetadata("c1", collection.VarOrganism)
	require.True(t, ok)
	assert.Equal(t, "human", v)

	require.NoError(t, db.SetCollectionMetadata("c1", "foo", "bar", collection.WithAllowAdd()))
	v, ok = db.CollectionMetadata("c1", "foo")
	require.True(t, ok)
	assert.Equal(t, "bar", v)

	err := db.SetCollectionMetadata("c1", "baz", "qux")
	var unknown *UnknownMetadataKeyError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "baz", unknown.Variable)
	_, ok = db.CollectionMetadata("c1", "baz")
	assert.False(t, ok)
}

func TestCollectionMetadata_Validation(t *testing.T) {
	db := twoSetDB(t)

	var invalid *ValidationError
	assert.True(t, errors.As(db.SetOrganism("c1", ""), &invalid))
	assert.True(t, errors.As(db.SetCollectionMetadata("c1", collection.VarIDType, "entrez"), &invalid))
	assert.Equal(t, collection.Unknown, db.Organism("c1"))

	require.NoError(t, db.SetIDType("c1", collection.IDTypeSymbol))
	assert.Equal(t, collection.IDTypeSymbol, db.IDType("c1"))
}

func TestCollectionMetadataStrict(t *testing.T) {
	db := twoSetDB(t)

	v, err := db.CollectionMetadataStrict("c1", "missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = db.CollectionMetadataStrict("nope", collection.VarOrganism)
	assert.ErrorIs(t, err, collection.ErrUnknownCollection)

	v, _ = db.CollectionMetadata("nope", collection.VarOrganism)
	assert.Nil(t, v)
}

func TestGeneSetURL(t *testing.T) {
	db := twoCollectionDB(t)
	require.NoError(t, db.SetURLGenerator("hallmark", collection.URLTemplate("https://example.org/{collection}/{name}")))

	u, ok, err := db.GeneSetURL("hallmark", "h1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://example.org/hallmark/h1", u)

	_, ok, err = db.GeneSetURL("reactome", "r1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = db.GeneSetURL("reactome", "nope")
	assert.ErrorIs(t, err, ErrGeneSetNotFound)

	var calls []string
	require.NoError(t, db.SetURLGenerator("reactome", collection.URLFunc(func(c, n string) string {
		calls = append(calls, n)
		return "r:" + n
	})))
	urls, err := db.GeneSetURLs([]geneset.Key{
		{Collection: "reactome", Name: "r1"},
		{Collection: "hallmark", Name: "h2"},
		{Collection: "other", Name: "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"r:r1", "https://example.org/hallmark/h2", ""}, urls)
	assert.Equal(t, []string{"r1"}, calls)

	require.NoError(t, db.SetURLGenerator("reactome", nil))
	assert.Nil(t, db.URLGenerator("reactome"))
}
