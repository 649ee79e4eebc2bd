package gsdb

import (
	"fmt"

	"github.com/inodb/vibe-gsea/internal/collection"
	"github.com/inodb/vibe-gsea/internal/geneset"
)

// CollectionMetadata returns a metadata value; a missing variable is
// reported through ok.
func (db *GeneSetDb) CollectionMetadata(collectionName, variable string) (any, bool) {
	return db.meta.Get(collectionName, variable)
}

// CollectionMetadataStrict is CollectionMetadata that fails with
// collection.ErrUnknownCollection when the collection is neither in the
// membership nor in the metadata. A missing variable yields nil.
func (db *GeneSetDb) CollectionMetadataStrict(collectionName, variable string) (any, error) {
	known := db.meta.HasCollection(collectionName)
	for _, c := range db.store.Collections() {
		if c == collectionName {
			known = true
			break
		}
	}
	return db.meta.Lookup(collectionName, variable, !known)
}

// CollectionMetadataEntries returns every metadata entry.
func (db *GeneSetDb) CollectionMetadataEntries() []collection.Entry {
	return db.meta.Entries()
}

// SetCollectionMetadata writes a metadata value in this db only. Without
// collection.WithAllowAdd the (collection, variable) pair must exist.
func (db *GeneSetDb) SetCollectionMetadata(collectionName, variable string, value any, opts ...collection.SetOption) error {
	return db.meta.Set(collectionName, variable, value, opts...)
}

// Organism returns the organism of a collection, or "" when unset.
func (db *GeneSetDb) Organism(collectionName string) string {
	v, _ := db.meta.Get(collectionName, collection.VarOrganism)
	s, _ := v.(string)
	return s
}

// SetOrganism replaces the organism of a collection.
func (db *GeneSetDb) SetOrganism(collectionName, org string) error {
	return db.meta.Set(collectionName, collection.VarOrganism, org)
}

// IDType returns the feature identifier type of a collection, or "" when
// unset.
func (db *GeneSetDb) IDType(collectionName string) collection.IDType {
	v, _ := db.meta.Get(collectionName, collection.VarIDType)
	t, _ := v.(collection.IDType)
	return t
}

// SetIDType replaces the feature identifier type of a collection.
func (db *GeneSetDb) SetIDType(collectionName string, t collection.IDType) error {
	return db.meta.Set(collectionName, collection.VarIDType, t)
}

// URLGenerator returns the URL generator of a collection, or nil.
func (db *GeneSetDb) URLGenerator(collectionName string) collection.URLGenerator {
	v, _ := db.meta.Get(collectionName, collection.VarURLFunction)
	g, _ := v.(collection.URLGenerator)
	return g
}

// SetURLGenerator replaces the URL generator of a collection; nil removes it.
func (db *GeneSetDb) SetURLGenerator(collectionName string, g collection.URLGenerator) error {
	var v any
	if g != nil {
		v = g
	}
	return db.meta.Set(collectionName, collection.VarURLFunction, v)
}

// GeneSetURL returns the link for a gene set; ok is false when its
// collection has no URL generator.
func (db *GeneSetDb) GeneSetURL(collectionName, name string) (string, bool, error) {
	if _, err := db.position(collectionName, name); err != nil {
		return "", false, err
	}
	u, ok := db.meta.ResolveURL(collectionName, name)
	return u, ok, nil
}

// GeneSetURLs returns links for many gene sets in input order, with "" for
// sets whose collection has no URL generator.
func (db *GeneSetDb) GeneSetURLs(keys []geneset.Key) ([]string, error) {
	collections := make([]string, len(keys))
	names := make([]string, len(keys))
	for i, k := range keys {
		collections[i] = k.Collection
		names[i] = k.Name
	}
	urls, err := db.meta.ResolveURLs(collections, names)
	if err != nil {
		return nil, fmt.Errorf("gene set urls: %w", err)
	}
	return urls, nil
}
