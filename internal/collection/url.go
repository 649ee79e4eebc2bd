package collection

import (
	"fmt"
	"net/url"
	"strings"
)

// URLGenerator builds a link for a gene set.
type URLGenerator interface {
	URL(collection, name string) string
}

// URLFunc adapts a closure to URLGenerator. Closures are kept in memory
// only and are not persisted.
type URLFunc func(collection, name string) string

// URL calls f.
func (f URLFunc) URL(collection, name string) string {
	return f(collection, name)
}

// URLTemplate is a persistable URLGenerator: the {collection} and {name}
// placeholders are replaced by the path-escaped values.
type URLTemplate string

// URL expands the template.
func (t URLTemplate) URL(collection, name string) string {
	return strings.NewReplacer(
		"{collection}", url.PathEscape(collection),
		"{name}", url.PathEscape(name),
	).Replace(string(t))
}

// MSigDBURL links gene sets to their MSigDB card.
const MSigDBURL URLTemplate = "https://www.gsea-msigdb.org/gsea/msigdb/cards/{name}"

// ResolveURL returns the link for one gene set, or ok=false when the
// collection has no URL generator.
func (m *Metadata) ResolveURL(collection, name string) (string, bool) {
	gen := m.urlGenerator(collection)
	if gen == nil {
		return "", false
	}
	return gen.URL(collection, name), true
}

// ResolveURLs resolves links for parallel collection and name slices. Each
// collection's generator is looked up once; output order follows input
// order, with "" for gene sets whose collection has no generator.
func (m *Metadata) ResolveURLs(collections, names []string) ([]string, error) {
	if len(collections) != len(names) {
		return nil, fmt.Errorf("resolve urls: %d collections but %d names", len(collections), len(names))
	}

	groups := make(map[string][]int)
	var order []string
	for i, c := range collections {
		if _, ok := groups[c]; !ok {
			order = append(order, c)
		}
		groups[c] = append(groups[c], i)
	}

	out := make([]string, len(names))
	for _, c := range order {
		gen := m.urlGenerator(c)
		if gen == nil {
			continue
		}
		for _, i := range groups[c] {
			out[i] = gen.URL(c, names[i])
		}
	}
	return out, nil
}

func (m *Metadata) urlGenerator(collection string) URLGenerator {
	v, ok := m.Get(collection, VarURLFunction)
	if !ok || v == nil {
		return nil
	}
	gen, _ := v.(URLGenerator)
	return gen
}
