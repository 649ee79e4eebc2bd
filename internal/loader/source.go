package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-gsea/internal/geneset"
)

// Source formats.
const (
	FormatGMT   = "gmt"
	FormatTable = "table"
)

// Source is one collection file to load.
type Source struct {
	Path string
	// Collection names the collection of a GMT file. Defaults to the file
	// name without extensions. Ignored for tables, which carry a
	// collection column.
	Collection string
	Format     string // FormatGMT or FormatTable; detected from Path when empty
}

// DetectFormat guesses the format from the file name: .gmt (optionally
// gzipped) is GMT, anything else a membership table.
func DetectFormat(path string) string {
	name := strings.TrimSuffix(strings.ToLower(filepath.Base(path)), ".gz")
	if strings.HasSuffix(name, ".gmt") {
		return FormatGMT
	}
	return FormatTable
}

// CollectionName derives a collection name from a file name, e.g.
// "h.all.v7.5.symbols.gmt.gz" -> "h.all.v7.5.symbols".
func CollectionName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".gz")
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// LoadSources parses every source concurrently and returns their rows
// concatenated in source order, ready for gsdb.FromRows.
func LoadSources(ctx context.Context, sources []Source) ([]geneset.Row, error) {
	results := make([][]geneset.Row, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows, err := loadSource(src)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []geneset.Row
	for _, rows := range results {
		out = append(out, rows...)
	}
	return out, nil
}

func loadSource(src Source) ([]geneset.Row, error) {
	format := src.Format
	if format == "" {
		format = DetectFormat(src.Path)
	}
	switch format {
	case FormatGMT:
		collection := src.Collection
		if collection == "" {
			collection = CollectionName(src.Path)
		}
		return LoadGMT(src.Path, collection)
	case FormatTable:
		header, records, err := LoadTable(src.Path)
		if err != nil {
			return nil, err
		}
		store, err := geneset.FromTable(header, records)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src.Path, err)
		}
		var rows []geneset.Row
		for _, k := range store.Keys() {
			rows = append(rows, store.Rows(k)...)
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("unknown source format %q", format)
	}
}
