package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/inodb/vibe-gsea/internal/duckdb"
	"github.com/inodb/vibe-gsea/internal/gsdb"
)

type entryRecord struct {
	ID        string    `json:"id" yaml:"id"`
	Label     string    `json:"label" yaml:"label"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Conformed bool      `json:"conformed" yaml:"conformed"`
	MinSize   int       `json:"min_size,omitempty" yaml:"min_size,omitempty"`
	MaxSize   *int      `json:"max_size,omitempty" yaml:"max_size,omitempty"`
	GeneSets  int       `json:"gene_sets" yaml:"gene_sets"`
	Active    int       `json:"active" yaml:"active"`
}

// WriteEntries writes the catalog listing.
func WriteEntries(w io.Writer, format Format, entries []duckdb.Entry) error {
	if format != FormatTab {
		records := make([]entryRecord, 0, len(entries))
		for _, e := range entries {
			rec := entryRecord{
				ID: e.ID, Label: e.Label, CreatedAt: e.CreatedAt, Conformed: e.Conformed,
				MinSize: e.MinSize, GeneSets: e.GeneSets, Active: e.Active,
			}
			if e.Conformed && e.MaxSize != gsdb.Unbounded {
				maxSize := e.MaxSize
				rec.MaxSize = &maxSize
			}
			records = append(records, rec)
		}
		return encodeAll(w, format, records)
	}

	bw := bufio.NewWriter(w)
	bw.WriteString("id\tlabel\tcreated_at\tconformed\tbounds\tgene_sets\tactive\n")
	for _, e := range entries {
		bounds := "-"
		if e.Conformed {
			bounds = "[" + strconv.Itoa(e.MinSize) + ", " + formatMax(e.MaxSize) + "]"
		}
		bw.WriteString(strings.Join([]string{
			e.ID,
			orNA(e.Label),
			e.CreatedAt.UTC().Format(time.RFC3339),
			strconv.FormatBool(e.Conformed),
			bounds,
			strconv.Itoa(e.GeneSets),
			strconv.Itoa(e.Active),
		}, "\t") + "\n")
	}
	return bw.Flush()
}

func formatMax(n int) string {
	if n == gsdb.Unbounded {
		return "Inf"
	}
	return strconv.Itoa(n)
}

type hitRecord struct {
	DBID       string `json:"db_id" yaml:"db_id"`
	Label      string `json:"label" yaml:"label"`
	Collection string `json:"collection" yaml:"collection"`
	Name       string `json:"name" yaml:"name"`
	Active     bool   `json:"active" yaml:"active"`
}

// WriteHits writes feature search results.
func WriteHits(w io.Writer, format Format, hits []duckdb.Hit) error {
	if format != FormatTab {
		records := make([]hitRecord, 0, len(hits))
		for _, h := range hits {
			records = append(records, hitRecord(h))
		}
		return encodeAll(w, format, records)
	}

	bw := bufio.NewWriter(w)
	bw.WriteString("db_id\tlabel\tcollection\tname\tactive\n")
	for _, h := range hits {
		bw.WriteString(strings.Join([]string{
			h.DBID, orNA(h.Label), h.Collection, h.Name, strconv.FormatBool(h.Active),
		}, "\t") + "\n")
	}
	return bw.Flush()
}
