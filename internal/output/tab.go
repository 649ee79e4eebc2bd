package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-gsea/internal/gsdb"
)

// GeneSetRecord is one gene set table row as written by GeneSetWriter.
type GeneSetRecord struct {
	Collection  string            `json:"collection" yaml:"collection"`
	Name        string            `json:"name" yaml:"name"`
	Active      bool              `json:"active" yaml:"active"`
	N           int               `json:"n" yaml:"n"`
	NConformed  int               `json:"n_conformed" yaml:"n_conformed"`
	Annotations map[string]string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	URL         string            `json:"url,omitempty" yaml:"url,omitempty"`
}

// GeneSetWriter writes the gene set table.
type GeneSetWriter struct {
	w           *bufio.Writer
	format      Format
	annotations []string
	withURL     bool
	records     []GeneSetRecord
}

// NewGeneSetWriter creates a writer. annotationColumns are written as extra
// tab columns in this order; withURL adds a url column.
func NewGeneSetWriter(w io.Writer, format Format, annotationColumns []string, withURL bool) *GeneSetWriter {
	return &GeneSetWriter{
		w:           bufio.NewWriter(w),
		format:      format,
		annotations: annotationColumns,
		withURL:     withURL,
	}
}

// WriteHeader writes the header line. It is a no-op for json and yaml.
func (gw *GeneSetWriter) WriteHeader() error {
	if gw.format != FormatTab {
		return nil
	}
	columns := append([]string{"collection", "name", "active", "N", "n_conformed"}, gw.annotations...)
	if gw.withURL {
		columns = append(columns, "url")
	}
	_, err := gw.w.WriteString(strings.Join(columns, "\t") + "\n")
	return err
}

// Write writes one gene set. url is ignored unless the writer was created
// withURL.
func (gw *GeneSetWriter) Write(gs gsdb.GeneSet, url string) error {
	if !gw.withURL {
		url = ""
	}
	if gw.format != FormatTab {
		gw.records = append(gw.records, GeneSetRecord{
			Collection:  gs.Collection,
			Name:        gs.Name,
			Active:      gs.Active,
			N:           gs.N,
			NConformed:  gs.NConformed,
			Annotations: gs.Annotations,
			URL:         url,
		})
		return nil
	}

	values := []string{
		gs.Collection,
		gs.Name,
		strconv.FormatBool(gs.Active),
		strconv.Itoa(gs.N),
		strconv.Itoa(gs.NConformed),
	}
	for _, c := range gw.annotations {
		values = append(values, orNA(gs.Annotations[c]))
	}
	if gw.withURL {
		values = append(values, orNA(url))
	}
	_, err := gw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush writes buffered json/yaml records and flushes the underlying writer.
func (gw *GeneSetWriter) Flush() error {
	if gw.format != FormatTab {
		records := gw.records
		if records == nil {
			records = []GeneSetRecord{}
		}
		if err := encodeAll(gw.w, gw.format, records); err != nil {
			return err
		}
		gw.records = nil
	}
	return gw.w.Flush()
}

// MemberRecord is one membership row as written by MemberWriter.
type MemberRecord struct {
	Collection string            `json:"collection" yaml:"collection"`
	Name       string            `json:"name" yaml:"name"`
	FeatureID  string            `json:"feature_id" yaml:"feature_id"`
	Extra      map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
	TargetID   string            `json:"target_id,omitempty" yaml:"target_id,omitempty"`
	Index      *int              `json:"index,omitempty" yaml:"index,omitempty"`
}

// MemberWriter writes membership rows.
type MemberWriter struct {
	w         *bufio.Writer
	format    Format
	columns   []string
	conformed bool
	records   []MemberRecord
}

// NewMemberWriter creates a writer. columns are the extra per-row columns;
// conformed adds target_id and index (1-based, "-" when absent) columns.
func NewMemberWriter(w io.Writer, format Format, columns []string, conformed bool) *MemberWriter {
	return &MemberWriter{
		w:         bufio.NewWriter(w),
		format:    format,
		columns:   columns,
		conformed: conformed,
	}
}

// WriteHeader writes the header line. It is a no-op for json and yaml.
func (mw *MemberWriter) WriteHeader() error {
	if mw.format != FormatTab {
		return nil
	}
	columns := append([]string{"collection", "name", "feature_id"}, mw.columns...)
	if mw.conformed {
		columns = append(columns, "target_id", "index")
	}
	_, err := mw.w.WriteString(strings.Join(columns, "\t") + "\n")
	return err
}

// Write writes one member.
func (mw *MemberWriter) Write(m gsdb.Member) error {
	if mw.format != FormatTab {
		rec := MemberRecord{
			Collection: m.Collection,
			Name:       m.Name,
			FeatureID:  m.FeatureID,
			Extra:      m.Extra,
		}
		if mw.conformed {
			rec.TargetID = m.TargetID
			if m.Present() {
				idx := m.Index + 1
				rec.Index = &idx
			}
		}
		mw.records = append(mw.records, rec)
		return nil
	}

	values := []string{m.Collection, m.Name, m.FeatureID}
	for _, c := range mw.columns {
		values = append(values, orNA(m.Extra[c]))
	}
	if mw.conformed {
		index := "-"
		if m.Present() {
			index = strconv.Itoa(m.Index + 1)
		}
		values = append(values, orNA(m.TargetID), index)
	}
	_, err := mw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush writes buffered json/yaml records and flushes the underlying writer.
func (mw *MemberWriter) Flush() error {
	if mw.format != FormatTab {
		records := mw.records
		if records == nil {
			records = []MemberRecord{}
		}
		if err := encodeAll(mw.w, mw.format, records); err != nil {
			return err
		}
		mw.records = nil
	}
	return mw.w.Flush()
}
