package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ReadTable reads a delimited membership table: a header line followed by
// records with the same number of fields. The result feeds
// geneset.FromTable.
func ReadTable(r io.Reader, sep rune) (header []string, records [][]string, err error) {
	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.Comment = '#'
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err = cr.Read()
	if err == io.EOF {
		return nil, nil, &ParseError{Line: 1, Message: "no header line found"}
	}
	if err != nil {
		return nil, nil, tableError(err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, tableError(err)
		}
		records = append(records, rec)
	}
	return header, records, nil
}

func tableError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Message: pe.Err.Error()}
	}
	return fmt.Errorf("read table: %w", err)
}

// SeparatorFor picks the field separator from a file name: comma for .csv
// (optionally gzipped), tab otherwise.
func SeparatorFor(path string) rune {
	ext := filepath.Ext(strings.TrimSuffix(strings.ToLower(path), ".gz"))
	if ext == ".csv" {
		return ','
	}
	return '\t'
}

// LoadTable reads a membership table from disk.
func LoadTable(path string) ([]string, [][]string, error) {
	f, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	header, records, err := ReadTable(f, SeparatorFor(path))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return header, records, nil
}
