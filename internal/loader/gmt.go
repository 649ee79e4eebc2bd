package loader

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/inodb/vibe-gsea/internal/geneset"
)

// ColDescription is the Extra column holding the GMT description field.
const ColDescription = "description"

// ReadGMT parses a GMT file: one gene set per line as
// name <tab> description <tab> feature1 <tab> feature2 ...
// Every row of a set carries the description in Extra, so it can be
// promoted to a gene set annotation. Blank lines and lines starting with #
// are skipped; empty feature fields are ignored.
func ReadGMT(r io.Reader, collection string) ([]geneset.Row, error) {
	var rows []geneset.Row
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return nil, &ParseError{
				Line:    lineNumber,
				Message: fmt.Sprintf("expected name, description and at least one feature, got %d fields", len(fields)),
			}
		}
		name := strings.TrimSpace(fields[0])
		if name == "" {
			return nil, &ParseError{Line: lineNumber, Message: "empty gene set name"}
		}

		n := 0
		for _, f := range fields[2:] {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			rows = append(rows, geneset.Row{
				Collection: collection,
				Name:       name,
				FeatureID:  f,
				Extra:      map[string]string{ColDescription: fields[1]},
			})
			n++
		}
		if n == 0 {
			return nil, &ParseError{Line: lineNumber, Message: fmt.Sprintf("gene set %q has no features", name)}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gmt: %w", err)
	}
	return rows, nil
}

// LoadGMT reads a GMT file from disk.
func LoadGMT(path, collection string) ([]geneset.Row, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ReadGMT(f, collection)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
