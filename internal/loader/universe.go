package loader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadUniverse reads feature identifiers from the first column of each line.
// It accepts an expression matrix (header row, then one row per feature), a
// two-column ranked list (.rnk) or a plain one-per-line list. The first line
// is taken as a header when it has more columns and its second field is not
// numeric. Duplicates are kept; conforming resolves them to the first
// position.
func ReadUniverse(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNumber := 0
	first := true
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if first {
			first = false
			if isHeader(fields) {
				continue
			}
		}
		id := strings.TrimSpace(fields[0])
		if id == "" {
			return nil, &ParseError{Line: lineNumber, Message: "empty feature identifier"}
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read universe: %w", err)
	}
	return ids, nil
}

func isHeader(fields []string) bool {
	if len(fields) < 2 {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	return err != nil
}

// ReadFeatureMap reads a two-column "from <tab> to" identifier map. The
// first mapping of a source identifier wins; a header line "from to" (any
// case) is skipped.
func ReadFeatureMap(r io.Reader) (map[string]string, error) {
	m := make(map[string]string)
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
		if len(fields) < 2 {
			return nil, &ParseError{Line: lineNumber, Message: fmt.Sprintf("expected 2 fields, got %d", len(fields))}
		}
		from, to := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
		if lineNumber == 1 && strings.EqualFold(from, "from") && strings.EqualFold(to, "to") {
			continue
		}
		if from == "" {
			return nil, &ParseError{Line: lineNumber, Message: "empty source identifier"}
		}
		if _, ok := m[from]; !ok {
			m[from] = to
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read feature map: %w", err)
	}
	return m, nil
}

// LoadUniverse reads a universe file from disk.
func LoadUniverse(path string) ([]string, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ids, err := ReadUniverse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ids, nil
}

// LoadFeatureMap reads a feature map file from disk.
func LoadFeatureMap(path string) (map[string]string, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := ReadFeatureMap(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
