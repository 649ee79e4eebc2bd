// Package loader reads gene set collections, universes and feature maps from
// text files: GMT, long-form TSV/CSV membership tables, expression matrix
// row names, ranked lists and two-column identifier maps. Plain and gzipped
// files are both accepted.
package loader

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

// File is an opened input. Closing it closes the gzip stream (if any) and
// the underlying file.
type File struct {
	io.Reader
	file       *os.File
	gzipReader *gzip.Reader
}

// Open opens path for reading, decompressing it when it starts with the
// gzip magic bytes. "-" reads from stdin.
func Open(path string) (*File, error) {
	if path == "-" {
		return newFile(os.Stdin, nil)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return newFile(f, f)
}

func newFile(r io.Reader, f *os.File) (*File, error) {
	br := bufio.NewReader(r)
	out := &File{Reader: br, file: f}

	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		out.Close()
		return nil, fmt.Errorf("read header: %w", err)
	}
	// gzip magic number (0x1f, 0x8b)
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		out.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			out.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		out.Reader = out.gzipReader
	}
	return out, nil
}

// Close releases the file.
func (f *File) Close() error {
	if f.gzipReader != nil {
		f.gzipReader.Close()
	}
	if f.file != nil {
		return f.file.Close()
	}
	return nil
}

// ParseError is an input error with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Message)
}
