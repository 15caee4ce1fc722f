// Package dataset reads and writes line-delimited BSON document files.
// Each non-empty line holds one MongoDB Extended JSON document. Paths
// ending in ".zst" are zstd-compressed on disk.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	// ErrNotFound is returned when a dataset path does not exist.
	ErrNotFound = errors.New("dataset not found")
	// ErrIO is returned for read and write failures other than a
	// missing path.
	ErrIO = errors.New("dataset i/o failure")

	errMalformedLine = errors.New("line is not a single JSON document")
)

// Document is one ordered BSON document.
type Document = bson.D

// Dataset is an ordered, load-once collection of documents.
type Dataset []Document

// ParseError reports a line that is not a well-formed document.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s line %d: %v", e.Path, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// LoadText returns the whole content of path as text.
func LoadText(path string) (string, error) {
	r, closeFn, err := open(path)
	if err != nil {
		return "", err
	}
	defer closeFn()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read %s: %w: %w", path, ErrIO, err)
	}

	return string(data), nil
}

// LoadDocuments parses path one document per line, in file order.
// Blank lines are skipped.
func LoadDocuments(path string) (Dataset, error) {
	r, closeFn, err := open(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	br := bufio.NewReader(r)

	var (
		ds     Dataset
		lineNo int
	)

	for {
		line, readErr := br.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, fmt.Errorf("read %s: %w: %w", path, ErrIO, readErr)
		}

		if len(line) > 0 {
			lineNo++

			trimmed := bytes.TrimSpace(line)
			if len(trimmed) > 0 {
				// The Extended JSON decoder stops after the first value,
				// so trailing bytes must be rejected up front.
				if !json.Valid(trimmed) {
					return nil, &ParseError{Path: path, Line: lineNo, Err: errMalformedLine}
				}

				var doc Document
				if err := bson.UnmarshalExtJSON(trimmed, false, &doc); err != nil {
					return nil, &ParseError{Path: path, Line: lineNo, Err: err}
				}

				ds = append(ds, doc)
			}
		}

		if errors.Is(readErr, io.EOF) {
			break
		}
	}

	return ds, nil
}

// SaveDocuments writes ds to path as canonical Extended JSON, one
// document per line, replacing any existing content. An empty dataset
// leaves path untouched, and so does a document that fails to encode.
func SaveDocuments(path string, ds Dataset) (err error) {
	if len(ds) == 0 {
		return nil
	}

	var buf bytes.Buffer

	for i, doc := range ds {
		line, err := bson.MarshalExtJSON(doc, true, false)
		if err != nil {
			return fmt.Errorf("encode document %d: %w", i, err)
		}

		buf.Write(line)
		buf.WriteByte('\n')
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w: %w", path, ErrIO, err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w: %w", path, ErrIO, cerr)
		}
	}()

	if isCompressed(path) {
		zw, err := zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("zstd writer %s: %w: %w", path, ErrIO, err)
		}

		closed := false
		defer func() {
			if !closed {
				zw.Close()
			}
		}()

		if _, err := buf.WriteTo(zw); err != nil {
			return fmt.Errorf("write %s: %w: %w", path, ErrIO, err)
		}

		closed = true
		if err := zw.Close(); err != nil {
			return fmt.Errorf("zstd close %s: %w: %w", path, ErrIO, err)
		}

		return nil
	}

	if _, err := buf.WriteTo(f); err != nil {
		return fmt.Errorf("write %s: %w: %w", path, ErrIO, err)
	}

	return nil
}

// EnsureDirectory creates path if it does not exist. It fails if path
// exists and is not a directory.
func EnsureDirectory(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("ensure directory %s: %w: not a directory",
				path, ErrIO)
		}

		return nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w: %w", path, ErrIO, err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w: %w", path, ErrIO, err)
	}

	return nil
}

func open(path string) (io.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("open %s: %w", path, ErrNotFound)
		}

		return nil, nil, fmt.Errorf("open %s: %w: %w", path, ErrIO, err)
	}

	if !isCompressed(path) {
		return f, func() { f.Close() }, nil
	}

	zr, err := zstd.NewReader(f)
	if err != nil {
		f.Close()

		return nil, nil, fmt.Errorf("zstd reader %s: %w: %w", path, ErrIO, err)
	}

	return zr, func() {
		zr.Close()
		f.Close()
	}, nil
}

func isCompressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}
