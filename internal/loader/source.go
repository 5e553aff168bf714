package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// Source produces raw records from a file in file order. Every call to Open
// starts again from the beginning of the file.
type Source interface {
	// Path returns the file the source reads.
	Path() string

	// Open validates the file and returns an iterator over its rows.
	// Failures are reported as *SourceReadError.
	Open() (Iterator, error)
}

// Iterator yields raw records one at a time.
//
// Next returns io.EOF after the last record. A *TransformSkip means the
// current row was malformed and iteration may continue; any other error
// means the rest of the file cannot be read.
type Iterator interface {
	Next() (RawRecord, error)
	Close() error
}

// NewSource returns the Source adapter a contract declares.
func NewSource(kind SourceKind, path string, fields []string) Source {
	if kind == Document {
		return NewJSONSource(path)
	}
	return NewCSVSource(path, fields)
}

// CSVSource reads a delimited text file whose first line is a header naming
// exactly the expected fields.
type CSVSource struct {
	path   string
	fields []string

	// Comma is the field delimiter. Defaults to ','.
	Comma rune
}

// NewCSVSource creates a delimited-text source.
func NewCSVSource(path string, fields []string) *CSVSource {
	return &CSVSource{path: path, fields: slices.Clone(fields), Comma: ','}
}

// Path returns the file the source reads.
func (s *CSVSource) Path() string { return s.path }

// Open opens the file and checks its header.
func (s *CSVSource) Open() (Iterator, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, &SourceReadError{Path: s.path, Err: err}
	}

	reader := csv.NewReader(f)
	if s.Comma != 0 {
		reader.Comma = s.Comma
	}
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		f.Close()
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("file is empty")
		}
		return nil, &SourceReadError{Path: s.path, Err: err}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if err := checkHeader(header, s.fields); err != nil {
		f.Close()
		return nil, &SourceReadError{Path: s.path, Err: err}
	}
	reader.FieldsPerRecord = len(header)

	return &csvIterator{file: f, reader: reader, header: header}, nil
}

// checkHeader requires the header to name every expected field exactly once
// and nothing else. Column order is free.
func checkHeader(header, expected []string) error {
	seen := make(map[string]bool, len(header))
	var extra []string
	for _, h := range header {
		if seen[h] {
			return fmt.Errorf("duplicate header column %q", h)
		}
		seen[h] = true
		if !slices.Contains(expected, h) {
			extra = append(extra, h)
		}
	}
	var missing []string
	for _, want := range expected {
		if !seen[want] {
			missing = append(missing, want)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(extra, ", "))
	}
	return fmt.Errorf("header mismatch: %s", strings.Join(parts, "; "))
}

type csvIterator struct {
	file   *os.File
	reader *csv.Reader
	header []string
	row    int
}

func (it *csvIterator) Next() (RawRecord, error) {
	fields, err := it.reader.Read()
	if errors.Is(err, io.EOF) {
		return RawRecord{}, io.EOF
	}
	it.row++

	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			raw := RawRecord{Row: it.row, Line: parseErr.StartLine}
			return raw, skip(raw, "", "malformed row", parseErr.Err)
		}
		return RawRecord{}, err
	}

	values := make([]any, len(fields))
	for i, v := range fields {
		values[i] = v
	}
	raw := NewRawRecord(it.row, it.header, values)
	raw.Line, _ = it.reader.FieldPos(0)
	return raw, nil
}

func (it *csvIterator) Close() error {
	return it.file.Close()
}

// JSONSource reads a document holding one array of objects. Fields are
// accessed by key and absent keys read as nil.
type JSONSource struct {
	path string
}

// NewJSONSource creates a structured-document source.
func NewJSONSource(path string) *JSONSource {
	return &JSONSource{path: path}
}

// Path returns the file the source reads.
func (s *JSONSource) Path() string { return s.path }

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Open opens the file and positions the decoder inside the top-level array.
func (s *JSONSource) Open() (Iterator, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, &SourceReadError{Path: s.path, Err: err}
	}

	br := bufio.NewReader(f)
	if lead, _ := br.Peek(len(utf8BOM)); bytes.Equal(lead, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	dec := json.NewDecoder(br)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		f.Close()
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("file is empty")
		}
		return nil, &SourceReadError{Path: s.path, Err: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		f.Close()
		return nil, &SourceReadError{Path: s.path, Err: fmt.Errorf("document must be an array of objects")}
	}

	return &jsonIterator{file: f, dec: dec}, nil
}

type jsonIterator struct {
	file *os.File
	dec  *json.Decoder
	row  int
	done bool
}

func (it *jsonIterator) Next() (RawRecord, error) {
	if it.done {
		return RawRecord{}, io.EOF
	}
	if !it.dec.More() {
		// the array must be closed; a missing ']' means a truncated file
		if _, err := it.dec.Token(); err != nil {
			return RawRecord{}, fmt.Errorf("unterminated document after element %d: %v", it.row, err)
		}
		it.done = true
		return RawRecord{}, io.EOF
	}
	it.row++

	var element any
	if err := it.dec.Decode(&element); err != nil {
		return RawRecord{}, fmt.Errorf("element %d: %w", it.row, err)
	}
	obj, ok := element.(map[string]any)
	if !ok {
		raw := RawRecord{Row: it.row}
		return raw, skip(raw, "", fmt.Sprintf("array element is %T, not an object", element), nil)
	}
	return RawRecordFromMap(it.row, obj), nil
}

func (it *jsonIterator) Close() error {
	return it.file.Close()
}
