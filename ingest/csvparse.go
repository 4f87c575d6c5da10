// Package ingest loads the State, District and Town hierarchy from a flat
// CSV file: rows are parsed, folded into three name-keyed sets, then created
// tier by tier through a Creator.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ExpectedHeader is the header line of a directory CSV file.
const ExpectedHeader = "index,Town,Urban_status,State_code,State,District_code,District"

var (
	// ErrHeaderMismatch means the first line is not the expected header.
	ErrHeaderMismatch = errors.New("header does not match")
	// ErrEmptyFile means the file has no header or no data rows.
	ErrEmptyFile = errors.New("invalid or empty csv file")
	// ErrInvalidFile wraps low-level CSV syntax errors such as broken quoting.
	ErrInvalidFile = errors.New("invalid csv file")
)

// Row is one data record with its 1-based line in the source file.
type Row struct {
	Line   int
	Fields []string
}

// RowSource yields rows until io.EOF.
type RowSource interface {
	Next() (Row, error)
}

// RowReader validates the header of a CSV stream and then yields its data
// rows one at a time. It cannot be restarted.
type RowReader struct {
	r     *csv.Reader
	first *Row
}

// NewRowReader reads the header and the first data row. A header that does
// not match stops the read there; a file without data rows is ErrEmptyFile.
func NewRowReader(src io.Reader, header string, delimiter rune) (*RowReader, error) {
	if delimiter == 0 {
		delimiter = ','
	}
	r := csv.NewReader(src)
	r.Comma = delimiter
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rr := &RowReader{r: r}

	got, err := rr.read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, err
	}
	got.Fields[0] = strings.TrimPrefix(got.Fields[0], "\ufeff")
	if !strings.EqualFold(strings.Join(got.Fields, ","), header) {
		return nil, fmt.Errorf("%w: got %q", ErrHeaderMismatch, strings.Join(got.Fields, ","))
	}

	first, err := rr.read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, err
	}
	rr.first = &first
	return rr, nil
}

// Next returns the next data row, or io.EOF once the stream is exhausted.
func (rr *RowReader) Next() (Row, error) {
	if rr.first != nil {
		row := *rr.first
		rr.first = nil
		return row, nil
	}
	return rr.read()
}

func (rr *RowReader) read() (Row, error) {
	for {
		record, err := rr.r.Read()
		if err == io.EOF {
			return Row{}, io.EOF
		}
		if err != nil {
			return Row{}, fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}

		blank := true
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
			if record[i] != "" {
				blank = false
			}
		}
		// csv only honours Comment in column 0; indented comments land here
		if blank || strings.HasPrefix(record[0], "#") {
			continue
		}

		line, _ := rr.r.FieldPos(0)
		return Row{Line: line, Fields: record}, nil
	}
}
