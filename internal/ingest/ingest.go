// Package ingest reads the semicolon-delimited census export into
// municipality records.
//
// Each data line holds at least five fields:
//
//	id;name;province;department;population
//
// The numeric fields may carry thousands separators ("12.345"), which are
// removed before parsing. Parsing is strict: any other non-digit makes the
// line malformed and aborts the whole read.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	poperrors "github.com/popreader/popreader/internal/errors"
	"github.com/popreader/popreader/pkg/types"
)

const (
	// DefaultHeaderLines is the number of leading lines of the census export
	// that precede the data.
	DefaultHeaderLines = 3

	// DefaultDelimiter separates fields within a line.
	DefaultDelimiter = ";"

	// DefaultThousandsSeparator is stripped from numeric fields.
	DefaultThousandsSeparator = "."

	fieldCount    = 5
	maxLineLength = 1 << 20
)

// Field names reported in MalformedRow errors.
const (
	FieldID         = "id"
	FieldPopulation = "population"
	FieldCount      = "fields"
)

// Reader parses delimited census data.
type Reader struct {
	Delimiter          string
	HeaderLines        int
	ThousandsSeparator string
}

// NewReader returns a Reader with the defaults of the census export.
func NewReader() *Reader {
	return &Reader{
		Delimiter:          DefaultDelimiter,
		HeaderLines:        DefaultHeaderLines,
		ThousandsSeparator: DefaultThousandsSeparator,
	}
}

// ReadFile opens path and reads every record from it.
func (r *Reader) ReadFile(path string) ([]types.Municipality, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, poperrors.NewIOUnavailable(path, err)
	}
	defer f.Close()

	records, err := r.Read(f)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", path, err)
	}
	return records, nil
}

// Read parses every data line of src. The first malformed line aborts the
// read; no partial result is returned.
func (r *Reader) Read(src io.Reader) ([]types.Municipality, error) {
	var records []types.Municipality
	err := r.Each(src, func(m types.Municipality) error {
		records = append(records, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Each parses src and calls fn for every record in input order. It stops at
// the first parse error or the first error returned by fn.
func (r *Reader) Each(src io.Reader, fn func(types.Municipality) error) error {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo <= r.HeaderLines {
			continue
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		m, err := r.ParseLine(line, lineNo)
		if err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read line %d: %w", lineNo+1, err)
	}
	return nil
}

// ParseLine parses one data line. lineNo is the 1-based physical line number
// used in error reports.
func (r *Reader) ParseLine(line string, lineNo int) (types.Municipality, error) {
	var m types.Municipality

	fields := strings.Split(line, r.delimiter())
	if len(fields) < fieldCount {
		return m, poperrors.NewMalformedRow(lineNo, FieldCount, line,
			fmt.Errorf("expected %d fields, got %d", fieldCount, len(fields)))
	}

	id, err := r.parseNumber(fields[0])
	if err != nil {
		return m, poperrors.NewMalformedRow(lineNo, FieldID, line, err)
	}
	population, err := r.parseNumber(fields[4])
	if err != nil {
		return m, poperrors.NewMalformedRow(lineNo, FieldPopulation, line, err)
	}
	if population < 0 {
		return m, poperrors.NewMalformedRow(lineNo, FieldPopulation, line,
			fmt.Errorf("negative population %d", population))
	}

	m.ID = id
	m.Name = fields[1]
	m.Province = fields[2]
	m.Department = fields[3]
	m.Population = population
	return m, nil
}

func (r *Reader) parseNumber(field string) (int32, error) {
	s := strings.TrimSpace(field)
	if r.ThousandsSeparator != "" {
		s = strings.ReplaceAll(s, r.ThousandsSeparator, "")
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

func (r *Reader) delimiter() string {
	if r.Delimiter == "" {
		return DefaultDelimiter
	}
	return r.Delimiter
}
