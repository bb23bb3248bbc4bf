// Package codec implements the binary encoding of municipality records.
//
// A record is the concatenation of:
//
//	id          int32, little-endian
//	name        uint64 little-endian length, then raw bytes
//	province    uint64 little-endian length, then raw bytes
//	department  uint64 little-endian length, then raw bytes
//	population  int32, little-endian
//
// There is no header, terminator or record count. A stream is a flat
// concatenation of records, and a clean end of data is only possible at a
// record boundary.
package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"iter"

	poperrors "github.com/popreader/popreader/internal/errors"
	"github.com/popreader/popreader/pkg/types"
)

const (
	int32Size  = 4
	lengthSize = 8
)

// Field names reported in TruncatedRecord errors.
const (
	FieldID         = "id"
	FieldName       = "name"
	FieldProvince   = "province"
	FieldDepartment = "department"
	FieldPopulation = "population"
)

var byteOrder = binary.LittleEndian

// Size returns the encoded length of m in bytes.
func Size(m types.Municipality) int64 {
	return int64(2*int32Size + 3*lengthSize + len(m.Name) + len(m.Province) + len(m.Department))
}

// Encode returns the binary form of m.
func Encode(m types.Municipality) []byte {
	return AppendRecord(make([]byte, 0, Size(m)), m)
}

// AppendRecord appends the binary form of m to dst and returns the extended slice.
func AppendRecord(dst []byte, m types.Municipality) []byte {
	dst = byteOrder.AppendUint32(dst, uint32(m.ID))
	dst = appendString(dst, m.Name)
	dst = appendString(dst, m.Province)
	dst = appendString(dst, m.Department)
	dst = byteOrder.AppendUint32(dst, uint32(m.Population))
	return dst
}

func appendString(dst []byte, s string) []byte {
	dst = byteOrder.AppendUint64(dst, uint64(len(s)))
	return append(dst, s...)
}

// Write encodes m and writes it to w in a single call.
// Either the whole record reaches w or the call fails.
func Write(w io.Writer, m types.Municipality) (int64, error) {
	buf := Encode(m)
	n, err := w.Write(buf)
	if err != nil {
		return int64(n), fmt.Errorf("write record %d: %w", m.ID, err)
	}
	if n != len(buf) {
		return int64(n), fmt.Errorf("write record %d: %w", m.ID, io.ErrShortWrite)
	}
	return int64(n), nil
}

// ReadRecord decodes one record from r.
// It returns io.EOF if r is exhausted before the first byte of a record.
func ReadRecord(r io.Reader) (types.Municipality, error) {
	d := Decoder{r: r}
	return d.Next()
}

// Decoder reads consecutive records from a stream and tracks the byte offset
// of the current position, so truncation errors can say where the data ended.
type Decoder struct {
	r       io.Reader
	offset  int64
	buf     bytes.Buffer
	scratch [lengthSize]byte
}

// NewDecoder returns a Decoder reading from r through a buffered reader.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int64 {
	return d.offset
}

// Next decodes the next record.
// It returns io.EOF at a clean record boundary and a TruncatedRecord error if
// the stream ends inside a record.
func (d *Decoder) Next() (types.Municipality, error) {
	var m types.Municipality

	id, err := d.readInt32(FieldID)
	if err != nil {
		return m, err
	}
	m.ID = id

	if m.Name, err = d.readString(FieldName); err != nil {
		return m, err
	}
	if m.Province, err = d.readString(FieldProvince); err != nil {
		return m, err
	}
	if m.Department, err = d.readString(FieldDepartment); err != nil {
		return m, err
	}
	if m.Population, err = d.readInt32(FieldPopulation); err != nil {
		return m, err
	}
	return m, nil
}

// All returns an iterator over the remaining records. Iteration stops after
// the first error, which is yielded with a zero record. A clean end of data
// is not yielded.
func (d *Decoder) All() iter.Seq2[types.Municipality, error] {
	return func(yield func(types.Municipality, error) bool) {
		for {
			m, err := d.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(types.Municipality{}, err)
				return
			}
			if !yield(m, nil) {
				return
			}
		}
	}
}

func (d *Decoder) readInt32(field string) (int32, error) {
	b := d.scratch[:int32Size]
	n, err := io.ReadFull(d.r, b)
	d.offset += int64(n)
	if err != nil {
		return 0, d.fail(field, n, err)
	}
	return int32(byteOrder.Uint32(b)), nil
}

func (d *Decoder) readString(field string) (string, error) {
	b := d.scratch[:lengthSize]
	n, err := io.ReadFull(d.r, b)
	d.offset += int64(n)
	if err != nil {
		return "", d.fail(field, n, err)
	}
	length := byteOrder.Uint64(b)

	// Copy through a bounded reader so a corrupt length cannot force a huge
	// allocation up front.
	d.buf.Reset()
	copied, err := io.CopyN(&d.buf, d.r, int64(min(length, uint64(1<<62))))
	d.offset += copied
	if err == io.EOF {
		return "", poperrors.NewTruncatedRecord(d.offset, field, io.ErrUnexpectedEOF)
	}
	if err != nil {
		return "", fmt.Errorf("read %s at byte %d: %w", field, d.offset, err)
	}
	return d.buf.String(), nil
}

// fail converts a short read into a TruncatedRecord error. A plain io.EOF
// with nothing read is passed through so Next can tell a record boundary.
func (d *Decoder) fail(field string, n int, err error) error {
	if err == io.EOF && n == 0 && field == FieldID {
		return io.EOF
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	if err == io.ErrUnexpectedEOF {
		return poperrors.NewTruncatedRecord(d.offset, field, err)
	}
	return fmt.Errorf("read %s at byte %d: %w", field, d.offset, err)
}
