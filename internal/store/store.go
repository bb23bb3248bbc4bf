// Package store holds the ordered in-memory collection of municipality
// records and persists it to, or loads it from, a flat binary file.
package store

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"

	"github.com/popreader/popreader/internal/codec"
	poperrors "github.com/popreader/popreader/internal/errors"
	"github.com/popreader/popreader/pkg/types"
)

// Result describes one persist operation.
type Result struct {
	Records  int
	Bytes    int64
	Checksum uint64
}

// Store is an ordered sequence of records. It has a single owner and is not
// safe for concurrent use.
type Store struct {
	records []types.Municipality
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// FromRecords creates a store over the given records.
func FromRecords(records []types.Municipality) *Store {
	return &Store{records: records}
}

// Append adds m at the end of the store. Identifiers are not checked for uniqueness.
func (s *Store) Append(m types.Municipality) {
	s.records = append(s.records, m)
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Records returns the backing slice. Callers may reorder it in place but
// must not change its length.
func (s *Store) Records() []types.Municipality {
	return s.records
}

// Reset drops all records.
func (s *Store) Reset() {
	s.records = nil
}

// Persist encodes every record, in current order, to w.
func (s *Store) Persist(w io.Writer) (Result, error) {
	h := murmur3.New64()
	bw := bufio.NewWriter(io.MultiWriter(w, h))

	var res Result
	for _, m := range s.records {
		n, err := codec.Write(bw, m)
		res.Bytes += n
		if err != nil {
			return res, err
		}
		res.Records++
	}
	if err := bw.Flush(); err != nil {
		return res, fmt.Errorf("flush store: %w", err)
	}
	res.Checksum = h.Sum64()
	return res, nil
}

// PersistFile overwrites path with the encoded records. With atomic set, the
// data goes to a temporary file in the same directory which is synced and
// renamed over path, so readers never observe a partial file.
func (s *Store) PersistFile(path string, atomic bool) (Result, error) {
	target := path
	if atomic {
		target = filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.New().String()))
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return Result{}, poperrors.NewIOUnavailable(target, err)
	}

	res, err := s.Persist(f)
	if err != nil {
		f.Close()
		if atomic {
			os.Remove(target)
		}
		return res, fmt.Errorf("persist %s: %w", path, err)
	}

	if atomic {
		if err := f.Sync(); err != nil {
			f.Close()
			os.Remove(target)
			return res, fmt.Errorf("sync %s: %w", target, err)
		}
	}
	if err := f.Close(); err != nil {
		if atomic {
			os.Remove(target)
		}
		return res, fmt.Errorf("close %s: %w", target, err)
	}

	if atomic {
		if err := os.Rename(target, path); err != nil {
			os.Remove(target)
			return res, poperrors.NewIOUnavailable(path, err)
		}
	}
	return res, nil
}

// Load decodes records from r until a clean end of data. A record cut short
// makes the whole load fail with a CorruptStore error.
func Load(r io.Reader) ([]types.Municipality, error) {
	var records []types.Municipality
	for m, err := range codec.NewDecoder(r).All() {
		if err != nil {
			return nil, poperrors.NewCorruptStore(fmt.Sprintf("store ends inside record %d", len(records)+1), err)
		}
		records = append(records, m)
	}
	return records, nil
}

// LoadFile opens path and loads its records, also returning the checksum of
// the file contents.
func LoadFile(path string) ([]types.Municipality, uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, poperrors.NewIOUnavailable(path, err)
	}
	defer f.Close()

	h := murmur3.New64()
	records, err := Load(io.TeeReader(f, h))
	if err != nil {
		return nil, 0, fmt.Errorf("load %s: %w", path, err)
	}
	return records, h.Sum64(), nil
}

// Checksum returns the checksum Persist would report for records.
func Checksum(records []types.Municipality) uint64 {
	h := murmur3.New64()
	var buf []byte
	for _, m := range records {
		buf = codec.AppendRecord(buf[:0], m)
		h.Write(buf)
	}
	return h.Sum64()
}
