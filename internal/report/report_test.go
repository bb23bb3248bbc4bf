package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popreader/popreader/internal/manifest"
	"github.com/popreader/popreader/pkg/types"
)

func TestWriteRecord(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecord(&buf, types.Municipality{
		ID: 1, Name: "A", Province: "P1", Department: "D1", Population: 500,
	}))
	assert.Equal(t, "Código: 1\nNombre: A\nProvincia: P1\nDepartamento: D1\nPoblación: 500\n", buf.String())
}

func TestWriteRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, []types.Municipality{{ID: 1}, {ID: 2}}))

	blocks := strings.Split(strings.TrimSuffix(buf.String(), "\n\n"), "\n\n")
	require.Len(t, blocks, 2)
	assert.True(t, strings.HasPrefix(blocks[1], "Código: 2\n"))
}

func TestWriteSnapshots(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshots(&buf, []*manifest.Snapshot{{
		SnapshotID:  "0123456789abcdef",
		StorePath:   "data.bin",
		Ordering:    manifest.OrderingPopulation,
		RecordCount: 3,
		SizeBytes:   123,
		Checksum:    0xab,
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "SNAPSHOT"))
	assert.Contains(t, lines[1], "01234567")
	assert.Contains(t, lines[1], "2026-01-02T03:04:05Z")
	assert.Contains(t, lines[1], "00000000000000ab")
}

func TestWriteObjects(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteObjects(&buf, nil))
	assert.Empty(t, buf.String())

	require.NoError(t, WriteObjects(&buf, []string{"a", "b"}))
	assert.Equal(t, "a\nb\n", buf.String())
}
