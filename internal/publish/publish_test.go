package publish

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popreader/popreader/internal/storage"
)

func writeArtifacts(t *testing.T) (string, []Artifact) {
	t.Helper()
	dir := t.TempDir()
	files := map[string][]byte{
		"data.bin":           bytes.Repeat([]byte{1, 2, 3, 4}, 1000),
		"population_sum.txt": []byte("PROVINCIA:\nP1\nDEPARTAMENTO:\nD1\nPOBLACIÓN:\n500\n"),
	}
	var artifacts []Artifact
	for _, name := range []string{"data.bin", "population_sum.txt"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, files[name], 0644))
		artifacts = append(artifacts, Artifact{LocalPath: p, Name: "snap-1/" + name})
	}
	return dir, artifacts
}

func TestPublish_Plain(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	_, artifacts := writeArtifacts(t)

	p := New(store, Options{Prefix: "popreader"}, nil)
	uploaded, err := p.Publish(context.Background(), artifacts)
	require.NoError(t, err)
	require.Len(t, uploaded, 2)
	assert.Equal(t, "popreader/snap-1/data.bin", uploaded[0].ObjectPath)
	assert.False(t, uploaded[0].Compressed)

	objects, err := p.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"popreader/snap-1/data.bin", "popreader/snap-1/population_sum.txt"}, objects)

	out := filepath.Join(t.TempDir(), "fetched.bin")
	require.NoError(t, p.Fetch(context.Background(), uploaded[0].ObjectPath, out))
	want, _ := os.ReadFile(artifacts[0].LocalPath)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPublish_CompressedRoundTrip(t *testing.T) {
	base := t.TempDir()
	store, err := storage.NewLocalStorage(base)
	require.NoError(t, err)
	_, artifacts := writeArtifacts(t)

	p := New(store, Options{Prefix: "popreader", Compress: true, TempDir: t.TempDir()}, nil)
	uploaded, err := p.Publish(context.Background(), artifacts)
	require.NoError(t, err)
	assert.Equal(t, "popreader/snap-1/data.bin.sz", uploaded[0].ObjectPath)
	assert.True(t, uploaded[0].Compressed)

	raw, err := os.ReadFile(filepath.Join(base, "popreader", "snap-1", "data.bin.sz"))
	require.NoError(t, err)
	want, _ := os.ReadFile(artifacts[0].LocalPath)
	assert.Less(t, len(raw), len(want), "repetitive data should compress")

	decoded, err := readAllSnappy(raw)
	require.NoError(t, err)
	assert.Equal(t, want, decoded)

	out := filepath.Join(t.TempDir(), "fetched.txt")
	require.NoError(t, p.Fetch(context.Background(), uploaded[1].ObjectPath, out))
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	wantSummary, _ := os.ReadFile(artifacts[1].LocalPath)
	assert.Equal(t, wantSummary, got)
}

func readAllSnappy(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	_, err := buf.ReadFrom(snappy.NewReader(bytes.NewReader(data)))
	return buf.Bytes(), err
}

func TestPublish_MissingArtifact(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	p := New(store, Options{}, nil)
	_, err = p.Publish(context.Background(), []Artifact{{LocalPath: filepath.Join(t.TempDir(), "nope"), Name: "nope"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrUploadFailed))
}

func TestFetch_NotFound(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	p := New(store, Options{}, nil)
	err = p.Fetch(context.Background(), "missing.bin.sz", filepath.Join(t.TempDir(), "out"))
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}
