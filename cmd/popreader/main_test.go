package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "Censo\nPoblación\nCódigo;Nombre;Provincia;Departamento;Población\n" +
	"1;A;P1;D1;500\n" +
	"2;B;P1;D2;1.300\n" +
	"3;C;P2;D1;800\n"

type harness struct {
	dir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "datos-ine-csv.csv"), []byte(sampleCSV), 0644))
	return &harness{dir: dir}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"-data-dir", h.dir, "-log-level", "error"}, args...)
	err := run(context.Background(), full, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), err
}

func TestRun_Version(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, nil, &stdout, &bytes.Buffer{}))
	assert.Contains(t, stdout.String(), "popreader version dev")
}

func TestRun_Usage(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "")
	assert.ErrorIs(t, err, errUsage)

	_, err = h.run(t, "", "frobnicate")
	assert.ErrorIs(t, err, errUsage)
}

func TestRun_IngestLookupRank(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "ingested 3 records")

	out, err = h.run(t, "", "lookup", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Nombre: B\n")
	assert.Contains(t, out, "Población: 1300\n")

	out, err = h.run(t, "", "lookup", "42")
	require.NoError(t, err)
	assert.Equal(t, "no such record\n", out)

	_, err = h.run(t, "", "lookup", "abc")
	assert.Error(t, err)

	out, err = h.run(t, "", "rank", "-limit", "2")
	require.NoError(t, err)
	first := strings.Index(out, "Código: 2\n")
	second := strings.Index(out, "Código: 3\n")
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)
	assert.NotContains(t, out, "Código: 1\n")

	out, err = h.run(t, "", "summarize")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "PROVINCIA:\nP1\n"))
	_, err = os.Stat(filepath.Join(h.dir, "population_sum.txt"))
	assert.NoError(t, err)

	out, err = h.run(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "population")
	assert.Contains(t, out, "ingest")
}

func TestRun_LookupWithoutStore(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "lookup", "1")
	assert.Error(t, err)
}

func TestRun_Menu(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "2\n1\n99\n9\n0\n", "menu")
	require.NoError(t, err)

	assert.Contains(t, out, "Nombre: B\n")
	assert.Contains(t, out, "Records in ")
	assert.Contains(t, out, "Summary written to ")
	assert.Contains(t, out, "no such record\n")
	assert.Contains(t, out, "unknown option\n")

	// Ranked dump lists the largest municipality first
	dump := out[strings.Index(out, "Records in "):]
	assert.Less(t, strings.Index(dump, "Código: 2\n"), strings.Index(dump, "Código: 3\n"))
}

func TestRun_MenuEndOfInput(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "1\n", "menu")
	assert.NoError(t, err)
}

func TestRun_PublishFetch(t *testing.T) {
	h := newHarness(t)
	t.Setenv("POPREADER_STORAGE_TYPE", "local")

	_, err := h.run(t, "", "ingest")
	require.NoError(t, err)

	out, err := h.run(t, "", "publish")
	require.NoError(t, err)
	objects := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, objects)
	assert.True(t, strings.HasSuffix(objects[0], "data.bin"))

	out, err = h.run(t, "", "fetch", objects[0])
	require.NoError(t, err)
	assert.Contains(t, out, "fetched 3 records")
}

func TestRun_PublishWithoutStorage(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "ingest")
	require.NoError(t, err)

	_, err = h.run(t, "", "publish")
	require.Error(t, err)
	assert.False(t, errors.Is(err, errUsage))
}

func TestLoadConfig_FlagsOverride(t *testing.T) {
	t.Setenv("POPREADER_STORE_PATH", "/env/data.bin")
	t.Setenv("POPREADER_LOG_LEVEL", "warn")

	cfg, err := loadConfig(globalOptions{store: "/flag/data.bin"})
	require.NoError(t, err)
	assert.Equal(t, "/flag/data.bin", cfg.Store.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "popreader.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /from/file\ninput:\n  header_lines: 1\n"), 0644))

	cfg, err := loadConfig(globalOptions{configFile: path, input: "in.csv"})
	require.NoError(t, err)
	assert.Equal(t, "/from/file", cfg.DataDir)
	assert.Equal(t, 1, cfg.Input.HeaderLines)
	assert.Equal(t, "in.csv", cfg.Input.Path)
}
