package ingest

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	poperrors "github.com/popreader/popreader/internal/errors"
	"github.com/popreader/popreader/pkg/types"
)

const header = "Censo 2022\nPoblación por municipio\nCódigo;Nombre;Provincia;Departamento;Población\n"

func TestRead_Basic(t *testing.T) {
	input := header +
		"1;A;P1;D1;500\n" +
		"2;B;P1;D2;300\n" +
		"3;C;P2;D1;800\n"

	records, err := NewReader().Read(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []types.Municipality{
		{ID: 1, Name: "A", Province: "P1", Department: "D1", Population: 500},
		{ID: 2, Name: "B", Province: "P1", Department: "D2", Population: 300},
		{ID: 3, Name: "C", Province: "P2", Department: "D1", Population: 800},
	}, records)
}

func TestRead_ThousandsSeparatorsAndCRLF(t *testing.T) {
	input := header + "1.001;Villa Nueva;Norte;Centro; 12.345 \r\n"

	records, err := NewReader().Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int32(1001), records[0].ID)
	assert.Equal(t, "Villa Nueva", records[0].Name)
	assert.Equal(t, int32(12345), records[0].Population)
}

func TestRead_SkipsBlankLinesAndExtraFields(t *testing.T) {
	input := header + "\n1;A;P1;D1;500;extra;more\n   \n2;B;P1;D2;300\n"

	records, err := NewReader().Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int32(500), records[0].Population)
}

func TestRead_TextFieldsKeepSpaces(t *testing.T) {
	records, err := NewReader().Read(strings.NewReader(header + "1; A ;P1;D1;5\n"))
	require.NoError(t, err)
	assert.Equal(t, " A ", records[0].Name)
}

func TestRead_HeaderOnly(t *testing.T) {
	records, err := NewReader().Read(strings.NewReader(header))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRead_CustomHeaderAndDelimiter(t *testing.T) {
	r := &Reader{Delimiter: ",", HeaderLines: 0, ThousandsSeparator: ""}
	records, err := r.Read(strings.NewReader("7,G,P,D,10\n"))
	require.NoError(t, err)
	assert.Equal(t, int32(7), records[0].ID)
}

func TestRead_MalformedPopulation(t *testing.T) {
	input := header + "1;A;P1;D1;500\n2;B;P1;D2;12.3x4\n"

	records, err := NewReader().Read(strings.NewReader(input))
	require.Error(t, err)
	assert.Nil(t, records)
	assert.True(t, errors.Is(err, poperrors.ErrMalformedRow))

	var pe *poperrors.PopError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 5, pe.Detail("line"))
	assert.Equal(t, FieldPopulation, pe.Detail("field"))
	assert.Equal(t, "2;B;P1;D2;12.3x4", pe.Detail("raw"))
}

func TestParseLine_Errors(t *testing.T) {
	r := NewReader()
	tests := []struct {
		name  string
		line  string
		field string
	}{
		{"bad id", "x;A;P;D;1", FieldID},
		{"empty population", "1;A;P;D;", FieldPopulation},
		{"negative population", "1;A;P;D;-5", FieldPopulation},
		{"too few fields", "1;A;P;D", FieldCount},
		{"id overflow", "9999999999;A;P;D;1", FieldID},
		{"population overflow", "1;A;P;D;2147483648", FieldPopulation},
		{"population overflow with separators", "1;A;P;D;2.147.483.648", FieldPopulation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.ParseLine(tt.line, 9)
			require.Error(t, err)
			var pe *poperrors.PopError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, poperrors.CodeMalformedRow, pe.Code)
			assert.Equal(t, tt.field, pe.Detail("field"))
			assert.Equal(t, 9, pe.Detail("line"))
		})
	}
}

func TestParseLine_Int32Bounds(t *testing.T) {
	r := NewReader()

	m, err := r.ParseLine("2.147.483.647;A;P;D;2.147.483.647", 4)
	require.NoError(t, err)
	assert.Equal(t, int32(math.MaxInt32), m.ID)
	assert.Equal(t, int32(math.MaxInt32), m.Population)

	m, err = r.ParseLine("0;A;P;D;0", 4)
	require.NoError(t, err)
	assert.Equal(t, int32(0), m.ID)
	assert.Equal(t, int32(0), m.Population)

	m, err = r.ParseLine("-2147483648;A;P;D;1", 4)
	require.NoError(t, err)
	assert.Equal(t, int32(math.MinInt32), m.ID)
}

func TestEach_StopsOnCallbackError(t *testing.T) {
	input := header + "1;A;P;D;1\n2;B;P;D;2\n"
	stop := errors.New("stop")
	calls := 0
	err := NewReader().Each(strings.NewReader(input), func(types.Municipality) error {
		calls++
		return stop
	})
	assert.Equal(t, stop, err)
	assert.Equal(t, 1, calls)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "censo.csv")
	require.NoError(t, os.WriteFile(path, []byte(header+"1;A;P1;D1;500\n"), 0644))

	records, err := NewReader().ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = NewReader().ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, errors.Is(err, poperrors.ErrIOUnavailable))
}
