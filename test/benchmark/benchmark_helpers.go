package benchmark

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/popreader/popreader/pkg/types"
)

var provinces = []string{"Madrid", "Barcelona", "Valencia", "Sevilla", "Zaragoza", "Málaga", "Murcia", "Asturias"}

// generateMunicipalities returns n records with a fixed seed so runs are
// comparable. Populations repeat often enough to exercise tie handling.
func generateMunicipalities(n int) []types.Municipality {
	rng := rand.New(rand.NewSource(42))
	records := make([]types.Municipality, n)
	for i := range records {
		province := provinces[rng.Intn(len(provinces))]
		records[i] = types.Municipality{
			ID:         int32(i + 1),
			Name:       fmt.Sprintf("Municipio %d", i+1),
			Province:   province,
			Department: fmt.Sprintf("%s-%02d", province, rng.Intn(12)),
			Population: int32(rng.Intn(50000)),
		}
	}
	return records
}

// writeCensusFile writes records as a census export with three header
// lines and thousands separators in the population column.
func writeCensusFile(b *testing.B, records []types.Municipality) string {
	b.Helper()

	var sb strings.Builder
	sb.WriteString("Censo\nPoblación por municipio\nCódigo;Nombre;Provincia;Departamento;Población\n")
	for _, m := range records {
		fmt.Fprintf(&sb, "%d;%s;%s;%s;%s\n", m.ID, m.Name, m.Province, m.Department, withThousands(m.Population))
	}

	path := filepath.Join(b.TempDir(), "census.csv")
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		b.Fatal(err)
	}
	return path
}

func withThousands(v int32) string {
	s := fmt.Sprintf("%d", v)
	if len(s) <= 3 {
		return s
	}
	return s[:len(s)-3] + "." + s[len(s)-3:]
}
