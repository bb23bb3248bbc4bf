package aggregator

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	poperrors "github.com/popreader/popreader/internal/errors"
)

// Section labels of the rendered summary.
const (
	labelProvince   = "PROVINCIA:"
	labelDepartment = "DEPARTAMENTO:"
	labelPopulation = "POBLACIÓN:"
)

// Render writes the summary as line-oriented text. Each province header is
// written once and followed by one block per department:
//
//	PROVINCIA:
//	<province>
//	DEPARTAMENTO:
//	<department>
//	POBLACIÓN:
//	<total>
func (s *Summary) Render(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, p := range s.Provinces() {
		fmt.Fprintf(bw, "%s\n%s\n", labelProvince, p)
		for _, d := range s.Departments(p) {
			fmt.Fprintf(bw, "%s\n%s\n%s\n%d\n", labelDepartment, d, labelPopulation, s.totals[p][d])
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	return nil
}

// String returns the rendered summary.
func (s *Summary) String() string {
	var sb strings.Builder
	_ = s.Render(&sb)
	return sb.String()
}

// RenderFile overwrites path with the rendered summary and returns the
// rendered text.
func (s *Summary) RenderFile(path string) (string, error) {
	var buf bytes.Buffer
	if err := s.Render(&buf); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", poperrors.NewIOUnavailable(path, err)
	}
	return buf.String(), nil
}
