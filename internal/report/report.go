// Package report formats records and catalog history for the console.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/popreader/popreader/internal/manifest"
	"github.com/popreader/popreader/pkg/types"
)

// NotFoundMessage is printed when a lookup misses.
const NotFoundMessage = "no such record"

// WriteRecord prints one municipality as labelled lines.
func WriteRecord(w io.Writer, m types.Municipality) error {
	_, err := fmt.Fprintf(w,
		"Código: %d\nNombre: %s\nProvincia: %s\nDepartamento: %s\nPoblación: %d\n",
		m.ID, m.Name, m.Province, m.Department, m.Population)
	return err
}

// WriteRecords prints records separated by a blank line.
func WriteRecords(w io.Writer, records []types.Municipality) error {
	for _, m := range records {
		if err := WriteRecord(w, m); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteSnapshots prints catalog history as an aligned table.
func WriteSnapshots(w io.Writer, snapshots []*manifest.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SNAPSHOT\tCREATED\tORDERING\tRECORDS\tBYTES\tCHECKSUM\tSTORE")
	for _, s := range snapshots {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%016x\t%s\n",
			shortID(s.SnapshotID),
			s.CreatedAt.UTC().Format(time.RFC3339),
			s.Ordering,
			s.RecordCount,
			s.SizeBytes,
			s.Checksum,
			s.StorePath,
		)
	}
	return tw.Flush()
}

// WriteObjects prints object paths, one per line.
func WriteObjects(w io.Writer, objects []string) error {
	if len(objects) == 0 {
		return nil
	}
	_, err := io.WriteString(w, strings.Join(objects, "\n")+"\n")
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
