package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/couchcryptid/brew-water-service/internal/domain"
)

func writeTable(w io.Writer, header []string, n int, row func(i int) []string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for i := range n {
		fmt.Fprintln(tw, strings.Join(row(i), "\t"))
	}
	return tw.Flush()
}

// writeRows prints calculator rows with their target range.
func writeRows(w io.Writer, rows []domain.ProfileRow) error {
	return writeTable(w, []string{"ION", "VALEUR", "CIBLE", ""}, len(rows), func(i int) []string {
		r := rows[i]
		status := "ok"
		if !r.InRange {
			status = "hors cible"
		}
		return []string{r.Name, r.Display, fmt.Sprintf("%g-%g", r.Target.Min, r.Target.Max), status}
	})
}
