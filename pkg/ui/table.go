package ui

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// PrintTable prints rows aligned under headers
func PrintTable(headers []string, rows [][]string) {
	mu.Lock()
	w, skip := out, quiet
	mu.Unlock()
	if skip {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}
