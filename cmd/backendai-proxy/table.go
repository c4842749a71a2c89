package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
)

// printTable writes rows as an aligned text table to stdout.
func printTable(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))

	underlines := make([]string, len(headers))
	for i, h := range headers {
		underlines[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(w, strings.Join(underlines, "\t"))

	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

// cell renders an arbitrary decoded JSON value for table output.
func cell(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
