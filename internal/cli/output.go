// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	isatty "github.com/mattn/go-isatty"
)

const (
	formatAuto  = "auto"
	formatJSON  = "json"
	formatTable = "table"
)

func parseFormat(s string) (string, error) {
	switch s {
	case formatAuto, formatJSON, formatTable:
		return s, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want auto, json or table)", s)
	}
}

// format resolves auto to a table on a terminal and JSON everywhere else,
// so piped output stays machine readable.
func (a *App) format() string {
	if a.output != formatAuto {
		return a.output
	}
	if f, ok := a.stdout.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return formatTable
		}
	}
	return formatJSON
}

// table is the tabular rendering of a result.
type table struct {
	header []string
	rows   [][]string
}

// render writes v as indented JSON or t as aligned columns.
func (a *App) render(v interface{}, t table) error {
	if a.format() == formatJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.header, "\t"))
	for _, row := range t.rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
