package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/vnykmshr/gofabric/pkg/fabric"
)

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	keyColor   = color.New(color.FgHiBlack)
	okColor    = color.New(color.FgGreen, color.Bold)
	failColor  = color.New(color.FgRed, color.Bold)
)

type row struct {
	key   string
	value interface{}
}

func printSummary(w io.Writer, title string, ok bool, rows []row) {
	titleColor.Fprintln(w, title)
	for _, r := range rows {
		keyColor.Fprintf(w, "  %-12s", r.key)
		fmt.Fprintf(w, " %v\n", r.value)
	}
	if ok {
		okColor.Fprintln(w, "  result       OK")
	} else {
		failColor.Fprintln(w, "  result       MISMATCH")
	}
}

func statsRows(s fabric.Stats) []row {
	return []row{
		{"workers", s.Workers},
		{"completed", s.Completed},
		{"steals", s.Steals},
		{"parks", s.Parks},
		{"per-worker", s.Executed},
	}
}
