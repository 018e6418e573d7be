package docconv

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/valpere/mdtran/internal/fileutil"
)

// ErrNoTables is returned by RewriteTablesFile when the file contains no HTML
// table that could be rewritten.
var ErrNoTables = errors.New("no HTML tables to rewrite")

// htmlTable matches a complete <table>…</table> block together with the line
// breaks around it.
var htmlTable = regexp.MustCompile(`(?is)\n*<table\b[^>]*>.*?</table>\n*`)

// RewriteTables replaces every HTML table in src with an equivalent pipe
// table separated from the surrounding text by a blank line. Tables without
// any rows are left as they are. It returns the rewritten text and the number
// of tables converted.
func RewriteTables(src string) (string, int) {
	matches := htmlTable.FindAllStringIndex(src, -1)
	if len(matches) == 0 {
		return src, 0
	}

	var (
		b     strings.Builder
		pos   int
		count int
	)
	for _, m := range matches {
		block := strings.Trim(src[m[0]:m[1]], "\n")
		pipe, ok := pipeTable(block)
		if !ok {
			continue
		}
		count++

		b.WriteString(src[pos:m[0]])
		if m[0] > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(pipe)
		if m[1] < len(src) {
			b.WriteString("\n\n")
		} else {
			b.WriteString("\n")
		}
		pos = m[1]
	}
	b.WriteString(src[pos:])

	return b.String(), count
}

// RewriteTablesFile applies RewriteTables to the file at path in place.
func RewriteTablesFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	out, n := RewriteTables(string(data))
	if n == 0 {
		return ErrNoTables
	}
	return fileutil.WriteAtomic(path, []byte(out), 0o644)
}

// pipeTable parses one HTML table. The first row becomes the header.
func pipeTable(fragment string) (string, bool) {
	rows := tableRows(fragment)
	if len(rows) == 0 {
		return "", false
	}

	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}
	widths := make([]int, cols)
	for i := range widths {
		widths[i] = 3
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, pipeRow(rows[0], widths))
	sep := make([]string, cols)
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	lines = append(lines, pipeRow(sep, widths))
	for _, row := range rows[1:] {
		lines = append(lines, pipeRow(row, widths))
	}

	return strings.Join(lines, "\n"), true
}

func pipeRow(cells []string, widths []int) string {
	var b strings.Builder
	b.WriteString("|")
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		b.WriteString(" ")
		b.WriteString(cell)
		b.WriteString(strings.Repeat(" ", w-utf8.RuneCountInString(cell)))
		b.WriteString(" |")
	}
	return b.String()
}

// tableRows extracts the text of every th/td cell, row by row. Markup inside
// cells is dropped and entities are decoded.
func tableRows(fragment string) [][]string {
	z := html.NewTokenizer(strings.NewReader(fragment))

	var (
		rows [][]string
		row  []string
		cell *strings.Builder
	)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return nil
			}
			return rows
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "tr":
				row = nil
			case "td", "th":
				cell = &strings.Builder{}
			case "br":
				if cell != nil {
					cell.WriteByte(' ')
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "td", "th":
				if cell != nil {
					row = append(row, cellText(cell.String()))
					cell = nil
				}
			case "tr":
				if len(row) > 0 {
					rows = append(rows, row)
				}
				row = nil
			}
		case html.TextToken:
			if cell != nil {
				cell.Write(z.Text())
			}
		}
	}
}

func cellText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
