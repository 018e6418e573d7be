// Package markdown renders Markdown with goldmark for the parts of mdtran
// that need more than line-level structure: plain text for language
// validation and a block inventory for the chunks report.
package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Footnote,
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

func parse(src []byte) ast.Node {
	return md.Parser().Parse(text.NewReader(src))
}

// ToPlainText returns the prose of a Markdown document, one block per line.
// Code blocks, code spans and raw HTML are dropped.
func ToPlainText(src []byte) string {
	doc := parse(src)

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.CodeSpan, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				buf.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					buf.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				buf.Write(node.Value)
			}
		default:
			if !entering && n.Type() == ast.TypeBlock {
				buf.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})

	var lines []string
	for _, line := range strings.Split(buf.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Stats counts the block and inline elements of a document.
type Stats struct {
	Headings   int
	Paragraphs int
	CodeBlocks int
	Tables     int
	Lists      int
	Links      int
	Images     int
	HTMLBlocks int
	Footnotes  int
}

func Inspect(src []byte) Stats {
	var s Stats
	_ = ast.Walk(parse(src), func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *ast.Heading:
			s.Headings++
		case *ast.Paragraph:
			s.Paragraphs++
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			s.CodeBlocks++
		case *east.Table:
			s.Tables++
		case *ast.List:
			s.Lists++
		case *ast.Link, *ast.AutoLink:
			s.Links++
		case *ast.Image:
			s.Images++
		case *ast.HTMLBlock:
			s.HTMLBlocks++
		case *east.Footnote:
			s.Footnotes++
		}
		return ast.WalkContinue, nil
	})
	return s
}
