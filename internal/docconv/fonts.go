package docconv

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/valpere/mdtran/internal/fileutil"
)

const documentPart = "word/document.xml"

// ErrNotDocx is returned when a file has no word/document.xml part.
var ErrNotDocx = errors.New("not a docx package")

// FontSpec names the fonts applied to every text run.
type FontSpec struct {
	// Default covers the ascii and hAnsi slots.
	Default string
	// EastAsia covers CJK text.
	EastAsia string
	// Lang, when set, is written as the run's w:lang value.
	Lang string
}

// DefaultFontSpec is Times New Roman for Latin text and SimSun for Chinese.
func DefaultFontSpec() FontSpec {
	return FontSpec{Default: "Times New Roman", EastAsia: "SimSun", Lang: "zh-CN"}
}

// ApplyFonts sets spec on every run in the document at path: body
// paragraphs, hyperlinks and table cells at any nesting depth. Only
// word/document.xml is rewritten; all other parts, including equations and
// the table of contents, are copied byte for byte. The file is replaced
// atomically and left untouched on error. It returns the number of runs
// updated.
func ApplyFonts(path string, spec FontSpec) (int, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	tmp, err := fileutil.CreateTempNear(path)
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	fail := func(err error) (int, error) {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, err
	}

	w := zip.NewWriter(tmp)
	runs := -1
	for _, f := range r.File {
		if f.Name != documentPart {
			if err := w.Copy(f); err != nil {
				return fail(fmt.Errorf("copy %s: %w", f.Name, err))
			}
			continue
		}

		data, err := readZipFile(f)
		if err != nil {
			return fail(err)
		}
		out, n := rewriteRunFonts(string(data), spec)
		runs = n

		dst, err := w.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: f.Modified,
		})
		if err != nil {
			return fail(fmt.Errorf("create %s: %w", f.Name, err))
		}
		if _, err := io.WriteString(dst, out); err != nil {
			return fail(fmt.Errorf("write %s: %w", f.Name, err))
		}
	}
	if runs < 0 {
		return fail(fmt.Errorf("%s: %w", path, ErrNotDocx))
	}

	if err := w.Close(); err != nil {
		return fail(fmt.Errorf("finish archive: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("close temp file: %w", err)
	}
	r.Close()

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("replace %s: %w", path, err)
	}
	return runs, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}

var (
	runOpen   = regexp.MustCompile(`<w:r(?:\s[^>]*)?>`)
	emptyRPr  = regexp.MustCompile(`^<w:rPr\s*/>`)
	openRPr   = regexp.MustCompile(`^<w:rPr(?:\s[^>]*)?>`)
	rFontsTag = regexp.MustCompile(`<w:rFonts\b[^>]*?(?:/>|>\s*</w:rFonts>)`)
	langTag   = regexp.MustCompile(`<w:lang\b[^>]*?(?:/>|>\s*</w:lang>)`)
	rStyleTag = regexp.MustCompile(`^<w:rStyle\b[^>]*?(?:/>|>\s*</w:rStyle>)`)
)

// Elements that must follow w:lang inside w:rPr.
var afterLang = []string{"<w:eastAsianLayout", "<w:specVanish", "<w:oMath", "<w:rPrChange"}

// rewriteRunFonts gives every w:r element in doc a w:rFonts (and w:lang)
// matching spec, replacing any existing ones. It returns the new XML and the
// number of runs touched.
func rewriteRunFonts(doc string, spec FontSpec) (string, int) {
	var (
		b   strings.Builder
		pos int
		n   int
	)
	b.Grow(len(doc) + len(doc)/4)

	for _, m := range runOpen.FindAllStringIndex(doc, -1) {
		tag := doc[m[0]:m[1]]
		b.WriteString(doc[pos:m[1]])
		pos = m[1]
		if strings.HasSuffix(tag, "/>") {
			continue
		}
		n++

		rest := doc[pos:]
		if loc := emptyRPr.FindStringIndex(rest); loc != nil {
			b.WriteString("<w:rPr>" + runProps("", spec) + "</w:rPr>")
			pos += loc[1]
			continue
		}
		if loc := openRPr.FindStringIndex(rest); loc != nil {
			end := strings.Index(rest, "</w:rPr>")
			if end >= loc[1] {
				b.WriteString(rest[:loc[1]])
				b.WriteString(runProps(rest[loc[1]:end], spec))
				b.WriteString("</w:rPr>")
				pos += end + len("</w:rPr>")
				continue
			}
		}
		b.WriteString("<w:rPr>" + runProps("", spec) + "</w:rPr>")
	}
	b.WriteString(doc[pos:])

	return b.String(), n
}

// runProps returns the content of a w:rPr element with the fonts replaced.
func runProps(inner string, spec FontSpec) string {
	inner = rFontsTag.ReplaceAllString(inner, "")
	if spec.Lang != "" {
		inner = langTag.ReplaceAllString(inner, "")
	}

	fonts := fmt.Sprintf(`<w:rFonts w:ascii="%s" w:hAnsi="%s" w:eastAsia="%s"/>`,
		xmlAttr(spec.Default), xmlAttr(spec.Default), xmlAttr(spec.EastAsia))

	// rStyle is the only element allowed before rFonts.
	head := ""
	if loc := rStyleTag.FindStringIndex(inner); loc != nil {
		head, inner = inner[:loc[1]], inner[loc[1]:]
	}
	inner = head + fonts + inner

	if spec.Lang == "" {
		return inner
	}
	lang := fmt.Sprintf(`<w:lang w:val="%s" w:eastAsia="%s"/>`, xmlAttr(spec.Lang), xmlAttr(spec.Lang))
	at := len(inner)
	for _, tag := range afterLang {
		if i := strings.Index(inner, tag); i >= 0 && i < at {
			at = i
		}
	}
	return inner[:at] + lang + inner[at:]
}

var attrEscaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `>`, "&gt;", `"`, "&quot;")

func xmlAttr(s string) string { return attrEscaper.Replace(s) }

// FontReport summarises the run fonts found in a document.
type FontReport struct {
	Runs       int
	Mismatched int
}

// CheckFonts parses the document at path and counts the runs whose fonts
// differ from spec.
func CheckFonts(path string, spec FontSpec) (FontReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return FontReport{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return FontReport{}, fmt.Errorf("stat %s: %w", path, err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return FontReport{}, fmt.Errorf("parse %s: %w", path, err)
	}

	var report FontReport
	for _, item := range doc.Document.Body.Items {
		switch v := item.(type) {
		case *docx.Paragraph:
			checkParagraph(v, spec, &report)
		case *docx.Table:
			checkTable(v, spec, &report)
		}
	}
	return report, nil
}

func checkParagraph(p *docx.Paragraph, spec FontSpec, report *FontReport) {
	for _, child := range p.Children {
		switch v := child.(type) {
		case *docx.Run:
			checkRun(v, spec, report)
		case *docx.Hyperlink:
			checkRun(&v.Run, spec, report)
		}
	}
}

func checkTable(t *docx.Table, spec FontSpec, report *FontReport) {
	for _, row := range t.TableRows {
		for _, cell := range row.TableCells {
			for _, p := range cell.Paragraphs {
				checkParagraph(p, spec, report)
			}
			for _, nested := range cell.Tables {
				checkTable(nested, spec, report)
			}
		}
	}
}

func checkRun(r *docx.Run, spec FontSpec, report *FontReport) {
	report.Runs++
	if r.RunProperties == nil || r.RunProperties.Fonts == nil {
		report.Mismatched++
		return
	}
	fonts := r.RunProperties.Fonts
	if fonts.ASCII != spec.Default || fonts.HAnsi != spec.Default || fonts.EastAsia != spec.EastAsia {
		report.Mismatched++
	}
}
