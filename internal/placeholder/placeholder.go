// Package placeholder protects content an LLM must not touch (fenced code
// blocks, inline code spans, TeX math and HTML tags) by replacing it with
// numbered markers ([PH0], [PH1], …) that the model is instructed to keep.
// After translation, Restore substitutes the markers back.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// fenced code blocks: ```...``` or ~~~...~~~ (non-greedy, may span lines)
	reFencedCode = regexp.MustCompile("(?s)```.*?```|~~~.*?~~~")

	// display math: $$...$$ (may span lines)
	reDisplayMath = regexp.MustCompile(`(?s)\$\$.+?\$\$`)

	// inline code spans: `...`
	reInlineCode = regexp.MustCompile("`[^`]+`")

	// inline math: $x$, no space just inside the dollars, single line
	reInlineMath = regexp.MustCompile(`\$[^\s$](?:[^$\n]*[^\s$])?\$`)

	// HTML/XML tags: opening, closing, and self-closing
	reHTMLTag = regexp.MustCompile(`<[^>\n]+>`)

	// placeholder reference in translated text
	rePlaceholder = regexp.MustCompile(`\[PH(\d+)\]`)
)

// Protect replaces protected content with numbered placeholders [PH0],
// [PH1], … and returns the modified text together with the captured
// originals so Restore can put them back. Numbering follows the order of the
// passes, not the position in text.
func Protect(text string) (string, []string) {
	var markers []string

	replace := func(match string) string {
		id := fmt.Sprintf("[PH%d]", len(markers))
		markers = append(markers, match)
		return id
	}

	// Order matters: block constructs first, so their contents are not
	// picked up by the inline passes.
	text = reFencedCode.ReplaceAllStringFunc(text, replace)
	text = reDisplayMath.ReplaceAllStringFunc(text, replace)
	text = reInlineCode.ReplaceAllStringFunc(text, replace)
	text = replaceInlineMath(text, replace)
	text = reHTMLTag.ReplaceAllStringFunc(text, replace)

	return text, markers
}

// replaceInlineMath skips matches followed by a digit, so "$5 and $10" is
// read as prices rather than as math.
func replaceInlineMath(text string, replace func(string) string) string {
	locs := reInlineMath.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text
	}

	var sb strings.Builder
	last := 0
	for _, loc := range locs {
		if loc[1] < len(text) && text[loc[1]] >= '0' && text[loc[1]] <= '9' {
			continue
		}
		sb.WriteString(text[last:loc[0]])
		sb.WriteString(replace(text[loc[0]:loc[1]]))
		last = loc[1]
	}
	sb.WriteString(text[last:])
	return sb.String()
}

// Restore substitutes [PHn] markers in text back with the originals captured
// by Protect. Unrecognised indices leave the placeholder as-is.
func Restore(text string, markers []string) string {
	return rePlaceholder.ReplaceAllStringFunc(text, func(match string) string {
		sub := rePlaceholder.FindStringSubmatch(match)
		idx, err := strconv.Atoi(sub[1])
		if err != nil || idx >= len(markers) {
			return match
		}
		return markers[idx]
	})
}

// InstructionHint returns a short sentence to append to an LLM prompt so the
// model knows to leave placeholders intact.
func InstructionHint() string {
	return "Keep every [PHn] marker exactly as it appears. Do not translate, move or remove markers."
}

// Validate returns the indices of markers created by Protect that are missing
// from the translated text.
func Validate(text string, markers []string) []int {
	var missing []int
	for i := range markers {
		if !strings.Contains(text, fmt.Sprintf("[PH%d]", i)) {
			missing = append(missing, i)
		}
	}
	return missing
}

// OnlyMarkers reports whether protected text has nothing left to translate.
func OnlyMarkers(text string) bool {
	return strings.TrimSpace(rePlaceholder.ReplaceAllString(text, "")) == ""
}
