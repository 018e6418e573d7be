package translator

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultDomain is the subject area assumed when a request names none.
const DefaultDomain = "chemistry and environmental science"

// languageName turns a BCP 47 code into an English language name for
// prompts ("zh" → "Chinese"). Unknown or empty codes are returned unchanged.
func languageName(code string) string {
	if code == "" || code == "auto" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

// buildSystemPrompt constructs the instruction prefix sent ahead of every
// chunk to LLM backends.
func buildSystemPrompt(req TranslateRequest) string {
	var sb strings.Builder

	domain := req.Domain
	if domain == "" {
		domain = DefaultDomain
	}

	target := languageName(req.TargetLang)
	source := languageName(req.SourceLang)

	fmt.Fprintf(&sb, "You are a professional translator specialising in %s. ", domain)
	if source != "" {
		fmt.Fprintf(&sb, "Translate the following Markdown from %s to %s accurately and fluently.\n", source, target)
	} else {
		fmt.Fprintf(&sb, "Translate the following Markdown to %s accurately and fluently.\n", target)
	}
	sb.WriteString("The text may contain chemical formulas and technical terminology; keep formulas, units and symbols unchanged. ")
	sb.WriteString("Keep the Markdown structure (headings, lists, tables, links, code) exactly as it is. ")
	sb.WriteString("Preserve the meaning, do not add explanations, do not repeat the source text, output only the translation.")

	if req.Instructions != "" {
		sb.WriteString(" ")
		sb.WriteString(req.Instructions)
	}

	if len(req.GlossaryTerms) > 0 {
		terms := make([]string, 0, len(req.GlossaryTerms))
		for src := range req.GlossaryTerms {
			terms = append(terms, src)
		}
		sort.Strings(terms)

		sb.WriteString("\n\nTERMINOLOGY (use these exact translations):\n")
		for _, src := range terms {
			fmt.Fprintf(&sb, "  %s → %s\n", src, req.GlossaryTerms[src])
		}
	}

	return sb.String()
}
