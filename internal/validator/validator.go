// Package validator checks that a translation result is in the expected target language.
package validator

import (
	"fmt"
	"strings"

	"github.com/valpere/mdtran/internal/detector"
	"github.com/valpere/mdtran/internal/markdown"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and are accepted without validation.
const minValidationLength = 20

// Validator checks that a translation result is written in the expected target language.
// The underlying language detector is expensive to build; reuse the instance.
type Validator struct {
	det *detector.Detector
}

// New creates a Validator backed by the lingua-go language detector. The
// optional isoCodes restrict detection to those languages; they should
// include both the source and the target language.
func New(isoCodes ...string) *Validator {
	return &Validator{det: detector.New(isoCodes...)}
}

// IsValid returns true when translatedText appears to be written in targetLang.
//
// The Markdown is reduced to its prose first, so code, formulas inside code
// spans and raw HTML do not skew detection. Short texts (fewer than
// minValidationLength runes) and texts whose language cannot be determined
// pass without error. When the detected language differs from targetLang the
// returned error names both codes.
func (v *Validator) IsValid(translatedText, targetLang string) (bool, error) {
	if targetLang == "" {
		return true, nil
	}

	if strings.TrimSpace(translatedText) == "" {
		return false, fmt.Errorf("translation is empty")
	}

	text := markdown.ToPlainText([]byte(translatedText))

	// Detector is unreliable for very short texts; skip validation.
	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		return true, nil
	}

	if !strings.EqualFold(detected, primarySubtag(targetLang)) {
		return false, fmt.Errorf("expected %s but detected %s", targetLang, detected)
	}

	return true, nil
}

// primarySubtag reduces "zh-CN" or "zh_Hans" to "zh".
func primarySubtag(lang string) string {
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		return lang[:i]
	}
	return lang
}
