// Package detector identifies the language of a text with lingua-go.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector. When isoCodes names at least two known ISO 639-1
// languages only those are considered, which is faster and more accurate;
// otherwise every language lingua knows is loaded.
func New(isoCodes ...string) *Detector {
	builder := lingua.NewLanguageDetectorBuilder()

	langs := Languages(isoCodes...)
	var detector lingua.LanguageDetector
	if len(langs) >= 2 {
		detector = builder.FromLanguages(langs...).Build()
	} else {
		detector = builder.FromAllLanguages().Build()
	}

	return &Detector{detector: detector}
}

// Languages maps ISO 639-1 codes ("en", "ZH") to lingua languages.
// Unknown codes are dropped.
func Languages(isoCodes ...string) []lingua.Language {
	var langs []lingua.Language
	seen := make(map[lingua.Language]bool)
	for _, code := range isoCodes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		for _, lang := range lingua.AllLanguages() {
			if strings.EqualFold(lang.IsoCode639_1().String(), code) && !seen[lang] {
				seen[lang] = true
				langs = append(langs, lang)
			}
		}
	}
	return langs
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if strings.TrimSpace(text) == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the upper-case ISO 639-1 code of the detected language.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return lang.IsoCode639_1().String(), true
}
