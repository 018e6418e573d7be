// Package refiner implements the optional second pass over a translated
// chunk: an LLM acting as a technical editor polishes the draft against the
// source text.
package refiner

import "context"

// Refiner reviews and improves a draft translation. Implementations return
// the draft unchanged when they have nothing better.
type Refiner interface {
	Refine(ctx context.Context, sourceLang, targetLang, sourceText, draftText string) (string, error)
}
