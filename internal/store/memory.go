package store

import (
	"context"
	"strings"

	"github.com/valpere/mdtran/internal/chunker"
)

// ChunkMemory binds the store to one language pair and service so it can
// serve as the orchestrator's translation memory.
type ChunkMemory struct {
	Store      *Store
	SourceLang string
	TargetLang string
	Service    string
	// FuzzyThreshold enables near-match lookups when > 0. Chunks holding a
	// code fence or a table only ever match exactly.
	FuzzyThreshold float64
}

// Lookup returns the cached translation of chunk. Entries are stored without
// surrounding whitespace; the chunk's own leading and trailing whitespace is
// put back around the hit.
func (m *ChunkMemory) Lookup(ctx context.Context, chunk string) (string, bool, error) {
	text, found, err := m.Store.GetCachedTranslation(ctx, chunk, m.SourceLang, m.TargetLang, m.Service)
	if err != nil || !found {
		if err == nil && m.FuzzyThreshold > 0 && prose(chunk) {
			text, found, err = m.Store.FuzzyGetCachedTranslation(ctx, chunk, m.SourceLang, m.TargetLang, m.Service, m.FuzzyThreshold)
			if found && !prose(text) {
				found = false
			}
		}
		if err != nil || !found {
			return "", false, err
		}
	}
	lead, trail := edges(chunk)
	return lead + text + trail, true, nil
}

func (m *ChunkMemory) Save(ctx context.Context, chunk, translated string) error {
	return m.Store.SaveToMemory(ctx, chunk, m.SourceLang, m.TargetLang, m.Service, strings.TrimSpace(translated))
}

// prose reports whether text has no atomic blocks. A near match must never
// carry another chunk's code or table cells into this one.
func prose(text string) bool {
	for _, b := range chunker.Blocks(text) {
		if b.Kind != chunker.PlainLine {
			return false
		}
	}
	return true
}

func edges(s string) (lead, trail string) {
	body := strings.TrimSpace(s)
	if body == "" {
		return s, ""
	}
	i := strings.Index(s, body)
	return s[:i], s[i+len(body):]
}
