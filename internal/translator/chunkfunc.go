package translator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/valpere/mdtran/internal/orchestrator"
	"github.com/valpere/mdtran/internal/placeholder"
	"github.com/valpere/mdtran/internal/refiner"
)

// LanguageValidator is satisfied by *validator.Validator.
type LanguageValidator interface {
	IsValid(translatedText, targetLang string) (bool, error)
}

type ChunkOptions struct {
	Service       ServiceConfig
	SourceLang    string
	TargetLang    string
	Domain        string
	Instructions  string
	GlossaryTerms map[string]string
	// Protect replaces code, math and HTML tags with [PHn] markers before
	// the chunk is sent, and restores them afterwards.
	Protect bool
	// Validator, when set, rejects translations not in TargetLang.
	Validator LanguageValidator
	// Refiner, when set, runs a second editing pass over each draft. A
	// failed or marker-losing refinement keeps the draft.
	Refiner refiner.Refiner
	Logger  *slog.Logger
}

// NewChunkFunc adapts svc to the orchestrator's per-chunk contract. Every
// failure mode (transport error, ServiceResult.Error, an empty answer, a lost
// placeholder, the wrong output language) is returned as an error so the
// orchestrator keeps the original chunk.
func NewChunkFunc(svc TranslationService, opts ChunkOptions) orchestrator.ChunkFunc {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return func(ctx context.Context, chunk string) (string, error) {
		body, lead, trail := splitEdges(chunk)

		text := body
		var markers []string
		if opts.Protect {
			text, markers = placeholder.Protect(body)
			if placeholder.OnlyMarkers(text) {
				return chunk, nil
			}
		}

		instructions := opts.Instructions
		if len(markers) > 0 {
			instructions = strings.TrimSpace(instructions + " " + placeholder.InstructionHint())
		}

		result, err := svc.Translate(ctx, opts.Service, TranslateRequest{
			Text:          text,
			SourceLang:    opts.SourceLang,
			TargetLang:    opts.TargetLang,
			Domain:        opts.Domain,
			Instructions:  instructions,
			GlossaryTerms: opts.GlossaryTerms,
		})
		if err != nil {
			return "", fmt.Errorf("%s: %w", svc.Name(), err)
		}
		if result == nil {
			return "", fmt.Errorf("%s: no result", svc.Name())
		}
		if result.Error != "" {
			return "", fmt.Errorf("%s: %s", svc.Name(), result.Error)
		}

		translated := strings.TrimSpace(result.TranslatedText)
		if translated == "" {
			return "", fmt.Errorf("%s: empty translation", svc.Name())
		}

		if opts.Refiner != nil {
			translated, err = refine(ctx, opts, text, translated, markers, log)
			if err != nil {
				return "", err
			}
		}

		if len(markers) > 0 {
			if missing := placeholder.Validate(translated, markers); len(missing) > 0 {
				return "", fmt.Errorf("%s: translation lost placeholders %v", svc.Name(), missing)
			}
			translated = placeholder.Restore(translated, markers)
		}

		if opts.Validator != nil {
			if ok, err := opts.Validator.IsValid(translated, opts.TargetLang); !ok {
				if err == nil {
					err = fmt.Errorf("translation is not in %s", opts.TargetLang)
				}
				return "", fmt.Errorf("%s: %w", svc.Name(), err)
			}
		}

		return lead + translated + trail, nil
	}
}

// refine returns the refined draft, or the draft itself when refinement fails
// or drops placeholders. Only a cancelled context is reported as an error.
func refine(ctx context.Context, opts ChunkOptions, source, draft string, markers []string, log *slog.Logger) (string, error) {
	refined, err := opts.Refiner.Refine(ctx, opts.SourceLang, opts.TargetLang, source, draft)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		log.Warn("refinement failed, keeping draft", "error", err)
		return draft, nil
	}

	refined = strings.TrimSpace(refined)
	if refined == "" {
		return draft, nil
	}
	if missing := placeholder.Validate(refined, markers); len(missing) > 0 {
		log.Warn("refinement lost placeholders, keeping draft", "missing", missing)
		return draft, nil
	}
	return refined, nil
}

// splitEdges separates the leading and trailing whitespace of a chunk so the
// blank lines around it survive a model that trims its output.
func splitEdges(chunk string) (body, lead, trail string) {
	body = strings.TrimSpace(chunk)
	if body == "" {
		return "", chunk, ""
	}
	start := strings.Index(chunk, body)
	return body, chunk[:start], chunk[start+len(body):]
}
