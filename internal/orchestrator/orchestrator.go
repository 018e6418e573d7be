// Package orchestrator translates a document chunk by chunk. Chunks are sent
// to an injected ChunkFunc strictly one at a time, in document order, with a
// pause between calls; results are joined back in the original order. A chunk
// whose translation fails is kept untranslated and never aborts the run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/valpere/mdtran/internal/chunker"
)

var ErrNoChunkFunc = errors.New("orchestrator: no chunk translation function")

// ChunkFunc translates one chunk. Any returned error is a non-success and
// makes the orchestrator fall back to the original chunk text.
type ChunkFunc func(ctx context.Context, chunk string) (string, error)

// Memory is an optional translation memory consulted before each call.
type Memory interface {
	Lookup(ctx context.Context, chunk string) (string, bool, error)
	Save(ctx context.Context, chunk, translated string) error
}

type OrchestratorConfig struct {
	MaxChunkSize int
	// Delay is the pause after every external call. Ignored when Pacer is set.
	Delay  time.Duration
	Pacer  Pacer
	Memory Memory
	Logger *slog.Logger
	// Progress, when set, is called after each chunk with the number of
	// chunks processed so far.
	Progress func(done, total int)
}

// ChunkFailure records a chunk that fell back to its original text.
type ChunkFailure struct {
	Index int
	Err   error
}

func (f ChunkFailure) Error() string {
	return fmt.Sprintf("chunk %d: %v", f.Index+1, f.Err)
}

func (f ChunkFailure) Unwrap() error { return f.Err }

type Result struct {
	Text       string
	Chunks     int
	Translated int
	Cached     int
	Skipped    int
	Fallbacks  int
	Failures   []ChunkFailure
}

type Orchestrator struct {
	translate ChunkFunc
	config    OrchestratorConfig
	pacer     Pacer
	log       *slog.Logger
}

func New(translate ChunkFunc, config OrchestratorConfig) *Orchestrator {
	if config.MaxChunkSize <= 0 {
		config.MaxChunkSize = chunker.DefaultMaxChunkSize
	}
	pacer := config.Pacer
	if pacer == nil {
		pacer = FixedDelay(config.Delay)
	}
	log := config.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		translate: translate,
		config:    config,
		pacer:     pacer,
		log:       log,
	}
}

// Translate splits document into chunks, translates them in order and joins
// the results with "\n". It returns an error only when the context is
// cancelled; in that case no text is returned.
func (o *Orchestrator) Translate(ctx context.Context, document string) (*Result, error) {
	if o.translate == nil {
		return nil, ErrNoChunkFunc
	}

	chunks := chunker.Split(document, o.config.MaxChunkSize)
	o.log.Info("split document", "chunks", len(chunks), "max_chunk_size", o.config.MaxChunkSize)

	result := &Result{Chunks: len(chunks)}
	out := make([]string, len(chunks))

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := o.translateChunk(ctx, i, len(chunks), chunk, result)
		if err != nil {
			return nil, err
		}
		out[i] = text

		if o.config.Progress != nil {
			o.config.Progress(i+1, len(chunks))
		}
	}

	result.Text = strings.Join(out, "\n")
	return result, nil
}

// translateChunk returns the text to use for chunk i. The error is non-nil
// only when ctx was cancelled while pacing.
func (o *Orchestrator) translateChunk(ctx context.Context, i, total int, chunk string, result *Result) (string, error) {
	if strings.TrimSpace(chunk) == "" {
		result.Skipped++
		return chunk, nil
	}

	if o.config.Memory != nil {
		cached, found, err := o.config.Memory.Lookup(ctx, chunk)
		if err != nil {
			o.log.Warn("translation memory lookup failed", "chunk", i+1, "error", err)
		} else if found {
			result.Cached++
			o.log.Debug("chunk served from translation memory", "chunk", i+1, "total", total)
			return cached, nil
		}
	}

	o.log.Info("translating chunk", "chunk", i+1, "total", total, "size", chunker.Size(chunk))
	start := time.Now()
	translated, err := o.translate(ctx, chunk)

	text := translated
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		failure := ChunkFailure{Index: i, Err: err}
		result.Failures = append(result.Failures, failure)
		result.Fallbacks++
		o.log.Warn("chunk translation failed, keeping original text",
			"chunk", i+1, "total", total, "error", err)
		text = chunk
	} else {
		result.Translated++
		o.log.Debug("chunk translated", "chunk", i+1, "latency", time.Since(start))
		if o.config.Memory != nil {
			if err := o.config.Memory.Save(ctx, chunk, translated); err != nil {
				o.log.Warn("failed to save chunk to translation memory", "chunk", i+1, "error", err)
			}
		}
	}

	if err := o.pacer.Wait(ctx); err != nil {
		return "", err
	}
	return text, nil
}

// Translate is a convenience wrapper: it translates document with fn using a
// fixed delay between calls and returns the joined text.
func Translate(ctx context.Context, document string, fn ChunkFunc, maxChunkSize int, delay time.Duration) (string, error) {
	res, err := New(fn, OrchestratorConfig{MaxChunkSize: maxChunkSize, Delay: delay}).Translate(ctx, document)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
