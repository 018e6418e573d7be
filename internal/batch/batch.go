// Package batch translates every Markdown document under a directory tree,
// writing each translation next to its source as <stem><suffix>.md.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/valpere/mdtran/internal"
	"github.com/valpere/mdtran/internal/fileutil"
	"github.com/valpere/mdtran/internal/orchestrator"
)

// DefaultSuffix marks translated artifacts.
const DefaultSuffix = "_zh"

var ErrInputDirMissing = errors.New("input directory does not exist")

// DocumentTranslator is satisfied by *orchestrator.Orchestrator.
type DocumentTranslator interface {
	Translate(ctx context.Context, document string) (*orchestrator.Result, error)
}

// Recorder keeps a history of document runs. Satisfied by *store.Store.
type Recorder interface {
	StartRun(ctx context.Context, run internal.TranslationRun) (string, error)
	FinishRun(ctx context.Context, run internal.TranslationRun) error
}

type Config struct {
	Suffix string
	// FileDelay is the pause between two documents.
	FileDelay  time.Duration
	SourceLang string
	TargetLang string
	Service    string
	Recorder   Recorder
	Logger     *slog.Logger
}

type Translator struct {
	doc    DocumentTranslator
	config Config
	log    *slog.Logger
}

// FileResult is the outcome of one document.
type FileResult struct {
	Source string
	Output string
	Result *orchestrator.Result
	Err    error
}

type Summary struct {
	Deleted    int
	Found      int
	Translated int
	Failed     int
	// Fallbacks counts chunks kept untranslated across all documents.
	Fallbacks int
	Files     []FileResult
}

func New(doc DocumentTranslator, config Config) *Translator {
	if config.Suffix == "" {
		config.Suffix = DefaultSuffix
	}
	log := config.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Translator{doc: doc, config: config, log: log}
}

// OutputPath returns the artifact path for a source document.
func OutputPath(source, suffix string) string {
	ext := filepath.Ext(source)
	return strings.TrimSuffix(source, ext) + suffix + ext
}

// Run translates every *.md document under root. Existing artifacts are
// deleted first so stale translations never survive a run. A document that
// fails is logged and skipped; only a missing root or a cancelled context
// stop the batch.
func (t *Translator) Run(ctx context.Context, root string) (*Summary, error) {
	if !fileutil.DirExists(root) {
		return nil, fmt.Errorf("%w: %s", ErrInputDirMissing, root)
	}

	summary := &Summary{}

	deleted, err := t.deleteArtifacts(root)
	summary.Deleted = len(deleted)
	if err != nil {
		return summary, err
	}
	if len(deleted) > 0 {
		t.log.Info("deleted existing translations", "count", len(deleted), "files", preview(deleted, 5))
	} else {
		t.log.Info("no existing translations to delete")
	}

	files, err := t.findSources(root)
	if err != nil {
		return summary, err
	}
	summary.Found = len(files)
	if len(files) == 0 {
		t.log.Info("no markdown files need translation", "dir", root)
		return summary, nil
	}
	t.log.Info("found markdown files", "dir", root, "count", len(files))

	pause := orchestrator.FixedDelay(t.config.FileDelay)
	for i, path := range files {
		fr := t.TranslateFile(ctx, path)
		if fr.Err != nil && ctx.Err() != nil {
			return summary, ctx.Err()
		}

		summary.Files = append(summary.Files, fr)
		if fr.Err != nil {
			summary.Failed++
			t.log.Error("translation failed", "file", path, "error", fr.Err)
		} else {
			summary.Translated++
			summary.Fallbacks += fr.Result.Fallbacks
			t.log.Info("translated file", "file", path, "output", fr.Output,
				"chunks", fr.Result.Chunks, "fallback_chunks", fr.Result.Fallbacks)
		}

		if i < len(files)-1 {
			if err := pause.Wait(ctx); err != nil {
				return summary, err
			}
		}
	}

	t.log.Info("translation completed",
		"translated", summary.Translated, "failed", summary.Failed, "fallback_chunks", summary.Fallbacks)
	return summary, nil
}

// TranslateFile translates one document and writes its artifact.
func (t *Translator) TranslateFile(ctx context.Context, path string) FileResult {
	fr := FileResult{Source: path, Output: OutputPath(path, t.config.Suffix)}
	runID := t.startRun(ctx, fr)

	data, err := os.ReadFile(path)
	if err != nil {
		fr.Err = fmt.Errorf("read %s: %w", path, err)
		t.finishRun(ctx, runID, fr)
		return fr
	}

	t.log.Info("translating file", "file", path)
	res, err := t.doc.Translate(ctx, string(data))
	if err != nil {
		fr.Err = err
		t.finishRun(ctx, runID, fr)
		return fr
	}
	fr.Result = res

	if err := fileutil.WriteAtomic(fr.Output, []byte(res.Text), 0o644); err != nil {
		fr.Err = fmt.Errorf("write %s: %w", fr.Output, err)
	}
	t.finishRun(ctx, runID, fr)
	return fr
}

func (t *Translator) startRun(ctx context.Context, fr FileResult) string {
	if t.config.Recorder == nil {
		return ""
	}
	id, err := t.config.Recorder.StartRun(ctx, internal.TranslationRun{
		SourcePath: fr.Source,
		OutputPath: fr.Output,
		SourceLang: t.config.SourceLang,
		TargetLang: t.config.TargetLang,
		Service:    t.config.Service,
	})
	if err != nil {
		t.log.Warn("failed to record run", "file", fr.Source, "error", err)
		return ""
	}
	return id
}

func (t *Translator) finishRun(ctx context.Context, id string, fr FileResult) {
	if t.config.Recorder == nil || id == "" {
		return
	}
	run := internal.TranslationRun{ID: id, Status: internal.RunCompleted}
	if r := fr.Result; r != nil {
		run.Chunks = r.Chunks
		run.Translated = r.Translated
		run.Cached = r.Cached
		run.Skipped = r.Skipped
		run.Fallbacks = r.Fallbacks
	}
	if fr.Err != nil {
		run.Status = internal.RunFailed
		run.Error = fr.Err.Error()
	}
	// The run is recorded even when ctx was cancelled mid-document.
	if err := t.config.Recorder.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		t.log.Warn("failed to record run result", "file", fr.Source, "error", err)
	}
}

func (t *Translator) deleteArtifacts(root string) ([]string, error) {
	var deleted []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !t.isArtifact(path) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			t.log.Error("failed to delete translation", "file", path, "error", err)
			return nil
		}
		deleted = append(deleted, filepath.Base(path))
		return nil
	})
	if err != nil {
		return deleted, fmt.Errorf("walk %s: %w", root, err)
	}
	return deleted, nil
}

func (t *Translator) findSources(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".md" || t.isArtifact(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func (t *Translator) isArtifact(path string) bool {
	return strings.HasSuffix(filepath.Base(path), t.config.Suffix+".md")
}

func preview(names []string, n int) string {
	if len(names) <= n {
		return strings.Join(names, ", ")
	}
	return strings.Join(names[:n], ", ") + ", ..."
}
