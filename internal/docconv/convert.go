// Package docconv turns translated Markdown documents into DOCX files with
// pandoc and applies the document fonts to the result.
package docconv

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

	"github.com/valpere/mdtran/internal/fileutil"
)

type ConverterConfig struct {
	// Pandoc is the converter binary, "pandoc" by default.
	Pandoc string
	Fonts  FontSpec
	// Suffix, when set, limits ConvertAll to files named *<Suffix>.md.
	Suffix string
	Runner CommandRunner
	Logger *slog.Logger
}

type Converter struct {
	config ConverterConfig
	runner CommandRunner
	log    *slog.Logger
}

// Summary counts the outcome of ConvertAll.
type Summary struct {
	Found     int
	Converted int
	Failed    int
}

func NewConverter(config ConverterConfig) *Converter {
	if config.Pandoc == "" {
		config.Pandoc = "pandoc"
	}
	if config.Fonts == (FontSpec{}) {
		config.Fonts = DefaultFontSpec()
	}
	runner := config.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	log := config.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Converter{config: config, runner: runner, log: log}
}

// ConvertFile converts mdPath into <stem>.docx next to it and returns the
// output path. HTML tables in the Markdown file are rewritten to pipe tables
// in place first. pandoc writes to a temporary file that replaces the output
// only after the fonts are applied and verified, so a failed conversion
// leaves any previous <stem>.docx as it was.
func (c *Converter) ConvertFile(ctx context.Context, mdPath string) (string, error) {
	dir := filepath.Dir(mdPath)
	name := filepath.Base(mdPath)
	outName := strings.TrimSuffix(name, filepath.Ext(name)) + ".docx"
	outPath := filepath.Join(dir, outName)

	switch err := RewriteTablesFile(mdPath); {
	case err == nil:
		c.log.Info("rewrote HTML tables", "file", mdPath)
	case errors.Is(err, ErrNoTables):
	default:
		return "", err
	}

	c.log.Info("converting", "file", mdPath, "output", outPath)
	tmp, err := fileutil.CreateTempNear(outPath)
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	_, stderr, err := c.runner.Run(ctx, dir, c.config.Pandoc, pandocArgs(name, filepath.Base(tmpPath))...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%s %s: %w: %s", c.config.Pandoc, name, err, strings.TrimSpace(stderr))
	}

	if entries, err := os.ReadDir(filepath.Join(dir, "media")); err == nil && len(entries) > 0 {
		c.log.Debug("media extracted", "dir", filepath.Join(dir, "media"), "files", len(entries))
	}

	runs, err := ApplyFonts(tmpPath, c.config.Fonts)
	if err != nil {
		return "", fmt.Errorf("apply fonts to %s: %w", outPath, err)
	}

	report, err := CheckFonts(tmpPath, c.config.Fonts)
	if err != nil {
		return "", fmt.Errorf("verify fonts in %s: %w", outPath, err)
	}
	if report.Mismatched > 0 {
		return "", fmt.Errorf("verify fonts in %s: %d of %d runs not updated", outPath, report.Mismatched, report.Runs)
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return "", fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return "", fmt.Errorf("replace %s: %w", outPath, err)
	}
	c.log.Info("fonts applied", "file", outPath, "runs", runs)

	return outPath, nil
}

// ConvertAll converts every Markdown file under root. A failing document is
// logged and skipped. A missing pandoc binary aborts before any work.
func (c *Converter) ConvertAll(ctx context.Context, root string) (*Summary, error) {
	if _, ok := c.runner.(ExecRunner); ok {
		if _, err := LookPandoc(c.config.Pandoc); err != nil {
			return nil, err
		}
	}

	files, err := c.findMarkdown(root)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Found: len(files)}
	if len(files) == 0 {
		c.log.Info("no markdown files found", "dir", root)
		return summary, nil
	}
	c.log.Info("found markdown files", "dir", root, "count", len(files))

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if _, err := c.ConvertFile(ctx, path); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			summary.Failed++
			c.log.Error("conversion failed", "file", path, "error", err)
			continue
		}
		summary.Converted++
	}

	c.log.Info("conversion completed", "converted", summary.Converted, "failed", summary.Failed)
	return summary, nil
}

func (c *Converter) findMarkdown(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input directory: %s is not a directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}
		if c.config.Suffix != "" && !strings.HasSuffix(strings.TrimSuffix(path, ".md"), c.config.Suffix) {
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
