/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valpere/mdtran/internal/batch"
	"github.com/valpere/mdtran/internal/config"
	"github.com/valpere/mdtran/internal/detector"
	"github.com/valpere/mdtran/internal/markdown"
	"github.com/valpere/mdtran/internal/orchestrator"
	"github.com/valpere/mdtran/internal/refiner"
	"github.com/valpere/mdtran/internal/store"
	"github.com/valpere/mdtran/internal/translator"
	"github.com/valpere/mdtran/internal/validator"
)

var translateCmd = &cobra.Command{
	Use:   "translate [dir|file]",
	Short: "Translate Markdown documents",
	Long: `Translate every *.md document under a directory (the current directory by
default), or a single file, writing <name>_zh.md next to each source.

Existing translations under the directory are deleted first. Documents are
split into chunks that never break a fenced code block or a pipe table; a
chunk the service fails on is kept in the source language.

Available services:
  - dashscope   Alibaba Cloud Qwen (ALIYUN_KEY in the credential file)
  - openrouter  OpenRouter LLM (OPENROUTER_API_KEY in the credential file)
  - ollama      Ollama LLM (self-hosted)
  - google      Google Translate (service account via --credentials)

Two-pass translation:
  --refine      Polish every chunk with a local Ollama model`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}

		info, err := os.Stat(root)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: %s", batch.ErrInputDirMissing, root)
			}
			return err
		}

		ctx, cancel := runContext(cmd)
		defer cancel()

		svc, err := buildService(cfg)
		if err != nil {
			return err
		}

		sourceLang := cfg.SourceLang
		if !info.IsDir() && isAuto(sourceLang) {
			if detected, ok := detectLanguage(root); ok {
				sourceLang = detected
				logger.Info("detected source language", "lang", sourceLang)
			}
		}

		var db *store.Store
		if cfg.DB != "" {
			db, err = openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
		}

		opts := translator.ChunkOptions{
			// The model and endpoint are fixed by buildService.
			Service:    translator.ServiceConfig{MaxRetries: cfg.MaxRetries},
			SourceLang: sourceLang,
			TargetLang: cfg.TargetLang,
			Domain:     cfg.Domain,
			Protect:    cfg.Protect,
			Logger:     logger,
		}
		if db != nil {
			terms, err := db.GetGlossaryTerms(ctx, sourceLang, cfg.TargetLang)
			if err != nil {
				logger.Warn("failed to load glossary", "error", err)
			} else if len(terms) > 0 {
				opts.GlossaryTerms = terms
				logger.Info("loaded glossary", "terms", len(terms))
			}
		}
		if cfg.CheckLanguage {
			codes := []string{cfg.TargetLang}
			if !isAuto(sourceLang) {
				codes = append(codes, sourceLang)
			}
			opts.Validator = validator.New(codes...)
		}
		if cfg.Refine {
			opts.Refiner = refiner.NewOllamaRefiner(cfg.RefineModel, cfg.RefineURL, cfg.Domain, cfg.MaxRetries)
		}

		orch := orchestrator.New(translator.NewChunkFunc(svc, opts), orchestratorConfig(cfg, svc.Name(), sourceLang, db))

		tr := batch.New(orch, batch.Config{
			Suffix:     cfg.Suffix,
			FileDelay:  cfg.FileDelay,
			SourceLang: sourceLang,
			TargetLang: cfg.TargetLang,
			Service:    svc.Name(),
			Recorder:   recorder(db),
			Logger:     logger,
		})

		if !info.IsDir() {
			fr := tr.TranslateFile(ctx, root)
			if fr.Err != nil {
				return fr.Err
			}
			fmt.Printf("Translated %s -> %s\n", fr.Source, fr.Output)
			printChunkCounts(fr.Result)
			return nil
		}

		summary, err := tr.Run(ctx, root)
		if summary != nil {
			printBatchSummary(summary)
		}
		if err != nil {
			return err
		}
		if summary.Found > 0 && summary.Translated == 0 {
			return fmt.Errorf("all %d documents failed", summary.Failed)
		}
		return nil
	},
}

func orchestratorConfig(c *config.Config, service, sourceLang string, db *store.Store) orchestrator.OrchestratorConfig {
	oc := orchestrator.OrchestratorConfig{
		MaxChunkSize: c.ChunkSize,
		Delay:        c.ChunkDelay,
		Logger:       logger,
		Progress: func(done, total int) {
			logger.Debug("chunk done", "done", done, "total", total)
		},
	}
	if c.Pacing == config.PacingRate {
		oc.Pacer = orchestrator.RateLimit(c.ChunkDelay)
	}
	if db != nil && !c.NoCache {
		oc.Memory = &store.ChunkMemory{
			Store:          db,
			SourceLang:     sourceLang,
			TargetLang:     c.TargetLang,
			Service:        service,
			FuzzyThreshold: c.FuzzyThreshold,
		}
	}
	return oc
}

// recorder avoids handing batch a non-nil interface holding a nil store.
func recorder(db *store.Store) batch.Recorder {
	if db == nil {
		return nil
	}
	return db
}

func isAuto(lang string) bool {
	return lang == "" || strings.EqualFold(lang, "auto")
}

func detectLanguage(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	code, ok := detector.New().DetectISO(markdown.ToPlainText(data))
	if !ok {
		return "", false
	}
	return strings.ToLower(code), true
}

func printChunkCounts(r *orchestrator.Result) {
	fmt.Printf("Chunks: %d (translated %d, cached %d, skipped %d, kept original %d)\n",
		r.Chunks, r.Translated, r.Cached, r.Skipped, r.Fallbacks)
}

func printBatchSummary(s *batch.Summary) {
	for _, f := range s.Files {
		if f.Err != nil {
			fmt.Printf("FAILED  %s: %v\n", f.Source, f.Err)
			continue
		}
		fmt.Printf("OK      %s -> %s (%d chunks, %d kept original)\n",
			f.Source, f.Output, f.Result.Chunks, f.Result.Fallbacks)
	}
	fmt.Printf("Deleted %d old translations, translated %d/%d documents, %d failed\n",
		s.Deleted, s.Translated, s.Found, s.Failed)
}

func init() {
	rootCmd.AddCommand(translateCmd)

	d := config.Defaults()
	f := translateCmd.Flags()
	f.String("service", d.Service, "Translation service: "+strings.Join(config.Services, ", "))
	f.String("model", d.Model, "Model name (comma-separated list for openrouter; service default if empty)")
	f.String("base-url", d.BaseURL, "Service endpoint (service default if empty)")
	f.StringP("credentials", "c", d.Credentials, "Path to Google Cloud credentials")
	f.StringP("source", "s", d.SourceLang, "Source language code (detected for single files when empty or auto)")
	f.StringP("target", "t", d.TargetLang, "Target language code")
	f.String("domain", d.Domain, "Subject area named in the prompt (default \""+translator.DefaultDomain+"\")")

	f.Int("chunk-size", d.ChunkSize, "Maximum chunk size in characters")
	f.Duration("chunk-delay", d.ChunkDelay, "Pause between service calls")
	f.String("pacing", d.Pacing, "Pacing mode: fixed or rate")
	f.Duration("file-delay", d.FileDelay, "Pause between documents")
	f.String("suffix", d.Suffix, "Suffix of translated files")

	f.Bool("no-cache", d.NoCache, "Disable translation memory cache")
	f.Float64("fuzzy-threshold", d.FuzzyThreshold, "Reuse cached prose chunks at least this similar; code and table chunks match exactly (0 disables)")
	f.Bool("protect", d.Protect, "Replace code, math and HTML tags with placeholders before translating")
	f.Bool("validate", d.CheckLanguage, "Reject chunk translations not in the target language")
	f.Int("max-retries", d.MaxRetries, "Retries per request on HTTP 429")
	f.Duration("timeout", d.Timeout, "Abort the whole run after this long (0 means no limit)")

	f.Bool("refine", d.Refine, "Enable second-pass refinement with Ollama")
	f.String("refine-model", d.RefineModel, "Refiner model name")
	f.String("refine-url", d.RefineURL, "Refiner Ollama URL")
}
