package refiner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/valpere/mdtran/internal/httputil"
	"github.com/valpere/mdtran/internal/postprocess"
)

// OllamaRefiner uses a local Ollama model as a technical editor.
type OllamaRefiner struct {
	model      string
	baseURL    string
	domain     string
	maxRetries int
	client     *http.Client
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// NewOllamaRefiner creates a refiner backed by a local Ollama model. domain
// names the subject area the editor specialises in.
func NewOllamaRefiner(model, baseURL, domain string, maxRetries int) *OllamaRefiner {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaRefiner{
		model:      model,
		baseURL:    baseURL,
		domain:     domain,
		maxRetries: maxRetries,
		client:     &http.Client{Timeout: 300 * time.Second},
	}
}

// Refine sends the draft to the model with an editor prompt and returns the
// polished translation, or the draft when the model answers with nothing.
func (r *OllamaRefiner) Refine(ctx context.Context, sourceLang, targetLang, sourceText, draftText string) (string, error) {
	jsonData, err := json.Marshal(ollamaRequest{
		Model:   r.model,
		Prompt:  buildRefinementPrompt(r.domain, sourceLang, targetLang, sourceText, draftText),
		Stream:  false,
		Options: map[string]any{"temperature": 0.2},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal refinement request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/api/generate", r.baseURL), bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create refinement request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, r.client, req, r.maxRetries)
	if err != nil {
		return "", fmt.Errorf("refinement request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("refiner returned status %d", resp.StatusCode)
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("failed to decode refinement response: %w", err)
	}

	refined := postprocess.Clean(ollamaResp.Response)
	if refined == "" {
		return draftText, nil
	}
	return refined, nil
}

func buildRefinementPrompt(domain, sourceLang, targetLang, sourceText, draftText string) string {
	if sourceLang == "" || sourceLang == "auto" {
		sourceLang = "source language"
	}
	return fmt.Sprintf(`You are a senior technical editor for %s texts written in %s.

# YOUR TASK: REVIEW AND CORRECT

You will receive a DRAFT %s translation of a Markdown fragment.
Fix mistranslated terms, awkward phrasing and omissions.

ORIGINAL (%s):
%s

DRAFT TRANSLATION (%s):
%s

# RULES

- Use the standard %s terminology of the field.
- Keep formulas, units, numbers and symbols exactly as they are.
- Keep the Markdown structure (headings, lists, tables, links) unchanged.
- Keep every [PHn] marker exactly as it appears in the draft.
- If the draft is already good, return it unchanged.

Output ONLY the corrected translation in %s. Do not include any explanation.`,
		domain, targetLang,
		targetLang,
		sourceLang, sourceText,
		targetLang, draftText,
		targetLang,
		targetLang,
	)
}
