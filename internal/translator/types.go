package translator

import (
	"context"
	"time"
)

// ServiceConfig carries per-call overrides. Zero values keep what the
// service was constructed with.
type ServiceConfig struct {
	Credentials string `mapstructure:"credentials" json:"credentials"`
	APIKey      string `mapstructure:"api_key" json:"api_key"`
	Model       string `mapstructure:"model" json:"model"`
	// MaxRetries bounds the retries of a rate-limited (HTTP 429) request.
	MaxRetries int `mapstructure:"max_retries" json:"max_retries"`
}

type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	// Domain names the subject area the translator should assume,
	// e.g. "chemistry and environmental science".
	Domain string `json:"domain,omitempty"`
	// Instructions are appended to the system prompt of LLM backends.
	Instructions  string            `json:"instructions,omitempty"`
	GlossaryTerms map[string]string `json:"glossary_terms,omitempty"`
}

type ServiceResult struct {
	ServiceName    string            `json:"service_name"`
	TranslatedText string            `json:"translated_text"`
	Metadata       map[string]string `json:"metadata"`
	Latency        time.Duration     `json:"latency"`
	Error          string            `json:"error,omitempty"`
}

// TranslationService is one translation backend. A returned error or a
// non-empty ServiceResult.Error both mean the call did not succeed.
type TranslationService interface {
	Name() string
	Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error)
	IsAvailable(ctx context.Context) error
}
