package translator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/valpere/mdtran/internal/postprocess"
)

const (
	DefaultDashScopeURL   = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DefaultDashScopeModel = "qwen-plus"
)

// DashScopeService translates with Qwen models through Alibaba Cloud Model
// Studio's OpenAI-compatible endpoint.
type DashScopeService struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

func NewDashScopeService(apiKey, baseURL, model string) *DashScopeService {
	if baseURL == "" {
		baseURL = DefaultDashScopeURL
	}
	if model == "" {
		model = DefaultDashScopeModel
	}
	return &DashScopeService{
		apiKey:      apiKey,
		baseURL:     baseURL,
		model:       model,
		temperature: 0.3,
		maxTokens:   2000,
		client:      &http.Client{Timeout: 120 * time.Second},
	}
}

func (s *DashScopeService) Name() string {
	return "dashscope"
}

func (s *DashScopeService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	apiKey := s.apiKey
	if apiKey == "" && cfg.APIKey != "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		result.Error = "DashScope API key required"
		return result, fmt.Errorf("DashScope API key required")
	}

	model := s.model
	if cfg.Model != "" {
		model = cfg.Model
	}

	resp, err := chatCompletion(ctx, s.client, s.baseURL, apiKey, nil, chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: buildSystemPrompt(req)},
			{Role: "user", Content: req.Text},
		},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	}, cfg.MaxRetries)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	result.TranslatedText = postprocess.Clean(resp.Choices[0].Message.Content)
	result.Metadata = map[string]string{
		"model":             model,
		"finish_reason":     resp.Choices[0].FinishReason,
		"prompt_tokens":     fmt.Sprintf("%d", resp.Usage.PromptTokens),
		"completion_tokens": fmt.Sprintf("%d", resp.Usage.CompletionTokens),
	}

	if resp.Choices[0].FinishReason == "length" {
		// A truncated translation would silently drop the end of the chunk.
		result.Error = "translation truncated at max_tokens"
		return result, fmt.Errorf("translation truncated at max_tokens")
	}

	return result, nil
}

func (s *DashScopeService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("DashScope API key not configured")
	}
	return nil
}
