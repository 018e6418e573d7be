package internal

import "time"

// TranslationRun is the record of translating one document.
type TranslationRun struct {
	ID         string    `json:"id"`
	SourcePath string    `json:"source_path"`
	OutputPath string    `json:"output_path"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	Service    string    `json:"service"`
	Chunks     int       `json:"chunks"`
	Translated int       `json:"translated"`
	Cached     int       `json:"cached"`
	Skipped    int       `json:"skipped"`
	Fallbacks  int       `json:"fallbacks"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)
