package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/valpere/mdtran/internal"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_New_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/test.db")
	if err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestStore_Open_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "nested", "mdtran.db")

	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()
}

func TestStore_GetCachedTranslation_Miss(t *testing.T) {
	s := newTestStore(t)

	text, found, err := s.GetCachedTranslation(context.Background(), "Hello", "en", "zh", "dashscope")
	if err != nil {
		t.Errorf("GetCachedTranslation failed: %v", err)
	}
	if found {
		t.Error("expected not found for uncached translation")
	}
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}
}

func TestStore_GetCachedTranslation_Hit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveToMemory(ctx, "Hello", "en", "zh", "dashscope", "你好"); err != nil {
		t.Fatalf("SaveToMemory failed: %v", err)
	}

	// Surrounding whitespace does not change the key.
	text, found, err := s.GetCachedTranslation(ctx, "\n Hello \n", "en", "zh", "dashscope")
	if err != nil {
		t.Errorf("GetCachedTranslation failed: %v", err)
	}
	if !found {
		t.Error("expected to find cached translation")
	}
	if text != "你好" {
		t.Errorf("expected '你好', got %q", text)
	}

	entries, err := s.ListMemory(ctx)
	if err != nil {
		t.Fatalf("ListMemory failed: %v", err)
	}
	if len(entries) != 1 || entries[0].UsageCount != 2 {
		t.Errorf("expected one entry used twice, got %+v", entries)
	}
}

func TestStore_GetCachedTranslation_PerService(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveToMemory(ctx, "Hello", "en", "zh", "dashscope", "你好")

	_, found, err := s.GetCachedTranslation(ctx, "Hello", "en", "zh", "ollama")
	if err != nil {
		t.Fatalf("GetCachedTranslation failed: %v", err)
	}
	if found {
		t.Error("expected entries of one service not to serve another")
	}
}

func TestStore_SaveToMemory_Replaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveToMemory(ctx, "Hello", "en", "zh", "dashscope", "哈喽")
	s.SaveToMemory(ctx, "Hello", "en", "zh", "dashscope", "你好")

	text, _, _ := s.GetCachedTranslation(ctx, "Hello", "en", "zh", "dashscope")
	if text != "你好" {
		t.Errorf("expected latest translation, got %q", text)
	}
	entries, _ := s.ListMemory(ctx)
	if len(entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(entries))
	}
}

func TestStore_GetCachedTranslation_Invalidated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveToMemory(ctx, "Hello", "en", "zh", "dashscope", "你好"); err != nil {
		t.Fatalf("SaveToMemory failed: %v", err)
	}

	entries, err := s.ListMemory(ctx)
	if err != nil {
		t.Fatalf("ListMemory failed: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one entry")
	}

	if err := s.InvalidateMemory(ctx, entries[0].ID); err != nil {
		t.Fatalf("InvalidateMemory failed: %v", err)
	}

	text, found, err := s.GetCachedTranslation(ctx, "Hello", "en", "zh", "dashscope")
	if err != nil {
		t.Errorf("GetCachedTranslation failed: %v", err)
	}
	if found {
		t.Error("expected not found for invalidated translation")
	}
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.InvalidEntries != 1 || stats.ActiveEntries != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestStore_Stats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Errorf("Stats failed: %v", err)
	}
	if stats.TotalEntries != 0 {
		t.Errorf("expected 0 total entries, got %d", stats.TotalEntries)
	}

	s.SaveToMemory(ctx, "Hello", "en", "zh", "dashscope", "你好")
	s.SaveToMemory(ctx, "World", "en", "zh", "dashscope", "世界")

	stats, err = s.Stats(ctx)
	if err != nil {
		t.Errorf("Stats failed: %v", err)
	}
	if stats.TotalEntries != 2 {
		t.Errorf("expected 2 total entries, got %d", stats.TotalEntries)
	}
	if stats.ActiveEntries != 2 {
		t.Errorf("expected 2 active entries, got %d", stats.ActiveEntries)
	}
	if stats.TotalUsage != 2 {
		t.Errorf("expected usage 2, got %d", stats.TotalUsage)
	}
}

func TestStore_DeleteMemory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveToMemory(ctx, "Hello", "en", "zh", "dashscope", "你好")

	entries, err := s.ListMemory(ctx)
	if err != nil {
		t.Fatalf("ListMemory failed: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one entry")
	}

	if err := s.DeleteMemory(ctx, entries[0].ID); err != nil {
		t.Errorf("DeleteMemory failed: %v", err)
	}

	entries, err = s.ListMemory(ctx)
	if err != nil {
		t.Fatalf("ListMemory failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected 0 entries after delete, got %d", len(entries))
	}

	if err := s.DeleteMemory(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown ID, got %v", err)
	}
}

func TestStore_ClearMemory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveToMemory(ctx, "Hello", "en", "zh", "dashscope", "你好")
	s.SaveToMemory(ctx, "World", "en", "zh", "dashscope", "世界")

	count, err := s.ClearMemory(ctx)
	if err != nil {
		t.Errorf("ClearMemory failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 cleared, got %d", count)
	}

	entries, err := s.ListMemory(ctx)
	if err != nil {
		t.Fatalf("ListMemory failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected 0 entries after clear, got %d", len(entries))
	}
}

func TestStore_Runs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.StartRun(ctx, internal.TranslationRun{
		SourcePath: "docs/report.md",
		OutputPath: "docs/report_zh.md",
		SourceLang: "en",
		TargetLang: "zh",
		Service:    "dashscope",
		StartedAt:  time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated run ID")
	}

	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != internal.RunRunning || !runs[0].FinishedAt.IsZero() {
		t.Fatalf("unexpected runs before finish: %+v", runs)
	}

	err = s.FinishRun(ctx, internal.TranslationRun{
		ID:         id,
		Chunks:     5,
		Translated: 3,
		Cached:     1,
		Skipped:    0,
		Fallbacks:  1,
		Status:     internal.RunCompleted,
	})
	if err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	runs, err = s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	r := runs[0]
	if r.Status != internal.RunCompleted || r.Chunks != 5 || r.Fallbacks != 1 || r.Cached != 1 {
		t.Errorf("unexpected run %+v", r)
	}
	if r.SourcePath != "docs/report.md" || r.FinishedAt.IsZero() {
		t.Errorf("unexpected run %+v", r)
	}

	if err := s.FinishRun(ctx, internal.TranslationRun{ID: "missing", Status: internal.RunFailed}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListRuns_Limit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := s.StartRun(ctx, internal.TranslationRun{
			SourcePath: "a.md", TargetLang: "zh", Service: "dashscope",
			StartedAt: base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("StartRun failed: %v", err)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Errorf("expected newest first, got %v then %v", runs[0].StartedAt, runs[1].StartedAt)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  Hello  ", "Hello"},
		{"é", "é"}, // NFC composes e + combining acute
		{"\t\nHello\t\n", "Hello"},
		{"", ""},
	}

	for _, tt := range tests {
		result := normalizeText(tt.input)
		if result != tt.expected {
			t.Errorf("normalizeText(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestStore_MultipleLanguagePairs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveToMemory(ctx, "Hello", "en", "zh", "dashscope", "你好")
	s.SaveToMemory(ctx, "Hello", "en", "de", "dashscope", "Hallo")

	text, found, _ := s.GetCachedTranslation(ctx, "Hello", "en", "zh", "dashscope")
	if !found || text != "你好" {
		t.Errorf("en->zh: expected found=true and '你好', got found=%v and %q", found, text)
	}

	text, found, _ = s.GetCachedTranslation(ctx, "Hello", "en", "de", "dashscope")
	if !found || text != "Hallo" {
		t.Errorf("en->de: expected found=true and 'Hallo', got found=%v and %q", found, text)
	}

	if _, found, _ = s.GetCachedTranslation(ctx, "Hello", "en", "fr", "dashscope"); found {
		t.Error("en->fr: expected not found")
	}
}
