package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func upperFunc(ctx context.Context, chunk string) (string, error) {
	return strings.ToUpper(chunk), nil
}

func failingFunc(ctx context.Context, chunk string) (string, error) {
	return "", errors.New("service unavailable")
}

type countingPacer struct {
	calls atomic.Int32
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.calls.Add(1)
	return nil
}

type mapMemory struct {
	mu      sync.Mutex
	entries map[string]string
	saves   int
}

func newMapMemory() *mapMemory {
	return &mapMemory{entries: make(map[string]string)}
}

func (m *mapMemory) Lookup(ctx context.Context, chunk string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[chunk]
	return v, ok, nil
}

func (m *mapMemory) Save(ctx context.Context, chunk, translated string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[chunk] = translated
	m.saves++
	return nil
}

func TestOrchestrator_New_Defaults(t *testing.T) {
	o := New(upperFunc, OrchestratorConfig{})

	if o.config.MaxChunkSize <= 0 {
		t.Errorf("expected positive default MaxChunkSize, got %d", o.config.MaxChunkSize)
	}
	if o.pacer == nil {
		t.Error("expected a default pacer")
	}
	if o.log == nil {
		t.Error("expected a default logger")
	}
}

func TestOrchestrator_Translate_NoChunkFunc(t *testing.T) {
	o := New(nil, OrchestratorConfig{})

	_, err := o.Translate(context.Background(), "text")
	if !errors.Is(err, ErrNoChunkFunc) {
		t.Errorf("expected ErrNoChunkFunc, got %v", err)
	}
}

func TestOrchestrator_Translate_Simple(t *testing.T) {
	o := New(upperFunc, OrchestratorConfig{MaxChunkSize: 100})

	res, err := o.Translate(context.Background(), "hello\nworld")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "HELLO\nWORLD" {
		t.Errorf("expected %q, got %q", "HELLO\nWORLD", res.Text)
	}
	if res.Chunks != 1 || res.Translated != 1 {
		t.Errorf("expected 1 chunk translated, got %+v", res)
	}
}

func TestOrchestrator_Translate_PreservesOrder(t *testing.T) {
	var seen []string
	fn := func(ctx context.Context, chunk string) (string, error) {
		seen = append(seen, chunk)
		return fmt.Sprintf("<%s>", chunk), nil
	}

	o := New(fn, OrchestratorConfig{MaxChunkSize: 6})
	res, err := o.Translate(context.Background(), "aaaa\nbbbb\ncccc\ndddd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "<aaaa>\n<bbbb>\n<cccc>\n<dddd>"
	if res.Text != want {
		t.Errorf("expected %q, got %q", want, res.Text)
	}
	if strings.Join(seen, ",") != "aaaa,bbbb,cccc,dddd" {
		t.Errorf("chunks were not translated in order: %v", seen)
	}
}

func TestOrchestrator_Translate_SequentialCalls(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	fn := func(ctx context.Context, chunk string) (string, error) {
		n := inFlight.Add(1)
		if n > maxInFlight.Load() {
			maxInFlight.Store(n)
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return chunk, nil
	}

	o := New(fn, OrchestratorConfig{MaxChunkSize: 3})
	if _, err := o.Translate(context.Background(), "a\nb\nc\nd\ne"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if maxInFlight.Load() != 1 {
		t.Errorf("expected at most 1 call in flight, got %d", maxInFlight.Load())
	}
}

func TestOrchestrator_Translate_FallbackOnFailure(t *testing.T) {
	doc := "# Title\n\nParagraph one.\n```\ncode\n```\n|a|b|\n|-|-|\n\nEnd."

	pacer := &countingPacer{}
	o := New(failingFunc, OrchestratorConfig{MaxChunkSize: 12, Pacer: pacer})

	res, err := o.Translate(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != doc {
		t.Errorf("expected the original document back\nwant: %q\ngot:  %q", doc, res.Text)
	}
	if res.Fallbacks == 0 || res.Fallbacks != len(res.Failures) {
		t.Errorf("expected fallbacks to match failures, got %d and %d", res.Fallbacks, len(res.Failures))
	}
	if res.Translated != 0 {
		t.Errorf("expected no translated chunks, got %d", res.Translated)
	}
	if int(pacer.calls.Load()) != res.Fallbacks {
		t.Errorf("expected a pause after every failed call: %d pauses, %d calls", pacer.calls.Load(), res.Fallbacks)
	}
}

func TestOrchestrator_Translate_PartialFailure(t *testing.T) {
	fn := func(ctx context.Context, chunk string) (string, error) {
		if chunk == "bad" {
			return "", errors.New("boom")
		}
		return strings.ToUpper(chunk), nil
	}

	o := New(fn, OrchestratorConfig{MaxChunkSize: 4})
	res, err := o.Translate(context.Background(), "one\nbad\ntwo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "ONE\nbad\nTWO" {
		t.Errorf("expected %q, got %q", "ONE\nbad\nTWO", res.Text)
	}
	if len(res.Failures) != 1 || res.Failures[0].Index != 1 {
		t.Fatalf("expected one failure at index 1, got %+v", res.Failures)
	}
	if !strings.Contains(res.Failures[0].Error(), "boom") {
		t.Errorf("expected failure message to wrap cause, got %q", res.Failures[0].Error())
	}
}

func TestOrchestrator_Translate_SkipsBlankChunks(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context, chunk string) (string, error) {
		calls.Add(1)
		return "x", nil
	}

	pacer := &countingPacer{}
	o := New(fn, OrchestratorConfig{MaxChunkSize: 100, Pacer: pacer})

	res, err := o.Translate(context.Background(), "\n  \n\t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no calls for a blank document, got %d", calls.Load())
	}
	if pacer.calls.Load() != 0 {
		t.Errorf("expected no pauses without calls, got %d", pacer.calls.Load())
	}
	if res.Text != "\n  \n\t" || res.Skipped != 1 {
		t.Errorf("expected blank chunk returned verbatim, got %+v", res)
	}
}

func TestOrchestrator_Translate_EmptyDocument(t *testing.T) {
	o := New(upperFunc, OrchestratorConfig{})

	res, err := o.Translate(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "" || res.Chunks != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestOrchestrator_Translate_PacesAfterEachCall(t *testing.T) {
	pacer := &countingPacer{}
	o := New(upperFunc, OrchestratorConfig{MaxChunkSize: 2, Pacer: pacer})

	res, err := o.Translate(context.Background(), "a\nb\nc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pacer.calls.Load() != 3 || res.Translated != 3 {
		t.Errorf("expected 3 calls and 3 pauses, got %d translated and %d pauses", res.Translated, pacer.calls.Load())
	}
}

func TestOrchestrator_Translate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fn := func(c context.Context, chunk string) (string, error) {
		cancel()
		return chunk, nil
	}

	o := New(fn, OrchestratorConfig{MaxChunkSize: 2, Delay: time.Hour})
	res, err := o.Translate(ctx, "a\nb\nc")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if res != nil {
		t.Errorf("expected no result on cancellation, got %+v", res)
	}
}

func TestOrchestrator_Translate_UsesMemory(t *testing.T) {
	mem := newMapMemory()
	mem.entries["cached"] = "FROM MEMORY"

	var calls atomic.Int32
	fn := func(ctx context.Context, chunk string) (string, error) {
		calls.Add(1)
		return strings.ToUpper(chunk), nil
	}

	pacer := &countingPacer{}
	o := New(fn, OrchestratorConfig{MaxChunkSize: 7, Pacer: pacer, Memory: mem})

	res, err := o.Translate(context.Background(), "cached\nfresh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "FROM MEMORY\nFRESH" {
		t.Errorf("expected %q, got %q", "FROM MEMORY\nFRESH", res.Text)
	}
	if calls.Load() != 1 || pacer.calls.Load() != 1 {
		t.Errorf("expected 1 call and 1 pause, got %d and %d", calls.Load(), pacer.calls.Load())
	}
	if res.Cached != 1 || res.Translated != 1 {
		t.Errorf("expected 1 cached and 1 translated, got %+v", res)
	}
	if mem.entries["fresh"] != "FRESH" {
		t.Errorf("expected fresh translation saved to memory, got %q", mem.entries["fresh"])
	}
}

func TestOrchestrator_Translate_FallbackNotSavedToMemory(t *testing.T) {
	mem := newMapMemory()
	o := New(failingFunc, OrchestratorConfig{MaxChunkSize: 100, Memory: mem})

	if _, err := o.Translate(context.Background(), "text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mem.saves != 0 {
		t.Errorf("expected no saves after a failed call, got %d", mem.saves)
	}
}

func TestOrchestrator_Translate_Progress(t *testing.T) {
	var last, total int
	o := New(upperFunc, OrchestratorConfig{
		MaxChunkSize: 2,
		Progress: func(done, n int) {
			last, total = done, n
		},
	})

	if _, err := o.Translate(context.Background(), "a\nb"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if last != 2 || total != 2 {
		t.Errorf("expected progress 2/2, got %d/%d", last, total)
	}
}

func TestTranslate_Convenience(t *testing.T) {
	out, err := Translate(context.Background(), "x\ny", upperFunc, 100, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "X\nY" {
		t.Errorf("expected %q, got %q", "X\nY", out)
	}
}

func TestFixedDelay_Zero(t *testing.T) {
	if err := FixedDelay(0).Wait(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFixedDelay_Waits(t *testing.T) {
	start := time.Now()
	if err := FixedDelay(20 * time.Millisecond).Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("expected FixedDelay to wait")
	}
}

func TestFixedDelay_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := FixedDelay(time.Hour).Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRateLimit_SpacesCalls(t *testing.T) {
	p := RateLimit(20 * time.Millisecond)

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Errorf("expected two waits to take about 40ms, took %v", time.Since(start))
	}
}
