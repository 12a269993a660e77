package rag

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"trek-assistant-be/internal/entity"
	"trek-assistant-be/internal/repository/memory"
	"trek-assistant-be/pkg/connector"
	"trek-assistant-be/pkg/llm"
)

// fakeEmbedder maps text to keyword-count vectors so relevance ranking in
// tests is fully deterministic. It can also fail entirely.
type fakeEmbedder struct {
	dim  int
	fail bool
}

var embedderKeywords = []string{"kedarkantha", "winter", "trek", "triund", "hike", "mcleod", "trail", "content"}

func (f *fakeEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, f.dim)
	for i, k := range embedderKeywords[:f.dim] {
		vec[i] = float32(strings.Count(lower, k))
	}
	return vec
}

func (f *fakeEmbedder) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	if f.fail {
		return nil, errors.New("embedding backend down")
	}
	return f.vector(text), nil
}

func (f *fakeEmbedder) GenerateBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if f.fail {
		return nil, errors.New("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func newTestStore(fail bool) *Store {
	return NewStore(memory.NewTrailChunkRepository(), &fakeEmbedder{dim: 8, fail: fail}, 8, nil)
}

func doc(text, trail string) connector.Document {
	return connector.Document{
		Text:        text,
		Source:      connector.SourceWikivoyage,
		TrailName:   trail,
		SectionType: "Introduction",
		URL:         "https://example.org/" + trail,
	}
}

func TestIngestAndSearch(t *testing.T) {
	ctx := context.Background()
	si := newTestStore(false).NewSession()

	ids, err := si.Ingest(ctx, []connector.Document{
		doc("Kedarkantha is a winter trek in Uttarakhand.", "Kedarkantha"),
		doc("Triund is a short hike above McLeod Ganj.", "Triund"),
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2", len(ids))
	}

	results, err := si.Search(ctx, "Kedarkantha winter trek", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Metadata.TrailName != "Kedarkantha" {
		t.Errorf("top result trail = %q, want Kedarkantha", results[0].Metadata.TrailName)
	}
	for _, r := range results {
		if r.Score < 0 || r.Score > 1 {
			t.Errorf("score %f out of [0,1]", r.Score)
		}
	}
}

func TestIngestSkipsEmptyText(t *testing.T) {
	ctx := context.Background()
	si := newTestStore(false).NewSession()

	ids, err := si.Ingest(ctx, []connector.Document{
		doc("", "Kedarkantha"),
		doc("real content about the trail", "Kedarkantha"),
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("got %d ids, want 1", len(ids))
	}
}

func TestIngestDeduplicates(t *testing.T) {
	ctx := context.Background()
	si := newTestStore(false).NewSession()

	same := doc("identical text", "Kedarkantha")
	ids, err := si.Ingest(ctx, []connector.Document{same, same})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("got %d ids, want exactly 1 for identical (text, metadata)", len(ids))
	}

	// Same text under different metadata is a distinct chunk.
	other := doc("identical text", "Triund")
	moreIds, err := si.Ingest(ctx, []connector.Document{other})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(moreIds) != 1 || moreIds[0] == ids[0] {
		t.Errorf("different metadata should produce a different id")
	}

	results, err := si.Search(ctx, "identical text", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d stored chunks, want 2", len(results))
	}
}

func TestIngestZeroVectorFallback(t *testing.T) {
	ctx := context.Background()
	si := newTestStore(true).NewSession()

	ids, err := si.Ingest(ctx, []connector.Document{doc("text while backend down", "Kedarkantha")})
	if err != nil {
		t.Fatalf("Ingest should not fail when embeddings do: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("got %d ids, want 1", len(ids))
	}

	// Query embedding also degrades to a zero vector; the chunk must remain
	// retrievable even if its relevance is meaningless.
	results, err := si.Search(ctx, "anything", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Score < 0 || results[0].Score > 1 {
		t.Errorf("degraded score %f out of [0,1]", results[0].Score)
	}
}

func TestSessionIsolation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(false)

	a := store.NewSession()
	if _, err := a.Ingest(ctx, []connector.Document{doc("question A content", "Kedarkantha")}); err != nil {
		t.Fatalf("Ingest A: %v", err)
	}

	b := store.NewSession()
	if _, err := b.Ingest(ctx, []connector.Document{doc("question B content", "Triund")}); err != nil {
		t.Fatalf("Ingest B: %v", err)
	}

	results, err := b.Search(ctx, "question A content", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.Text == "question A content" {
			t.Error("session B retrieved session A's chunk")
		}
	}

	// Reset discards B's own data too.
	if err := b.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	results, err = b.Search(ctx, "question B content", 10)
	if err != nil {
		t.Fatalf("Search after reset: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results after reset, want 0", len(results))
	}
}

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		distance float64
		want     float64
	}{
		{0, 1},
		{0.25, 0.75},
		{1, 0},
		{1.8, 0},       // cosine distance can exceed 1
		{-0.5, 1},      // malformed distance clamps instead of overflowing
		{math.NaN(), 0}, // undefined distance from a zero-norm query
	}
	for _, tt := range tests {
		if got := normalizeScore(tt.distance); got != tt.want {
			t.Errorf("normalizeScore(%f) = %f, want %f", tt.distance, got, tt.want)
		}
	}
}

// fakeLLM counts calls and can fail on the default model only.
type fakeLLM struct {
	failPrimary bool
	failAll     bool
	calls       []string
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := &llm.Options{}
	for _, opt := range opts {
		opt(options)
	}
	f.calls = append(f.calls, options.Model)
	if f.failAll {
		return "", errors.New("model unavailable")
	}
	if f.failPrimary && options.Model == "" {
		return "", errors.New("model unavailable")
	}
	return "a grounded answer", nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func TestGeneratorAnswer(t *testing.T) {
	ctx := context.Background()
	chunks := []RetrievedChunk{{Text: "trail notes"}}

	t.Run("primary model succeeds", func(t *testing.T) {
		f := &fakeLLM{}
		g := NewGenerator(f, "fallback-model", nil)
		if got := g.Answer(ctx, "q", chunks); got != "a grounded answer" {
			t.Errorf("Answer = %q", got)
		}
		if len(f.calls) != 1 {
			t.Errorf("calls = %d, want 1", len(f.calls))
		}
	})

	t.Run("retries on alternate model", func(t *testing.T) {
		f := &fakeLLM{failPrimary: true}
		g := NewGenerator(f, "fallback-model", nil)
		if got := g.Answer(ctx, "q", chunks); got != "a grounded answer" {
			t.Errorf("Answer = %q", got)
		}
		if len(f.calls) != 2 || f.calls[1] != "fallback-model" {
			t.Errorf("calls = %v, want retry on fallback-model", f.calls)
		}
	})

	t.Run("total failure degrades to fixed message", func(t *testing.T) {
		f := &fakeLLM{failAll: true}
		g := NewGenerator(f, "fallback-model", nil)
		if got := g.Answer(ctx, "q", chunks); got != FallbackAnswer {
			t.Errorf("Answer = %q, want FallbackAnswer", got)
		}
	})

	t.Run("nil provider reports not configured", func(t *testing.T) {
		g := NewGenerator(nil, "", nil)
		if got := g.Answer(ctx, "q", nil); got != NotConfiguredAnswer {
			t.Errorf("Answer = %q, want NotConfiguredAnswer", got)
		}
	})
}

func TestBuildContextBlock(t *testing.T) {
	if got := BuildContextBlock(nil); got != "(no context)" {
		t.Errorf("empty context block = %q", got)
	}

	block := BuildContextBlock([]RetrievedChunk{
		{
			Text: "chunk body",
			Metadata: entity.ChunkMetadata{
				Source:    "wikivoyage",
				TrailName: "Triund",
				URL:       "https://example.org",
			},
		},
	})
	want := "[wikivoyage] Triund | https://example.org\nchunk body"
	if block != want {
		t.Errorf("block = %q, want %q", block, want)
	}
}
