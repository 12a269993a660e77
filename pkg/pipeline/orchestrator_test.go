package pipeline

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"trek-assistant-be/internal/repository/memory"
	"trek-assistant-be/pkg/cache"
	"trek-assistant-be/pkg/connector"
	"trek-assistant-be/pkg/extract"
	"trek-assistant-be/pkg/llm"
	"trek-assistant-be/pkg/rag"
	"trek-assistant-be/pkg/trailinfo"
)

type stubConnector struct {
	source   connector.Source
	docs     []connector.Document
	err      error
	panicMsg string
	// failUntil fails the first N calls, then succeeds.
	failUntil int32
	calls     int32
}

func (s *stubConnector) Source() connector.Source { return s.source }

func (s *stubConnector) Fetch(ctx context.Context, trail string) ([]connector.Document, error) {
	n := atomic.AddInt32(&s.calls, 1)
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.err != nil {
		return nil, s.err
	}
	if n <= s.failUntil {
		return nil, context.DeadlineExceeded
	}
	return s.docs, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Generate(ctx context.Context, text, taskType string) ([]float32, error) {
	return []float32{1, 0, 0, 0}, nil
}

func (stubEmbedder) GenerateBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0, 0}
	}
	return out, nil
}

type stubLLM struct {
	answer string
	err    error
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.answer, s.err
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.answer, s.err
}

type progressRecorder struct {
	mu       sync.Mutex
	messages []string
}

func (p *progressRecorder) record(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
}

func (p *progressRecorder) contains(substr string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func sampleDocs(source connector.Source, trail string) []connector.Document {
	return []connector.Document{
		{
			Text:        "Kedarkantha is a winter trek in Uttarakhand with heavy December snow.",
			Source:      source,
			TrailName:   trail,
			SectionType: "overview",
			URL:         "https://example.org/" + string(source),
		},
	}
}

func newTestOrchestrator(t *testing.T, connectors []connector.Connector, cfg Config, generator *rag.Generator) *Orchestrator {
	t.Helper()
	registry, err := connector.NewRegistry(connectors...)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if cfg.TopK == 0 {
		cfg.TopK = 3
	}
	store := rag.NewStore(memory.NewTrailChunkRepository(), stubEmbedder{}, 4, nil)
	if generator == nil {
		generator = rag.NewGenerator(&stubLLM{answer: "general answer"}, "fallback-model", nil)
	}
	trails := trailinfo.NewService(cache.NewManager(cache.Options{}), nil)
	orch, err := NewOrchestrator(extract.NewExtractor(nil), registry, nil, trails, store, generator, cfg, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	return orch
}

func TestRunEndToEnd(t *testing.T) {
	wiki := &stubConnector{source: connector.SourceWikivoyage, docs: sampleDocs(connector.SourceWikivoyage, "Kedarkantha")}
	forecast := &stubConnector{source: connector.SourceMountainForecast, docs: sampleDocs(connector.SourceMountainForecast, "Kedarkantha")}
	osm := &stubConnector{source: connector.SourceOSMWiki, docs: sampleDocs(connector.SourceOSMWiki, "Kedarkantha")}

	orch := newTestOrchestrator(t, []connector.Connector{wiki, forecast, osm}, Config{
		SourceOrder: []connector.Source{connector.SourceWikivoyage, connector.SourceMountainForecast, connector.SourceOSMWiki},
	}, rag.NewGenerator(&stubLLM{answer: "Expect snow and sub-zero nights in December."}, "fallback-model", nil))

	rec := &progressRecorder{}
	c := orch.Run(context.Background(), "Is Kedarkantha safe in December?", rec.record)

	if c.Entities.Trail != "Kedarkantha" {
		t.Fatalf("Entities.Trail = %q, want Kedarkantha", c.Entities.Trail)
	}
	if c.Entities.Intent != "safety" {
		t.Errorf("Entities.Intent = %q, want safety", c.Entities.Intent)
	}
	if len(c.Documents) == 0 {
		t.Fatal("expected documents to be collected")
	}
	if len(c.IndexedIds) == 0 {
		t.Error("expected indexed chunk ids")
	}
	if len(c.RetrievedContext) == 0 {
		t.Error("expected retrieved context")
	}
	if c.Answer != "Expect snow and sub-zero nights in December." {
		t.Errorf("Answer = %q", c.Answer)
	}
	if c.TrailStats == nil || c.TrailStats.Distance != "24 km" {
		t.Errorf("TrailStats = %+v, want Kedarkantha stats", c.TrailStats)
	}
	if c.TrailMapURL == "" {
		t.Error("expected trail map URL")
	}
	for _, sr := range c.StageResults {
		if sr.Err != nil {
			t.Errorf("stage %s failed: %v", sr.Stage, sr.Err)
		}
	}
	if !rec.contains("Collected documents:") {
		t.Error("expected document count progress message")
	}
}

func TestRunAllSourcesFail(t *testing.T) {
	wiki := &stubConnector{source: connector.SourceWikivoyage, err: context.DeadlineExceeded}
	web := &stubConnector{source: connector.SourceWebSearch, err: context.DeadlineExceeded}

	orch := newTestOrchestrator(t, []connector.Connector{wiki, web}, Config{
		SourceOrder:  []connector.Source{connector.SourceWikivoyage},
		RetryPrimary: 1,
	}, nil)

	rec := &progressRecorder{}
	c := orch.Run(context.Background(), "Tell me about the Kedarkantha trek", rec.record)

	if len(c.Documents) != 0 {
		t.Fatalf("Documents = %d, want 0", len(c.Documents))
	}
	if len(c.RetrievedContext) != 0 {
		t.Errorf("RetrievedContext = %d, want 0", len(c.RetrievedContext))
	}
	if c.Answer == "" {
		t.Error("expected a non-empty degraded answer")
	}
	if !rec.contains(DegradedNotice) {
		t.Error("expected degraded notice in progress messages")
	}
	// Primary ran once plus one retry; web search ran once as fallback.
	if got := atomic.LoadInt32(&wiki.calls); got != 2 {
		t.Errorf("wikivoyage calls = %d, want 2", got)
	}
	if got := atomic.LoadInt32(&web.calls); got != 1 {
		t.Errorf("websearch calls = %d, want 1", got)
	}
}

func TestRunWebSearchFallback(t *testing.T) {
	wiki := &stubConnector{source: connector.SourceWikivoyage, err: context.DeadlineExceeded}
	web := &stubConnector{source: connector.SourceWebSearch, docs: sampleDocs(connector.SourceWebSearch, "Triund")}

	orch := newTestOrchestrator(t, []connector.Connector{wiki, web}, Config{
		SourceOrder: []connector.Source{connector.SourceWikivoyage},
	}, nil)

	rec := &progressRecorder{}
	c := orch.Run(context.Background(), "Tell me about the Triund trek", rec.record)

	if len(c.Documents) != 1 {
		t.Fatalf("Documents = %d, want 1 from web search fallback", len(c.Documents))
	}
	if c.Documents[0].Source != connector.SourceWebSearch {
		t.Errorf("Documents[0].Source = %s, want websearch", c.Documents[0].Source)
	}
	if rec.contains(DegradedNotice) {
		t.Error("fallback produced documents; degraded notice should not fire")
	}
}

func TestRunRetryPrimaryRecovers(t *testing.T) {
	// Fails on the first call, succeeds on the retry.
	wiki := &stubConnector{
		source:    connector.SourceWikivoyage,
		docs:      sampleDocs(connector.SourceWikivoyage, "Triund"),
		failUntil: 1,
	}
	web := &stubConnector{source: connector.SourceWebSearch, err: context.DeadlineExceeded}

	orch := newTestOrchestrator(t, []connector.Connector{wiki, web}, Config{
		SourceOrder:  []connector.Source{connector.SourceWikivoyage},
		RetryPrimary: 1,
	}, nil)

	c := orch.Run(context.Background(), "Tell me about the Triund trek", func(string) {})

	if len(c.Documents) != 1 {
		t.Fatalf("Documents = %d, want 1 from primary retry", len(c.Documents))
	}
	if got := atomic.LoadInt32(&wiki.calls); got != 2 {
		t.Errorf("wikivoyage calls = %d, want 2", got)
	}
}

func TestRunPanickingConnectorIsIsolated(t *testing.T) {
	bad := &stubConnector{source: connector.SourceWikivoyage, panicMsg: "parser blew up"}
	good := &stubConnector{source: connector.SourceMountainForecast, docs: sampleDocs(connector.SourceMountainForecast, "Kedarkantha")}

	orch := newTestOrchestrator(t, []connector.Connector{bad, good}, Config{
		SourceOrder: []connector.Source{connector.SourceWikivoyage, connector.SourceMountainForecast},
	}, nil)

	rec := &progressRecorder{}
	c := orch.Run(context.Background(), "Is Kedarkantha safe to climb in winter?", rec.record)

	if len(c.Documents) != 1 {
		t.Fatalf("Documents = %d, want 1 from the surviving connector", len(c.Documents))
	}
	for _, sr := range c.StageResults {
		if sr.Stage == "retrieve" && sr.Err != nil {
			t.Errorf("retrieve stage error = %v, want nil (per-connector failure tolerated)", sr.Err)
		}
	}
	if !rec.contains("panic") {
		t.Error("expected the panic to surface as a progress message")
	}
}

func TestRunNoTrailSkipsRetrieval(t *testing.T) {
	wiki := &stubConnector{source: connector.SourceWikivoyage, docs: sampleDocs(connector.SourceWikivoyage, "Kedarkantha")}

	orch := newTestOrchestrator(t, []connector.Connector{wiki}, Config{
		SourceOrder: []connector.Source{connector.SourceWikivoyage},
	}, nil)

	rec := &progressRecorder{}
	c := orch.Run(context.Background(), "???", rec.record)

	if got := atomic.LoadInt32(&wiki.calls); got != 0 {
		t.Errorf("wikivoyage calls = %d, want 0 when no trail detected", got)
	}
	if c.Answer == "" {
		t.Error("expected an answer even without a trail")
	}
	if c.TrailStats != nil {
		t.Errorf("TrailStats = %+v, want nil without a trail", c.TrailStats)
	}
	if !rec.contains(DegradedNotice) {
		t.Error("expected degraded notice when nothing was collected")
	}
}

func TestRunCancelledContextStopsStages(t *testing.T) {
	wiki := &stubConnector{source: connector.SourceWikivoyage, docs: sampleDocs(connector.SourceWikivoyage, "Kedarkantha")}

	orch := newTestOrchestrator(t, []connector.Connector{wiki}, Config{
		SourceOrder: []connector.Source{connector.SourceWikivoyage},
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := orch.Run(ctx, "Tell me about the Kedarkantha trek", func(string) {})

	if len(c.StageResults) == 0 {
		t.Fatal("expected at least one stage result")
	}
	last := c.StageResults[len(c.StageResults)-1]
	if last.Err == nil {
		t.Errorf("last stage %s error = nil, want context error", last.Stage)
	}
	if c.Answer != rag.FallbackAnswer {
		t.Errorf("Answer = %q, want fallback answer", c.Answer)
	}
}

func TestNewOrchestratorValidation(t *testing.T) {
	registry, err := connector.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	store := rag.NewStore(memory.NewTrailChunkRepository(), stubEmbedder{}, 4, nil)
	gen := rag.NewGenerator(nil, "", nil)

	if _, err := NewOrchestrator(extract.NewExtractor(nil), registry, nil, nil, store, gen, Config{}, nil); err == nil {
		t.Error("expected error for empty source order")
	}
	cfg := Config{SourceOrder: []connector.Source{connector.Source("bogus")}}
	if _, err := NewOrchestrator(extract.NewExtractor(nil), registry, nil, nil, store, gen, cfg, nil); err == nil {
		t.Error("expected error for unknown source name")
	}
}
