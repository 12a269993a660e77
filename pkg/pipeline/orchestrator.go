package pipeline

import (
	"context"
	"fmt"
	"time"

	"trek-assistant-be/internal/pkg/logger"
	"trek-assistant-be/pkg/connector"
	"trek-assistant-be/pkg/extract"
	"trek-assistant-be/pkg/rag"
	"trek-assistant-be/pkg/trailinfo"
	"trek-assistant-be/pkg/weather"
)

// DegradedNotice is emitted on the progress channel when a run ends with no
// documents and no retrieved context.
const DegradedNotice = "Not enough data found; responding with a general answer."

// Config carries the orchestrator's tunables.
type Config struct {
	// SourceOrder filters and orders which selected sources actually run.
	SourceOrder []connector.Source
	// RetryPrimary is how many times the primary source is retried after
	// the fallback source also produced nothing.
	RetryPrimary int
	// TopK bounds the retrieved context passed to generation.
	TopK int
}

// Orchestrator is constructed once at process start and serves every
// request; it holds no per-request state.
type Orchestrator struct {
	extractor *extract.Extractor
	registry  *connector.Registry
	weather   *weather.Crawler
	trails    *trailinfo.Service
	store     *rag.Store
	generator *rag.Generator
	cfg       Config
	log       logger.ILogger
}

func NewOrchestrator(
	extractor *extract.Extractor,
	registry *connector.Registry,
	weatherCrawler *weather.Crawler,
	trails *trailinfo.Service,
	store *rag.Store,
	generator *rag.Generator,
	cfg Config,
	log logger.ILogger,
) (*Orchestrator, error) {
	if len(cfg.SourceOrder) == 0 {
		return nil, fmt.Errorf("pipeline: empty source order")
	}
	for _, src := range cfg.SourceOrder {
		if _, err := connector.ParseSource(string(src)); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}
	if cfg.RetryPrimary < 0 {
		cfg.RetryPrimary = 0
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	return &Orchestrator{
		extractor: extractor,
		registry:  registry,
		weather:   weatherCrawler,
		trails:    trails,
		store:     store,
		generator: generator,
		cfg:       cfg,
		log:       log,
	}, nil
}

type stage struct {
	name string
	run  func(ctx context.Context, c *Context, onProgress ProgressFunc) error
}

// Run processes one question end to end. No stage failure terminates the
// run; the terminal Context always carries an answer, possibly degraded.
func (o *Orchestrator) Run(ctx context.Context, question string, onProgress ProgressFunc) *Context {
	if onProgress == nil {
		onProgress = func(string) {}
	}

	c := &Context{
		Question:  question,
		Timestamp: time.Now().UTC(),
	}

	si := o.store.NewSession()
	defer func() {
		if err := si.Close(context.WithoutCancel(ctx)); err != nil && o.log != nil {
			o.log.Warn("pipeline", "session teardown failed", map[string]interface{}{
				"session": si.SessionId().String(),
				"error":   err.Error(),
			})
		}
	}()

	stages := []stage{
		{"extract", o.stageExtract},
		{"retrieve", o.stageRetrieve},
		{"weather", o.stageWeather},
		{"trail_stats", o.stageTrailStats},
		{"index", o.indexStage(si)},
		{"answer", o.answerStage(si)},
	}

	for _, st := range stages {
		if ctx.Err() != nil {
			c.StageResults = append(c.StageResults, StageResult{Stage: st.name, Err: ctx.Err()})
			break
		}
		err := o.runStage(ctx, st, c, onProgress)
		c.StageResults = append(c.StageResults, StageResult{Stage: st.name, Err: err})
		if err != nil {
			onProgress(fmt.Sprintf("%s stage failed: %v", st.name, err))
			if o.log != nil {
				o.log.Warn("pipeline", "stage failed", map[string]interface{}{
					"stage": st.name,
					"error": err.Error(),
				})
			}
		}
	}

	if c.Answer == "" {
		c.Answer = rag.FallbackAnswer
	}
	if len(c.Documents) == 0 && len(c.RetrievedContext) == 0 {
		onProgress(DegradedNotice)
	}
	return c
}

// runStage isolates one stage: a panic becomes a failure reason like any
// other error.
func (o *Orchestrator) runStage(ctx context.Context, st stage, c *Context, onProgress ProgressFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return st.run(ctx, c, onProgress)
}

func (o *Orchestrator) stageExtract(ctx context.Context, c *Context, onProgress ProgressFunc) error {
	onProgress("Analyzing your question...")
	c.Entities = o.extractor.Extract(c.Question)
	c.appendLog("extract", fmt.Sprintf("trail=%q intent=%s sources=%v", c.Entities.Trail, c.Entities.Intent, c.Entities.Sources))
	return nil
}

type fetchResult struct {
	source connector.Source
	docs   []connector.Document
	err    error
}

func (o *Orchestrator) stageRetrieve(ctx context.Context, c *Context, onProgress ProgressFunc) error {
	if c.Entities.Trail == "" {
		onProgress("No trail detected; skipping document retrieval")
		c.appendLog("retrieve", "no trail detected")
		return nil
	}

	selected := o.enabledSources(c.Entities.Sources)
	c.Documents = append(c.Documents, o.fetchAll(ctx, selected, c.Entities.Trail, onProgress)...)

	// Fallback ladder: the always-available web search first, then the
	// primary source again in case its earlier failure was transient.
	if len(c.Documents) == 0 {
		if ws, ok := o.registry.Get(connector.SourceWebSearch); ok && !containsSource(selected, connector.SourceWebSearch) {
			onProgress("Searching the web for reliable sources...")
			docs, err := ws.Fetch(ctx, c.Entities.Trail)
			if err != nil {
				onProgress(fmt.Sprintf("Web search failed: %v", err))
			}
			c.Documents = append(c.Documents, docs...)
		}
	}
	if len(c.Documents) == 0 && len(selected) > 0 {
		primary := selected[0]
		for attempt := 0; attempt < o.cfg.RetryPrimary && len(c.Documents) == 0; attempt++ {
			onProgress(fmt.Sprintf("Retrying %s...", primary))
			c.Documents = append(c.Documents, o.fetchAll(ctx, []connector.Source{primary}, c.Entities.Trail, onProgress)...)
		}
	}

	onProgress(fmt.Sprintf("Collected documents: %d", len(c.Documents)))
	c.appendLog("retrieve", fmt.Sprintf("documents_collected=%d", len(c.Documents)))
	return nil
}

// enabledSources keeps the configured order as priority and drops selected
// sources that are not enabled.
func (o *Orchestrator) enabledSources(selected []connector.Source) []connector.Source {
	var out []connector.Source
	for _, src := range o.cfg.SourceOrder {
		if containsSource(selected, src) {
			out = append(out, src)
		}
	}
	return out
}

// fetchAll runs the connectors concurrently and merges documents in
// completion order, so one slow source never delays another's contribution.
func (o *Orchestrator) fetchAll(ctx context.Context, sources []connector.Source, trail string, onProgress ProgressFunc) []connector.Document {
	results := make(chan fetchResult, len(sources))
	launched := 0
	for _, src := range sources {
		conn, ok := o.registry.Get(src)
		if !ok {
			continue
		}
		launched++
		onProgress(fmt.Sprintf("Fetching content from %s...", src))
		go func(src connector.Source, conn connector.Connector) {
			defer func() {
				if r := recover(); r != nil {
					results <- fetchResult{source: src, err: fmt.Errorf("panic: %v", r)}
				}
			}()
			docs, err := conn.Fetch(ctx, trail)
			results <- fetchResult{source: src, docs: docs, err: err}
		}(src, conn)
	}

	var docs []connector.Document
	for i := 0; i < launched; i++ {
		r := <-results
		if r.err != nil {
			onProgress(fmt.Sprintf("%s fetch failed: %v", r.source, r.err))
			if o.log != nil {
				o.log.Warn("pipeline", "connector fetch failed", map[string]interface{}{
					"source": string(r.source),
					"error":  r.err.Error(),
				})
			}
			continue
		}
		docs = append(docs, r.docs...)
	}
	return docs
}

func (o *Orchestrator) stageWeather(ctx context.Context, c *Context, onProgress ProgressFunc) error {
	needsWeather := c.Entities.Intent == "weather" || c.Entities.Intent == "safety"
	if !needsWeather || c.Entities.Trail == "" || o.weather == nil {
		return nil
	}

	onProgress("Fetching weather forecast...")
	c.Weather = o.weather.Fetch(ctx, c.Entities.Trail)
	c.appendLog("weather", fmt.Sprintf("weather_source=%s", c.Weather.SourceURL))
	return nil
}

func (o *Orchestrator) stageTrailStats(ctx context.Context, c *Context, onProgress ProgressFunc) error {
	if c.Entities.Trail == "" || o.trails == nil {
		return nil
	}

	onProgress("Fetching GPX and trail stats...")
	stats, links := o.trails.Lookup(ctx, c.Entities.Trail)
	c.TrailStats = &stats
	c.TrailMapURL = links.TrailMapURL
	c.AllTrailsURL = links.AllTrailsURL
	c.appendLog("trail_stats", fmt.Sprintf("trail=%s distance=%s", c.Entities.Trail, stats.Distance))
	return nil
}

func (o *Orchestrator) indexStage(si *rag.SessionIndex) func(context.Context, *Context, ProgressFunc) error {
	return func(ctx context.Context, c *Context, onProgress ProgressFunc) error {
		onProgress("Generating embeddings...")
		if err := si.Reset(ctx); err != nil {
			return err
		}
		ids, err := si.Ingest(ctx, c.Documents)
		if err != nil {
			return err
		}
		c.IndexedIds = ids
		onProgress(fmt.Sprintf("Indexed documents: %d", len(ids)))
		c.appendLog("index", fmt.Sprintf("indexed_chunks=%d", len(ids)))
		return nil
	}
}

func (o *Orchestrator) answerStage(si *rag.SessionIndex) func(context.Context, *Context, ProgressFunc) error {
	return func(ctx context.Context, c *Context, onProgress ProgressFunc) error {
		onProgress("Preparing comprehensive answer...")
		retrieved, err := si.Search(ctx, c.Question, o.cfg.TopK)
		if err != nil {
			retrieved = nil
			onProgress(fmt.Sprintf("Context retrieval failed: %v", err))
		}
		c.RetrievedContext = retrieved
		onProgress(fmt.Sprintf("Retrieved context chunks: %d", len(retrieved)))

		c.Answer = o.generator.Answer(ctx, c.Question, retrieved)
		c.appendLog("answer", fmt.Sprintf("retrieved_context=%d", len(retrieved)))
		return nil
	}
}

func containsSource(sources []connector.Source, want connector.Source) bool {
	for _, s := range sources {
		if s == want {
			return true
		}
	}
	return false
}
