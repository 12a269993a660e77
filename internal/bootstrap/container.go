package bootstrap

import (
	"log"
	"time"

	"trek-assistant-be/internal/config"
	"trek-assistant-be/internal/controller"
	"trek-assistant-be/internal/mapper"
	"trek-assistant-be/internal/model"
	"trek-assistant-be/internal/pkg/logger"
	"trek-assistant-be/internal/repository/contract"
	"trek-assistant-be/internal/repository/implementation"
	"trek-assistant-be/internal/repository/memory"
	"trek-assistant-be/internal/service"
	"trek-assistant-be/internal/websocket"
	"trek-assistant-be/pkg/cache"
	"trek-assistant-be/pkg/connector"
	"trek-assistant-be/pkg/database"
	"trek-assistant-be/pkg/embedding"
	"trek-assistant-be/pkg/extract"
	"trek-assistant-be/pkg/llm"
	"trek-assistant-be/pkg/llm/factory"
	"trek-assistant-be/pkg/pipeline"
	"trek-assistant-be/pkg/rag"
	"trek-assistant-be/pkg/trailinfo"
	"trek-assistant-be/pkg/weather"

	"gorm.io/gorm"
)

// Container wires the whole application once at startup. Construction is
// strict: unknown source names or a broken provider configuration abort the
// process instead of surfacing later as half-working requests.
type Container struct {
	AskController controller.IAskController
	WSHandler     *websocket.Handler

	Logger       logger.ILogger
	CacheManager *cache.Manager
	Orchestrator *pipeline.Orchestrator
}

func NewContainer(cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	cacheManager := cache.NewManager(cache.Options{
		MaxEntries:    cfg.Cache.MaxEntries,
		SchemaVersion: cfg.Cache.SchemaVersion,
		QuestionTTL:   time.Duration(cfg.Cache.QuestionTTLMinutes) * time.Minute,
		WeatherTTL:    time.Duration(cfg.Cache.WeatherTTLMinutes) * time.Minute,
		TrailInfoTTL:  time.Duration(cfg.Cache.TrailInfoTTLMinutes) * time.Minute,
	})

	// One shared HTTP client paces all connectors at one request per second
	// per host.
	client := connector.NewClient(1)
	peaks := connector.NewMountainForecast(client, "")

	// The web search connector always exists; it is the fallback rung even
	// when the configured order leaves it out, and it doubles as the live
	// AllTrails link resolver.
	webSearch := connector.NewWebSearch(client, 5)

	sourceOrder := make([]connector.Source, 0, len(cfg.Sources.Order))
	connectors := []connector.Connector{webSearch}
	for _, name := range cfg.Sources.Order {
		source, err := connector.ParseSource(name)
		if err != nil {
			log.Fatalf("[FATAL] Invalid SOURCE_ORDER entry: %v", err)
		}
		sourceOrder = append(sourceOrder, source)
		switch source {
		case connector.SourceWikivoyage:
			connectors = append(connectors, connector.NewWikivoyage(client, ""))
		case connector.SourceMountainForecast:
			connectors = append(connectors, peaks)
		case connector.SourceOSMWiki:
			connectors = append(connectors, connector.NewOSMWiki(client, ""))
		case connector.SourceWebSearch:
			// already registered as the fallback rung
		}
	}
	registry, err := connector.NewRegistry(connectors...)
	if err != nil {
		log.Fatalf("[FATAL] Failed to build connector registry: %v", err)
	}

	var embeddingProvider embedding.Provider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	var llmProvider llm.LLMProvider
	if cfg.Ai.LLMProvider == "gemini" && cfg.Keys.GoogleGemini == "" {
		// Leave the provider nil; the generator then answers with an
		// explicit not-configured message instead of failing mid-request.
		log.Printf("[WARN] GOOGLE_GEMINI_API_KEY not set, answer generation disabled")
	} else {
		llmProvider, err = factory.NewLLMProvider(
			cfg.Ai.LLMProvider,
			cfg.Ai.LLMModel,
			cfg.Ai.OllamaBaseURL,
			cfg.Keys.GoogleGemini,
		)
		if err != nil {
			log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
		}
		log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)
	}

	chunkRepo := newChunkRepository(cfg)

	store := rag.NewStore(chunkRepo, embeddingProvider, cfg.Ai.EmbeddingDim, sysLogger)
	generator := rag.NewGenerator(llmProvider, cfg.Ai.LLMFallbackModel, sysLogger)

	weatherCrawler := weather.NewCrawler(client, peaks, cacheManager, sysLogger)
	trailService := trailinfo.NewService(cacheManager, webSearch)
	extractor := extract.NewExtractor(cfg.Sources.IndexedTrails)

	orchestrator, err := pipeline.NewOrchestrator(
		extractor,
		registry,
		weatherCrawler,
		trailService,
		store,
		generator,
		pipeline.Config{
			SourceOrder:  sourceOrder,
			RetryPrimary: cfg.Sources.RetryPrimary,
			TopK:         cfg.Ai.TopK,
		},
		sysLogger,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to build pipeline: %v", err)
	}

	askService := service.NewAskService(orchestrator, cacheManager, mapper.NewAskMapper(), sysLogger)
	askController := controller.NewAskController(askService)

	// Session-level WebSocket logs go to their own file so the main log
	// stays readable under many concurrent connections.
	wsLogger := logger.NewIsolatedLogger(cfg.App.WSLogFilePath)
	sessionRepo := memory.NewSessionRepository()
	wsManager := websocket.NewManager(cfg.App.WSMaxSessions, sessionRepo, wsLogger)
	wsHandler := websocket.NewHandler(wsManager, askService, cfg.App.WSTimeoutSeconds, wsLogger)

	return &Container{
		AskController: askController,
		WSHandler:     wsHandler,
		Logger:        sysLogger,
		CacheManager:  cacheManager,
		Orchestrator:  orchestrator,
	}
}

// newChunkRepository picks the chunk store: DSN first, discrete DB_* vars
// second, in-memory last.
func newChunkRepository(cfg *config.Config) contract.TrailChunkRepository {
	var (
		db  *gorm.DB
		err error
	)
	switch {
	case cfg.Database.Connection != "":
		db, err = database.NewGormDBFromDSN(cfg.Database.Connection)
	case cfg.Database.Host != "":
		db, err = database.NewGormDB(database.GormConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.Name,
			SSLMode:  cfg.Database.SSLMode,
		})
	default:
		log.Printf("[INFO] Using in-memory chunk store")
		return memory.NewTrailChunkRepository()
	}
	if err != nil {
		log.Fatalf("[FATAL] Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&model.TrailChunk{}); err != nil {
		log.Fatalf("[FATAL] Failed to migrate trail_chunks: %v", err)
	}
	log.Printf("[INFO] Using pgvector chunk store")
	return implementation.NewTrailChunkRepository(db)
}
