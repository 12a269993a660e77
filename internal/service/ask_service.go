package service

import (
	"context"

	"trek-assistant-be/internal/dto"
	"trek-assistant-be/internal/mapper"
	"trek-assistant-be/internal/pkg/logger"
	"trek-assistant-be/pkg/cache"
	"trek-assistant-be/pkg/pipeline"
)

// IAskService answers trekking questions, consulting the question cache
// before running the pipeline.
type IAskService interface {
	// CachedAnswer returns the cached response for a question, if any.
	CachedAnswer(question string) (*dto.AskResponse, bool)

	// Ask runs the full pipeline and caches the result. onProgress may be
	// nil.
	Ask(ctx context.Context, question string, onProgress pipeline.ProgressFunc) *dto.AskResponse
}

type askService struct {
	orchestrator *pipeline.Orchestrator
	cacheManager *cache.Manager
	askMapper    *mapper.AskMapper
	logger       logger.ILogger
}

func NewAskService(
	orchestrator *pipeline.Orchestrator,
	cacheManager *cache.Manager,
	askMapper *mapper.AskMapper,
	logger logger.ILogger,
) IAskService {
	return &askService{
		orchestrator: orchestrator,
		cacheManager: cacheManager,
		askMapper:    askMapper,
		logger:       logger,
	}
}

func (s *askService) CachedAnswer(question string) (*dto.AskResponse, bool) {
	key := s.cacheManager.QuestionKey(question)
	value, ok := s.cacheManager.Get(cache.QuestionCache, key)
	if !ok {
		return nil, false
	}
	cached, ok := value.(*dto.AskResponse)
	if !ok {
		return nil, false
	}

	// Copy so the mutated Cached flag never leaks into the stored value.
	res := *cached
	res.Cached = true
	return &res, true
}

func (s *askService) Ask(ctx context.Context, question string, onProgress pipeline.ProgressFunc) *dto.AskResponse {
	runCtx := s.orchestrator.Run(ctx, question, onProgress)
	res := s.askMapper.FromContext(runCtx, false)

	s.cacheManager.Set(cache.QuestionCache, s.cacheManager.QuestionKey(question), res, s.cacheManager.TTL(cache.QuestionCache))

	s.logger.Info("ask_service", "question answered", map[string]interface{}{
		"question":  question,
		"documents": len(res.RawDocuments),
		"retrieved": len(res.RetrievedContext),
	})
	return res
}
