// Package memory holds in-process repository implementations: the chunk
// store used when no database connection is configured, and the WebSocket
// session registry.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"trek-assistant-be/internal/entity"
	"trek-assistant-be/internal/repository/contract"

	"github.com/google/uuid"
)

type TrailChunkRepository struct {
	mu     sync.RWMutex
	chunks map[uuid.UUID]map[string]*entity.TrailChunk // session -> id -> chunk
}

func NewTrailChunkRepository() contract.TrailChunkRepository {
	return &TrailChunkRepository{
		chunks: make(map[uuid.UUID]map[string]*entity.TrailChunk),
	}
}

func (r *TrailChunkRepository) CreateBulk(ctx context.Context, chunks []*entity.TrailChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range chunks {
		session, ok := r.chunks[c.SessionId]
		if !ok {
			session = make(map[string]*entity.TrailChunk)
			r.chunks[c.SessionId] = session
		}
		if _, exists := session[c.Id]; exists {
			continue
		}
		cp := *c
		session[c.Id] = &cp
	}
	return nil
}

func (r *TrailChunkRepository) SearchSimilar(ctx context.Context, sessionId uuid.UUID, embedding []float32, limit int) ([]*contract.ScoredTrailChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session := r.chunks[sessionId]
	scored := make([]*contract.ScoredTrailChunk, 0, len(session))
	for _, c := range session {
		scored = append(scored, &contract.ScoredTrailChunk{
			Chunk:    c,
			Distance: cosineDistance(embedding, c.Embedding),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Distance < scored[j].Distance })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (r *TrailChunkRepository) DeleteBySession(ctx context.Context, sessionId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.chunks, sessionId)
	return nil
}

// cosineDistance treats a zero-norm vector as maximally distant, matching
// pgvector's behavior of never ranking degenerate embeddings first.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
