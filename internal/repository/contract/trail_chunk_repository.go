package contract

import (
	"context"

	"trek-assistant-be/internal/entity"

	"github.com/google/uuid"
)

// ScoredTrailChunk wraps TrailChunk with its cosine distance to the query
// (0.0 = identical direction, 2.0 = opposite).
type ScoredTrailChunk struct {
	Chunk    *entity.TrailChunk
	Distance float64
}

type TrailChunkRepository interface {
	// CreateBulk inserts chunks, silently skipping ids that already exist
	// for the same session.
	CreateBulk(ctx context.Context, chunks []*entity.TrailChunk) error
	// SearchSimilar returns up to limit chunks of one session ordered by
	// cosine distance to the query embedding.
	SearchSimilar(ctx context.Context, sessionId uuid.UUID, embedding []float32, limit int) ([]*ScoredTrailChunk, error)
	// DeleteBySession removes every chunk indexed under a session.
	DeleteBySession(ctx context.Context, sessionId uuid.UUID) error
}
