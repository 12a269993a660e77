package implementation

import (
	"context"

	"trek-assistant-be/internal/entity"
	"trek-assistant-be/internal/mapper"
	"trek-assistant-be/internal/model"
	"trek-assistant-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TrailChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.TrailChunkMapper
}

func NewTrailChunkRepository(db *gorm.DB) contract.TrailChunkRepository {
	return &TrailChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewTrailChunkMapper(),
	}
}

func (r *TrailChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.TrailChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	models := make([]*model.TrailChunk, len(chunks))
	for i, c := range chunks {
		models[i] = r.mapper.ToModel(c)
	}

	// Re-ingesting the same document within a session is a no-op, the id is
	// a content hash.
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models).Error
}

func (r *TrailChunkRepositoryImpl) SearchSimilar(ctx context.Context, sessionId uuid.UUID, embedding []float32, limit int) ([]*contract.ScoredTrailChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.TrailChunk
		Distance float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	// pgvector cosine distance: embedding <=> query
	err := r.db.WithContext(ctx).
		Table("trail_chunks").
		Select("trail_chunks.*, embedding <=> ? as distance", queryVector).
		Where("session_id = ?", sessionId).
		Order("distance ASC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredTrailChunk, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredTrailChunk{
			Chunk:    r.mapper.ToEntity(&res.TrailChunk),
			Distance: res.Distance,
		}
	}
	return scored, nil
}

func (r *TrailChunkRepositoryImpl) DeleteBySession(ctx context.Context, sessionId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("session_id = ?", sessionId).
		Delete(&model.TrailChunk{}).Error
}
