package implementation

import (
	"context"
	"os"
	"testing"

	"trek-assistant-be/internal/entity"
	"trek-assistant-be/internal/model"
	"trek-assistant-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a Postgres instance with the pgvector extension. Skipped unless
// DB_CONNECTION_STRING is set.
func TestTrailChunkRepositoryRoundTrip(t *testing.T) {
	godotenv.Load("../../../.env")

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(&model.TrailChunk{}))

	repo := NewTrailChunkRepository(gormDB)
	ctx := context.Background()
	sessionId := uuid.New()
	defer repo.DeleteBySession(ctx, sessionId)

	vec := func(x float32) []float32 {
		v := make([]float32, 768)
		v[0] = x
		v[1] = 1 - x
		return v
	}

	chunks := []*entity.TrailChunk{
		{
			Id:        "it-chunk-close",
			SessionId: sessionId,
			Text:      "Kedarkantha summit ridge is exposed in December.",
			Embedding: vec(1),
			Metadata:  entity.ChunkMetadata{Source: "wikivoyage", TrailName: "Kedarkantha", SectionType: "overview"},
		},
		{
			Id:        "it-chunk-far",
			SessionId: sessionId,
			Text:      "Triund has a gentle ridge walk above McLeod Ganj.",
			Embedding: vec(0),
			Metadata:  entity.ChunkMetadata{Source: "wikivoyage", TrailName: "Triund", SectionType: "overview"},
		},
	}
	require.NoError(t, repo.CreateBulk(ctx, chunks))

	// Re-insert must be a no-op, the id is a content hash upstream.
	require.NoError(t, repo.CreateBulk(ctx, chunks))

	scored, err := repo.SearchSimilar(ctx, sessionId, vec(1), 2)
	require.NoError(t, err)
	require.Len(t, scored, 2)
	assert.Equal(t, "it-chunk-close", scored[0].Chunk.Id)
	assert.Equal(t, "Kedarkantha", scored[0].Chunk.Metadata.TrailName)
	assert.LessOrEqual(t, scored[0].Distance, scored[1].Distance)

	// Another session must not see these chunks.
	other, err := repo.SearchSimilar(ctx, uuid.New(), vec(1), 2)
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, repo.DeleteBySession(ctx, sessionId))
	gone, err := repo.SearchSimilar(ctx, sessionId, vec(1), 2)
	require.NoError(t, err)
	assert.Empty(t, gone)
}
