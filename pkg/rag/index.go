// Package rag is the retrieval layer of the question pipeline: a
// session-scoped index over fetched documents plus the grounded answer
// generator.
package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"

	"trek-assistant-be/internal/entity"
	"trek-assistant-be/internal/pkg/logger"
	"trek-assistant-be/internal/repository/contract"
	"trek-assistant-be/pkg/connector"
	"trek-assistant-be/pkg/embedding"
	"trek-assistant-be/pkg/utils"

	"github.com/google/uuid"
)

// RetrievedChunk is one search result with its normalized relevance score.
type RetrievedChunk struct {
	Text     string               `json:"text"`
	Metadata entity.ChunkMetadata `json:"metadata"`
	Score    float64              `json:"score"`
	Distance float64              `json:"distance"`
}

// Store builds per-question session indexes over a shared chunk repository.
type Store struct {
	repo      contract.TrailChunkRepository
	embedder  embedding.Provider
	dim       int
	chunkSize int
	overlap   int
	log       logger.ILogger
}

func NewStore(repo contract.TrailChunkRepository, embedder embedding.Provider, dim int, log logger.ILogger) *Store {
	if dim <= 0 {
		dim = 768
	}
	return &Store{
		repo:      repo,
		embedder:  embedder,
		dim:       dim,
		chunkSize: 1200,
		overlap:   200,
		log:       log,
	}
}

// NewSession opens an isolated index for one question. The caller owns the
// reset-then-fill-then-close lifecycle.
func (s *Store) NewSession() *SessionIndex {
	return &SessionIndex{
		store:     s,
		sessionId: uuid.New(),
	}
}

// SessionIndex is the retrieval index for a single question. Not safe for
// concurrent use; one pipeline run owns it exclusively.
type SessionIndex struct {
	store     *Store
	sessionId uuid.UUID
}

func (si *SessionIndex) SessionId() uuid.UUID {
	return si.sessionId
}

// Reset discards everything indexed so far, so context from an unrelated
// prior fill never leaks into the next search.
func (si *SessionIndex) Reset(ctx context.Context) error {
	return si.store.repo.DeleteBySession(ctx, si.sessionId)
}

// Ingest chunks, deduplicates and embeds the documents, then stores them
// under this session. Documents with empty text are dropped; documents whose
// content hash was already indexed in this call or a previous one are
// skipped. Returns the ids of the chunks passed to storage.
func (si *SessionIndex) Ingest(ctx context.Context, docs []connector.Document) ([]string, error) {
	var texts []string
	var chunks []*entity.TrailChunk
	seen := make(map[string]bool)

	for _, doc := range docs {
		if doc.Text == "" {
			continue
		}
		meta := entity.ChunkMetadata{
			Source:      string(doc.Source),
			TrailName:   doc.TrailName,
			SectionType: doc.SectionType,
			URL:         doc.URL,
		}
		for _, piece := range utils.SplitText(doc.Text, si.store.chunkSize, si.store.overlap) {
			id := chunkId(piece, meta)
			if seen[id] {
				continue
			}
			seen[id] = true
			texts = append(texts, piece)
			chunks = append(chunks, &entity.TrailChunk{
				Id:        id,
				SessionId: si.sessionId,
				Text:      piece,
				Metadata:  meta,
			})
		}
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors, err := si.store.embedder.GenerateBatch(ctx, texts, embedding.TaskRetrievalDocument)
	if err != nil || len(vectors) != len(texts) {
		// Degrade to zero vectors: the chunks stay retrievable as documents
		// even when the embedding backend is down.
		if si.store.log != nil {
			si.store.log.Warn("rag", "embedding batch failed, storing zero vectors", map[string]interface{}{
				"error":  errString(err),
				"chunks": len(texts),
			})
		}
		vectors = make([][]float32, len(texts))
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		if vectors[i] == nil {
			vectors[i] = make([]float32, si.store.dim)
		}
		c.Embedding = vectors[i]
		ids[i] = c.Id
	}

	if err := si.store.repo.CreateBulk(ctx, chunks); err != nil {
		return nil, err
	}
	return ids, nil
}

// Search embeds the query and returns the k nearest chunks of this session,
// each with score = clamp(1 - cosine distance) into [0,1].
func (si *SessionIndex) Search(ctx context.Context, query string, k int) ([]RetrievedChunk, error) {
	queryVec, err := si.store.embedder.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil || len(queryVec) == 0 {
		if si.store.log != nil {
			si.store.log.Warn("rag", "query embedding failed, using zero vector", map[string]interface{}{
				"error": errString(err),
			})
		}
		queryVec = make([]float32, si.store.dim)
	}

	scored, err := si.store.repo.SearchSimilar(ctx, si.sessionId, queryVec, k)
	if err != nil {
		return nil, err
	}

	results := make([]RetrievedChunk, len(scored))
	for i, s := range scored {
		results[i] = RetrievedChunk{
			Text:     s.Chunk.Text,
			Metadata: s.Chunk.Metadata,
			Score:    normalizeScore(s.Distance),
			Distance: s.Distance,
		}
	}
	return results, nil
}

// Close tears the session's data down.
func (si *SessionIndex) Close(ctx context.Context) error {
	return si.store.repo.DeleteBySession(ctx, si.sessionId)
}

// chunkId hashes content plus metadata so identical ingests map to the same
// record. The payload is a fixed-field struct, so the encoding is stable
// across processes.
func chunkId(text string, meta entity.ChunkMetadata) string {
	payload := struct {
		Metadata entity.ChunkMetadata `json:"metadata"`
		Text     string               `json:"text"`
	}{Metadata: meta, Text: text}
	blob, _ := json.Marshal(payload)
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

// normalizeScore clamps cosine distance before inverting so malformed
// distances never produce out-of-range scores. A NaN distance (a zero-norm
// query vector makes cosine distance undefined) scores 0.
func normalizeScore(distance float64) float64 {
	if math.IsNaN(distance) {
		return 0
	}
	score := 1 - distance
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
