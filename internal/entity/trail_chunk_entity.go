package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChunkMetadata is the provenance carried by every indexed chunk.
type ChunkMetadata struct {
	Source      string `json:"source"`
	TrailName   string `json:"trail_name"`
	SectionType string `json:"section_type"`
	URL         string `json:"url"`
}

// TrailChunk is one indexed unit of text. Id is a content+metadata hash so
// identical ingests map to the same record; SessionId scopes the chunk to a
// single question's lifetime.
type TrailChunk struct {
	Id        string
	SessionId uuid.UUID
	Text      string
	Embedding []float32
	Metadata  ChunkMetadata
	CreatedAt time.Time
}
