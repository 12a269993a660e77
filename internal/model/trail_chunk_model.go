package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type TrailChunk struct {
	Id        string            `gorm:"type:varchar(80);primaryKey"`
	SessionId uuid.UUID         `gorm:"type:uuid;primaryKey;index"`
	Text      string            `gorm:"type:text"`
	Embedding pgvector.Vector   `gorm:"type:vector(768)"` // Gemini text-embedding-004 uses 768 dimensions
	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time         `gorm:"autoCreateTime"`
}

func (TrailChunk) TableName() string {
	return "trail_chunks"
}
