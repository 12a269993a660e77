package mapper

import (
	"trek-assistant-be/internal/entity"
	"trek-assistant-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type TrailChunkMapper struct{}

func NewTrailChunkMapper() *TrailChunkMapper {
	return &TrailChunkMapper{}
}

func (m *TrailChunkMapper) ToEntity(c *model.TrailChunk) *entity.TrailChunk {
	if c == nil {
		return nil
	}

	return &entity.TrailChunk{
		Id:        c.Id,
		SessionId: c.SessionId,
		Text:      c.Text,
		Embedding: c.Embedding.Slice(),
		Metadata: entity.ChunkMetadata{
			Source:      asString(c.Metadata["source"]),
			TrailName:   asString(c.Metadata["trail_name"]),
			SectionType: asString(c.Metadata["section_type"]),
			URL:         asString(c.Metadata["url"]),
		},
		CreatedAt: c.CreatedAt,
	}
}

func (m *TrailChunkMapper) ToModel(c *entity.TrailChunk) *model.TrailChunk {
	if c == nil {
		return nil
	}

	return &model.TrailChunk{
		Id:        c.Id,
		SessionId: c.SessionId,
		Text:      c.Text,
		Embedding: pgvector.NewVector(c.Embedding),
		Metadata: datatypes.JSONMap{
			"source":       c.Metadata.Source,
			"trail_name":   c.Metadata.TrailName,
			"section_type": c.Metadata.SectionType,
			"url":          c.Metadata.URL,
		},
		CreatedAt: c.CreatedAt,
	}
}

func (m *TrailChunkMapper) ToEntities(chunks []*model.TrailChunk) []*entity.TrailChunk {
	entities := make([]*entity.TrailChunk, len(chunks))
	for i, c := range chunks {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
