package mapper

import (
	"trek-assistant-be/internal/dto"
	"trek-assistant-be/pkg/pipeline"
	"trek-assistant-be/pkg/rag"
)

type AskMapper struct{}

func NewAskMapper() *AskMapper {
	return &AskMapper{}
}

// FromContext flattens a finished pipeline run into the response payload
// shared by the REST and WebSocket surfaces.
func (m *AskMapper) FromContext(c *pipeline.Context, cached bool) *dto.AskResponse {
	res := &dto.AskResponse{
		Question:         c.Question,
		Timestamp:        c.Timestamp,
		Entities:         c.Entities,
		Sources:          make([]string, 0, len(c.Entities.Sources)),
		RawDocuments:     make([]dto.RawDocumentResponse, 0, len(c.Documents)),
		RetrievedContext: c.RetrievedContext,
		FinalAnswer:      c.Answer,
		Weather:          c.Weather,
		TrailMapURL:      c.TrailMapURL,
		AllTrailsURL:     c.AllTrailsURL,
		DebugLogs:        make([]dto.DebugLogResponse, 0, len(c.DebugLogs)),
		Cached:           cached,
	}
	if res.RetrievedContext == nil {
		res.RetrievedContext = make([]rag.RetrievedChunk, 0)
	}

	for _, s := range c.Entities.Sources {
		res.Sources = append(res.Sources, string(s))
	}

	for _, d := range c.Documents {
		res.RawDocuments = append(res.RawDocuments, dto.RawDocumentResponse{
			Text:        d.Text,
			Source:      string(d.Source),
			TrailName:   d.TrailName,
			SectionType: d.SectionType,
			URL:         d.URL,
		})
	}

	if c.TrailStats != nil {
		res.GpxData = &dto.TrailStatsResponse{
			Distance:      c.TrailStats.Distance,
			ElevationGain: c.TrailStats.ElevationGain,
			Duration:      c.TrailStats.Duration,
			Difficulty:    c.TrailStats.Difficulty,
		}
	}

	for _, l := range c.DebugLogs {
		res.DebugLogs = append(res.DebugLogs, dto.DebugLogResponse{
			Stage:     l.Stage,
			Timestamp: l.Timestamp,
			Message:   l.Message,
		})
	}

	return res
}
