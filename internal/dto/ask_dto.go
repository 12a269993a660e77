package dto

import (
	"time"

	"trek-assistant-be/pkg/extract"
	"trek-assistant-be/pkg/rag"
	"trek-assistant-be/pkg/weather"
)

type AskRequest struct {
	Question string `json:"question" validate:"required,min=3"`
}

// RawDocumentResponse is one fetched document before chunking, echoed back
// so clients can show provenance.
type RawDocumentResponse struct {
	Text        string `json:"text"`
	Source      string `json:"source"`
	TrailName   string `json:"trail_name"`
	SectionType string `json:"section_type"`
	URL         string `json:"url,omitempty"`
}

// TrailStatsResponse carries the route geometry summary.
type TrailStatsResponse struct {
	Distance      string `json:"distance"`
	ElevationGain string `json:"elevation_gain"`
	Duration      string `json:"duration"`
	Difficulty    string `json:"difficulty"`
}

// DebugLogResponse is one rendered pipeline log line.
type DebugLogResponse struct {
	Stage     string    `json:"stage"`
	Timestamp time.Time `json:"ts"`
	Message   string    `json:"message"`
}

type AskResponse struct {
	Question         string                `json:"question"`
	Timestamp        time.Time             `json:"timestamp"`
	Entities         extract.Entities      `json:"entities"`
	Sources          []string              `json:"sources"`
	RawDocuments     []RawDocumentResponse `json:"raw_documents"`
	RetrievedContext []rag.RetrievedChunk  `json:"retrieved_context"`
	FinalAnswer      string                `json:"final_answer"`
	Weather          *weather.Report       `json:"weather,omitempty"`
	GpxData          *TrailStatsResponse   `json:"gpx_data,omitempty"`
	TrailMapURL      string                `json:"trail_map_url,omitempty"`
	AllTrailsURL     string                `json:"alltrails_url,omitempty"`
	DebugLogs        []DebugLogResponse    `json:"debug_logs"`
	Cached           bool                  `json:"cached"`
}
