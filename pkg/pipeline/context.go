// Package pipeline sequences one question through extraction, retrieval,
// enrichment, indexing and answer synthesis, tolerating any stage's failure.
package pipeline

import (
	"time"

	"trek-assistant-be/pkg/connector"
	"trek-assistant-be/pkg/extract"
	"trek-assistant-be/pkg/rag"
	"trek-assistant-be/pkg/trailinfo"
	"trek-assistant-be/pkg/weather"
)

// ProgressFunc receives human-readable progress messages during a run. It
// must be safe to call from any stage.
type ProgressFunc func(message string)

// DebugLog is one observability record appended by a stage.
type DebugLog struct {
	Stage     string    `json:"stage"`
	Timestamp time.Time `json:"ts"`
	Message   string    `json:"message"`
}

// StageResult is the structured outcome of one stage: the orchestrator
// always proceeds, but a failure reason is kept as data rather than a
// swallowed exception.
type StageResult struct {
	Stage string
	Err   error
}

// Context is the single record threaded through all stages of one run. Each
// field is written by exactly one stage and read-only afterwards.
type Context struct {
	Question  string
	Timestamp time.Time

	Entities extract.Entities

	Documents []connector.Document

	Weather *weather.Report

	TrailStats   *trailinfo.Stats
	TrailMapURL  string
	AllTrailsURL string

	IndexedIds       []string
	RetrievedContext []rag.RetrievedChunk

	Answer string

	DebugLogs    []DebugLog
	StageResults []StageResult
}

func (c *Context) appendLog(stage, message string) {
	c.DebugLogs = append(c.DebugLogs, DebugLog{
		Stage:     stage,
		Timestamp: time.Now().UTC(),
		Message:   message,
	})
}
