package mapper

import (
	"testing"
	"time"

	"trek-assistant-be/pkg/connector"
	"trek-assistant-be/pkg/extract"
	"trek-assistant-be/pkg/pipeline"
	"trek-assistant-be/pkg/trailinfo"
)

func TestAskMapperFromContext(t *testing.T) {
	m := NewAskMapper()
	now := time.Now().UTC()

	c := &pipeline.Context{
		Question:  "Is Kedarkantha safe in December?",
		Timestamp: now,
		Entities: extract.Entities{
			Trail:   "Kedarkantha",
			Intent:  "safety",
			Sources: []connector.Source{connector.SourceWikivoyage, connector.SourceMountainForecast},
		},
		Documents: []connector.Document{
			{Text: "snowy ridge", Source: connector.SourceWikivoyage, TrailName: "Kedarkantha", SectionType: "overview", URL: "https://example.org"},
		},
		TrailStats: &trailinfo.Stats{
			Distance:      "24 km",
			ElevationGain: "1250 m",
			Duration:      "2-3 days",
			Difficulty:    "Moderate",
		},
		TrailMapURL: "https://www.openstreetmap.org/search?query=Kedarkantha",
		Answer:      "Carry microspikes.",
		DebugLogs: []pipeline.DebugLog{
			{Stage: "extract", Timestamp: now, Message: "trail=Kedarkantha"},
		},
	}

	res := m.FromContext(c, false)

	if res.Question != c.Question {
		t.Errorf("Question = %q, want %q", res.Question, c.Question)
	}
	if res.FinalAnswer != "Carry microspikes." {
		t.Errorf("FinalAnswer = %q", res.FinalAnswer)
	}
	if len(res.Sources) != 2 || res.Sources[0] != "wikivoyage" {
		t.Errorf("Sources = %v, want connector names as strings", res.Sources)
	}
	if len(res.RawDocuments) != 1 || res.RawDocuments[0].Source != "wikivoyage" {
		t.Errorf("RawDocuments = %v", res.RawDocuments)
	}
	if res.GpxData == nil || res.GpxData.Distance != "24 km" {
		t.Errorf("GpxData = %+v, want trail stats copied over", res.GpxData)
	}
	if res.RetrievedContext == nil {
		t.Error("RetrievedContext = nil, want empty slice for JSON stability")
	}
	if len(res.DebugLogs) != 1 || res.DebugLogs[0].Stage != "extract" {
		t.Errorf("DebugLogs = %v", res.DebugLogs)
	}
	if res.Cached {
		t.Error("Cached = true, want false on a fresh run")
	}
}

func TestAskMapperFromContextNoTrail(t *testing.T) {
	m := NewAskMapper()
	c := &pipeline.Context{
		Question: "???",
		Entities: extract.Entities{Intent: "general"},
		Answer:   "Sorry, not enough information.",
	}

	res := m.FromContext(c, true)

	if res.GpxData != nil {
		t.Errorf("GpxData = %+v, want nil without trail stats", res.GpxData)
	}
	if res.Weather != nil {
		t.Errorf("Weather = %+v, want nil", res.Weather)
	}
	if !res.Cached {
		t.Error("Cached = false, want true")
	}
	if len(res.RawDocuments) != 0 || len(res.Sources) != 0 {
		t.Errorf("expected empty collections, got docs=%d sources=%d", len(res.RawDocuments), len(res.Sources))
	}
}
