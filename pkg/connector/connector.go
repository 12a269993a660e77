// Package connector defines the document sources the pipeline can consult
// and the shared fetching plumbing they use. Each connector is best-effort:
// "no results" is an empty slice, an error means a genuine network or
// parsing fault.
package connector

import (
	"context"
	"fmt"
)

// Source is a closed enumeration of document origins. Configuration carrying
// an unknown source name is rejected at construction time, never silently
// skipped.
type Source string

const (
	SourceWikivoyage       Source = "wikivoyage"
	SourceMountainForecast Source = "mountain_forecast"
	SourceOSMWiki          Source = "osm_wiki"
	SourceWebSearch        Source = "websearch"
)

// ParseSource validates a source name from configuration.
func ParseSource(name string) (Source, error) {
	switch Source(name) {
	case SourceWikivoyage, SourceMountainForecast, SourceOSMWiki, SourceWebSearch:
		return Source(name), nil
	}
	return "", fmt.Errorf("unknown source %q", name)
}

// Document is one raw unit of fetched content. Documents have no identity
// until they are indexed.
type Document struct {
	Text        string
	Source      Source
	TrailName   string
	SectionType string
	URL         string
}

// Connector fetches documents about a trail from one source.
type Connector interface {
	Source() Source
	Fetch(ctx context.Context, trail string) ([]Document, error)
}

// Registry is the total mapping from source identifier to connector.
type Registry struct {
	connectors map[Source]Connector
}

func NewRegistry(connectors ...Connector) (*Registry, error) {
	r := &Registry{connectors: make(map[Source]Connector, len(connectors))}
	for _, c := range connectors {
		if _, err := ParseSource(string(c.Source())); err != nil {
			return nil, err
		}
		if _, dup := r.connectors[c.Source()]; dup {
			return nil, fmt.Errorf("duplicate connector for source %q", c.Source())
		}
		r.connectors[c.Source()] = c
	}
	return r, nil
}

// Get returns the connector for a source. The bool is false when the source
// is valid but no connector was registered for it.
func (r *Registry) Get(source Source) (Connector, bool) {
	c, ok := r.connectors[source]
	return c, ok
}
