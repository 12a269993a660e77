package connector

import (
	"context"
	"net/url"
	"strings"
)

const defaultOSMWikiBase = "https://wiki.openstreetmap.org/wiki/"

// OSMWiki fetches the OpenStreetMap wiki page for a trail. OSM wiki pages
// carry route geometry notes, GPX references and coordinates.
type OSMWiki struct {
	client *Client
	base   string
}

func NewOSMWiki(client *Client, base string) *OSMWiki {
	if base == "" {
		base = defaultOSMWikiBase
	}
	return &OSMWiki{client: client, base: base}
}

func (o *OSMWiki) Source() Source { return SourceOSMWiki }

func (o *OSMWiki) Fetch(ctx context.Context, trail string) ([]Document, error) {
	pageURL := o.base + url.PathEscape(strings.ReplaceAll(trail, " ", "_"))
	html, err := o.client.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	text, err := ExtractReadableText(html)
	if err != nil || text == "" {
		return nil, err
	}

	return []Document{{
		Text:        truncate(text, 4000),
		Source:      SourceOSMWiki,
		TrailName:   trail,
		SectionType: "wiki",
		URL:         pageURL,
	}}, nil
}
