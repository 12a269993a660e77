package connector

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const defaultWikivoyageBase = "https://en.wikivoyage.org/wiki/"

// Wikivoyage fetches the trail's Wikivoyage article and splits it into
// per-section documents so the index can retrieve the relevant part.
type Wikivoyage struct {
	client *Client
	base   string
}

func NewWikivoyage(client *Client, base string) *Wikivoyage {
	if base == "" {
		base = defaultWikivoyageBase
	}
	return &Wikivoyage{client: client, base: base}
}

func (w *Wikivoyage) Source() Source { return SourceWikivoyage }

func (w *Wikivoyage) Fetch(ctx context.Context, trail string) ([]Document, error) {
	pageURL := w.base + url.PathEscape(strings.ReplaceAll(trail, " ", "_"))
	html, err := w.client.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var docs []Document
	section := "Introduction"
	var buf []string

	flush := func() {
		text := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if text == "" {
			return
		}
		docs = append(docs, Document{
			Text:        truncate(text, 4000),
			Source:      SourceWikivoyage,
			TrailName:   trail,
			SectionType: section,
			URL:         pageURL,
		})
	}

	doc.Find("#mw-content-text").First().Find("h2, h3, p, li").Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "h2", "h3":
			flush()
			if title := strings.TrimSpace(s.Text()); title != "" {
				section = title
			}
		default:
			if t := strings.TrimSpace(s.Text()); t != "" {
				buf = append(buf, t)
			}
		}
	})
	flush()

	return docs, nil
}
