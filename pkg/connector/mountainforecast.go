package connector

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const defaultMountainForecastBase = "https://www.mountain-forecast.com/peaks/"

// trailToPeak maps trails to the mountain-forecast peak page that best
// represents their conditions. Valley of Flowers has no page of its own, so
// nearby Trisul stands in.
var trailToPeak = map[string]string{
	"Kedarkantha":       "Kedarkantha",
	"Kalsubai":          "Kalsubai",
	"Valley of Flowers": "Trisul",
}

// MountainForecast turns a mountain-forecast.com peak page into documents:
// the page summary plus per-elevation condition blocks.
type MountainForecast struct {
	client *Client
	base   string
}

func NewMountainForecast(client *Client, base string) *MountainForecast {
	if base == "" {
		base = defaultMountainForecastBase
	}
	return &MountainForecast{client: client, base: base}
}

func (m *MountainForecast) Source() Source { return SourceMountainForecast }

// PeakURL resolves the forecast page for a trail, empty when no peak is
// mapped.
func (m *MountainForecast) PeakURL(trail string) string {
	peak, ok := trailToPeak[trail]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s%s/forecasts", m.base, peak)
}

func (m *MountainForecast) Fetch(ctx context.Context, trail string) ([]Document, error) {
	pageURL := m.PeakURL(trail)
	if pageURL == "" {
		return nil, nil
	}

	html, err := m.client.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var docs []Document
	add := func(section, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		docs = append(docs, Document{
			Text:        truncate(text, 4000),
			Source:      SourceMountainForecast,
			TrailName:   trail,
			SectionType: section,
			URL:         pageURL,
		})
	}

	if summary, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		add("summary", summary)
	}

	found := false
	doc.Find("h2, h3").Each(func(_ int, hd *goquery.Selection) {
		title := strings.ToLower(strings.TrimSpace(hd.Text()))
		var section string
		switch {
		case strings.Contains(title, "summit"):
			section = "summit"
		case strings.Contains(title, "mid"):
			section = "mid"
		case strings.Contains(title, "base"):
			section = "base"
		default:
			return
		}
		var buf []string
		hd.NextUntil("h2, h3").Each(func(_ int, sib *goquery.Selection) {
			if goquery.NodeName(sib) == "p" {
				buf = append(buf, strings.TrimSpace(sib.Text()))
			}
		})
		if block := strings.TrimSpace(strings.Join(buf, " ")); block != "" {
			add(section, block)
			found = true
		}
	})

	// Barest fallback: the first forecast table, flattened.
	if !found {
		if table := doc.Find("table").First(); table.Length() > 0 {
			add("conditions", truncate(strings.Join(strings.Fields(table.Text()), " "), 400))
		}
	}

	return docs, nil
}
