// Package weather enriches answers with current mountain conditions scraped
// from mountain-forecast.com peak pages.
package weather

import (
	"context"
	"strings"
	"time"

	"trek-assistant-be/internal/pkg/logger"
	"trek-assistant-be/pkg/cache"
	"trek-assistant-be/pkg/connector"

	"github.com/PuerkitoBio/goquery"
)

// Conditions describes one elevation band of the forecast.
type Conditions struct {
	Temp       string `json:"temp"`
	Conditions string `json:"conditions"`
}

// Report is the weather payload attached to a pipeline response.
type Report struct {
	Trail        string                `json:"trail"`
	Elevations   map[string]Conditions `json:"elevations"`
	ForecastDate string                `json:"forecast_date"`
	Warnings     []string              `json:"warnings"`
	SourceURL    string                `json:"source_url,omitempty"`
	Summary      string                `json:"summary"`
}

// Crawler fetches forecast pages and caches the parsed reports.
type Crawler struct {
	client *connector.Client
	peaks  *connector.MountainForecast
	cache  *cache.Manager
	log    logger.ILogger
}

func NewCrawler(client *connector.Client, peaks *connector.MountainForecast, cacheManager *cache.Manager, log logger.ILogger) *Crawler {
	return &Crawler{
		client: client,
		peaks:  peaks,
		cache:  cacheManager,
		log:    log,
	}
}

// Fetch returns the forecast for a trail. Unmapped trails and fetch failures
// yield a Report carrying a warning instead of an error; a missing forecast
// never degrades the answer below what the other stages produced.
func (c *Crawler) Fetch(ctx context.Context, trail string) *Report {
	key := "weather:" + trail
	if cached, ok := c.cache.Get(cache.WeatherCache, key); ok {
		if report, ok := cached.(*Report); ok {
			return report
		}
	}

	report := c.fetch(ctx, trail)
	c.cache.Set(cache.WeatherCache, key, report, c.cache.TTL(cache.WeatherCache))
	return report
}

func (c *Crawler) fetch(ctx context.Context, trail string) *Report {
	report := &Report{
		Trail:        trail,
		Elevations:   map[string]Conditions{},
		ForecastDate: time.Now().UTC().Format("2006-01-02"),
		Warnings:     []string{},
	}

	url := c.peaks.PeakURL(trail)
	if url == "" {
		report.Warnings = append(report.Warnings, "No mapped peak for this trail")
		return report
	}
	report.SourceURL = url

	html, err := c.client.Get(ctx, url)
	if err != nil {
		if c.log != nil {
			c.log.Warn("weather", "forecast fetch failed", map[string]interface{}{
				"trail": trail,
				"url":   url,
				"error": err.Error(),
			})
		}
		report.Warnings = append(report.Warnings, "Unable to fetch mountain-forecast page")
		return report
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		report.Warnings = append(report.Warnings, "Unable to parse mountain-forecast page")
		return report
	}

	report.Summary = extractSummary(doc)
	report.Elevations = extractElevationBlocks(doc)
	return report
}

func extractSummary(doc *goquery.Document) string {
	if content, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		return strings.TrimSpace(content)
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// extractElevationBlocks picks the summit/mid/base paragraphs out of the
// page; when the layout carries none of those headings it falls back to the
// first forecast table, flattened.
func extractElevationBlocks(doc *goquery.Document) map[string]Conditions {
	results := make(map[string]Conditions)

	doc.Find("h2, h3").Each(func(_ int, hd *goquery.Selection) {
		title := strings.ToLower(strings.TrimSpace(hd.Text()))
		var band string
		switch {
		case strings.Contains(title, "summit"):
			band = "summit"
		case strings.Contains(title, "mid"):
			band = "mid"
		case strings.Contains(title, "base"):
			band = "base"
		default:
			return
		}
		var buf []string
		hd.NextUntil("h2, h3").Each(func(_ int, sib *goquery.Selection) {
			if goquery.NodeName(sib) == "p" {
				buf = append(buf, strings.TrimSpace(sib.Text()))
			}
		})
		results[band] = Conditions{Conditions: strings.TrimSpace(strings.Join(buf, " "))}
	})

	if len(results) == 0 {
		if table := doc.Find("table").First(); table.Length() > 0 {
			txt := strings.Join(strings.Fields(table.Text()), " ")
			if len(txt) > 400 {
				txt = txt[:400]
			}
			results["summary"] = Conditions{Conditions: txt}
		}
	}
	return results
}
