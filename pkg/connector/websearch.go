package connector

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

const ddgHTMLEndpoint = "https://html.duckduckgo.com/html/"

// domainWeights ranks result credibility; official tourism pages outrank
// everything.
var domainWeights = map[string]float64{
	"wikipedia.org":          0.9,
	"mountain-forecast.com":  0.85,
	"wiki.openstreetmap.org": 0.8,
	"alltrails.com":          0.6,
	"wikivoyage.org":         0.5,
}

var domainBlacklist = []string{
	"baidu.com",
	"zhihu.com",
	"reddit.com",
	"youtube.com",
	"bilibili.com",
	"fandom.com",
}

var trekTerms = []string{"trek", "trail", "hike", "itinerary", "altitude", "permit", "distance", "elevation"}

var indiaTerms = []string{"india", "uttarakhand", "ladakh", "himachal", "maharashtra", "kashmir", "sikkim"}

type searchHit struct {
	title  string
	url    string
	weight float64
}

// WebSearch is the always-available fallback source: a DuckDuckGo meta
// search whose top hits are fetched and reduced to readable text.
type WebSearch struct {
	client     *Client
	maxResults int
	endpoint   string
}

func NewWebSearch(client *Client, maxResults int) *WebSearch {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &WebSearch{client: client, maxResults: maxResults, endpoint: ddgHTMLEndpoint}
}

// SearchLink is one organic result returned by SearchLinks.
type SearchLink struct {
	Title string
	URL   string
}

// SearchLinks runs a single query and returns the decoded result links in
// result order, with blacklisted domains dropped. Unlike Fetch it does not
// visit the result pages.
func (w *WebSearch) SearchLinks(ctx context.Context, query string) ([]SearchLink, error) {
	hits, err := w.searchOnce(ctx, query)
	if err != nil {
		return nil, err
	}
	var links []SearchLink
	for _, h := range hits {
		if h.url == "" || isBlacklisted(h.url) {
			continue
		}
		links = append(links, SearchLink{Title: h.title, URL: h.url})
	}
	return links, nil
}

func (w *WebSearch) Source() Source { return SourceWebSearch }

func (w *WebSearch) Fetch(ctx context.Context, trail string) ([]Document, error) {
	queries := []string{
		fmt.Sprintf("%s trek route details", trail),
		fmt.Sprintf("%s trek route difficulty distance", trail),
		fmt.Sprintf("%s trek permits", trail),
		fmt.Sprintf("%s trek GPX OSM", trail),
	}

	seen := make(map[string]bool)
	var ranked []searchHit
	for _, q := range queries {
		hits, err := w.searchOnce(ctx, q)
		if err != nil {
			continue // one failed query is not fatal, others may land
		}
		for _, h := range hits {
			if h.url == "" || seen[h.url] || isBlacklisted(h.url) {
				continue
			}
			seen[h.url] = true
			h.weight = scoreURL(h.url)
			ranked = append(ranked, h)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].weight > ranked[j].weight })
	if len(ranked) > w.maxResults {
		ranked = ranked[:w.maxResults]
	}

	var mu sync.Mutex
	var docs []Document
	g, gctx := errgroup.WithContext(ctx)
	for _, hit := range ranked {
		hit := hit
		g.Go(func() error {
			doc, ok := w.fetchAndExtract(gctx, trail, hit)
			if ok {
				mu.Lock()
				docs = append(docs, doc)
				mu.Unlock()
			}
			return nil // per-page failures never abort the stage
		})
	}
	if err := g.Wait(); err != nil {
		return docs, err
	}
	return docs, nil
}

// searchOnce runs one query against the HTML search endpoint and parses the
// organic result links.
func (w *WebSearch) searchOnce(ctx context.Context, query string) ([]searchHit, error) {
	searchURL := w.endpoint + "?q=" + url.QueryEscape(query)
	html, err := w.client.Get(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var hits []searchHit
	doc.Find(".result__a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		hits = append(hits, searchHit{
			title: strings.TrimSpace(a.Text()),
			url:   decodeResultURL(href),
		})
	})
	return hits, nil
}

// decodeResultURL unwraps the redirect links the HTML endpoint emits
// ("//duckduckgo.com/l/?uddg=<target>").
func decodeResultURL(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return href
	}
	return ""
}

func (w *WebSearch) fetchAndExtract(ctx context.Context, trail string, hit searchHit) (Document, bool) {
	html, err := w.client.Get(ctx, hit.url)
	if err != nil {
		return Document{}, false
	}
	text, err := ExtractReadableText(html)
	if err != nil || text == "" {
		return Document{}, false
	}
	if asciiRatio(text) < 0.7 {
		return Document{}, false
	}
	if !looksLikeTrekContent(hit.title, text) {
		return Document{}, false
	}
	return Document{
		Text:        truncate(text, 4000),
		Source:      SourceWebSearch,
		TrailName:   trail,
		SectionType: "webpage",
		URL:         hit.url,
	}, true
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

func scoreURL(rawURL string) float64 {
	host := hostOf(rawURL)
	if host == "" {
		return 0.1
	}
	if strings.HasSuffix(host, ".gov.in") {
		return 1.0
	}
	for dom, weight := range domainWeights {
		if strings.Contains(host, dom) {
			return weight
		}
	}
	return 0.3
}

func isBlacklisted(rawURL string) bool {
	host := hostOf(rawURL)
	for _, b := range domainBlacklist {
		if strings.Contains(host, b) {
			return true
		}
	}
	return false
}

// looksLikeTrekContent keeps only pages that read like Indian trekking
// content, dropping generic travel spam the meta search surfaces.
func looksLikeTrekContent(title, text string) bool {
	t := strings.ToLower(title + "\n" + text)
	hasTrek := false
	for _, k := range trekTerms {
		if strings.Contains(t, k) {
			hasTrek = true
			break
		}
	}
	if !hasTrek {
		return false
	}
	for _, k := range indiaTerms {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}
