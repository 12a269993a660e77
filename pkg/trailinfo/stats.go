// Package trailinfo serves static route statistics and map links for known
// trails, with a Naismith-rule duration estimate for routes missing one.
package trailinfo

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"trek-assistant-be/pkg/cache"
	"trek-assistant-be/pkg/connector"
)

// Stats is the GPX-derived summary for one trail.
type Stats struct {
	Distance      string `json:"distance"`
	ElevationGain string `json:"elevation_gain"`
	Duration      string `json:"duration"`
	Difficulty    string `json:"difficulty"`
}

// Links carries the map URLs attached alongside Stats.
type Links struct {
	TrailMapURL  string `json:"trail_map_url"`
	AllTrailsURL string `json:"alltrails_url"`
}

var knownStats = map[string]Stats{
	"Triund": {
		Distance:      "14 km",
		ElevationGain: "1100 m",
		Duration:      "4-6 hours",
		Difficulty:    "Moderate",
	},
	"Kedarkantha": {
		Distance:      "24 km",
		ElevationGain: "1250 m",
		Duration:      "2-3 days",
		Difficulty:    "Moderate",
	},
	"Valley of Flowers": {
		Distance:      "17 km",
		ElevationGain: "600 m",
		Duration:      "1 day",
		Difficulty:    "Moderate",
	},
	"Kalsubai": {
		Distance:      "6 km",
		ElevationGain: "800 m",
		Duration:      "3-5 hours",
		Difficulty:    "Moderate",
	},
	"Hampta Pass": {
		Distance:      "35 km",
		ElevationGain: "1500 m",
		Duration:      "4-5 days",
		Difficulty:    "Moderate-Difficult",
	},
}

// Direct links for popular treks whose AllTrails slugs are verified.
var knownAllTrailsSlugs = map[string]string{
	"Kalsubai": "https://www.alltrails.com/trail/india/maharashtra/kalsubai-peak-trail",
	"Triund":   "https://www.alltrails.com/trail/india/himachal-pradesh/triund-trek",
}

// LinkSearcher resolves map links by live web search; the websearch
// connector satisfies it.
type LinkSearcher interface {
	SearchLinks(ctx context.Context, query string) ([]connector.SearchLink, error)
}

// Service answers trail-stat lookups, caching resolved results.
type Service struct {
	cache  *cache.Manager
	search LinkSearcher
}

// NewService builds the lookup service. searcher may be nil, in which case
// AllTrails links for trails without a verified slug fall back to a search
// URL instead of being resolved live.
func NewService(cacheManager *cache.Manager, searcher LinkSearcher) *Service {
	return &Service{cache: cacheManager, search: searcher}
}

// Lookup never fails: unknown trails get placeholder stats plus map search
// links so the caller always has something to render.
func (s *Service) Lookup(ctx context.Context, trail string) (Stats, Links) {
	key := "trailinfo:" + trail
	if cached, ok := s.cache.Get(cache.TrailInfoCache, key); ok {
		if hit, ok := cached.(lookupResult); ok {
			return hit.stats, hit.links
		}
	}

	stats, ok := knownStats[trail]
	if !ok {
		stats = Stats{Distance: "-", ElevationGain: "-", Duration: "-", Difficulty: "-"}
	}
	if stats.Duration == "" {
		stats.Duration = EstimateDuration(parseKm(stats.Distance), parseM(stats.ElevationGain))
	}

	links := Links{
		TrailMapURL:  osmSearchURL(trail),
		AllTrailsURL: s.allTrailsURL(ctx, trail),
	}

	s.cache.Set(cache.TrailInfoCache, key, lookupResult{stats: stats, links: links}, s.cache.TTL(cache.TrailInfoCache))
	return stats, links
}

type lookupResult struct {
	stats Stats
	links Links
}

// EstimateDuration applies Naismith's rule (5 km/h plus 600 m ascent/hour)
// and rounds the result into the bands used by the curated table.
func EstimateDuration(distanceKm, elevationGainM float64) string {
	if distanceKm <= 0 {
		return "-"
	}
	hours := distanceKm/5.0 + elevationGainM/600.0
	switch {
	case hours <= 1.5:
		return "1-2 hours"
	case hours <= 3.5:
		return "2-4 hours"
	case hours <= 6.0:
		return "4-6 hours"
	case hours <= 10.0:
		return "6-10 hours"
	}
	days := int(math.Round(hours / 8.0))
	if days < 1 {
		days = 1
	}
	return fmt.Sprintf("%d-%d days", days, days+1)
}

func parseKm(text string) float64 {
	t := strings.TrimSpace(strings.ReplaceAll(strings.ToLower(text), "km", ""))
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseM(text string) float64 {
	t := strings.TrimSpace(strings.ReplaceAll(strings.ToLower(text), "m", ""))
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0
	}
	return v
}

func osmSearchURL(trail string) string {
	return "https://www.openstreetmap.org/search?query=" + strings.ReplaceAll(trail, " ", "+")
}

// allTrailsURL prefers verified slugs, then a live search for the trail's
// AllTrails page, then a generic search link. The result rides along in the
// cached lookup, so the search runs at most once per trail per TTL.
func (s *Service) allTrailsURL(ctx context.Context, trail string) string {
	if url, ok := knownAllTrailsSlugs[trail]; ok {
		return url
	}
	if s.search != nil {
		links, err := s.search.SearchLinks(ctx, trail+" trek alltrails")
		if err == nil {
			for _, l := range links {
				if strings.Contains(strings.ToLower(l.URL), "alltrails.com/trail") {
					return l.URL
				}
			}
		}
	}
	return "https://www.alltrails.com/search?q=" + strings.ReplaceAll(trail, " ", "+")
}
