// Package extract turns a free-text trekking question into structured
// entities: the canonical trail, the time period asked about, the question's
// intent and the ordered set of sources worth consulting for it.
package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"trek-assistant-be/pkg/connector"
)

// Entities is the immutable extraction result for one question.
type Entities struct {
	Trail        string   `json:"trail,omitempty"`
	MatchedAlias string   `json:"matched_alias,omitempty"`
	TimePeriod   string   `json:"time_period,omitempty"`
	Months       []string `json:"months"`
	Intent       string   `json:"intent"`
	Sources      []connector.Source `json:"sources"`
}

var defaultTrails = []string{
	"Triund",
	"Kedarkantha",
	"Valley of Flowers",
	"Kalsubai",
	"Hampta Pass",
}

var trailVariations = map[string][]string{
	"Kedarkantha":       {"kedarkantha", "kedarkanta", "kedar kantha"},
	"Valley of Flowers": {"valley of flowers", "vof", "pushp ghati"},
	"Triund":            {"triund", "truind", "mcleod ganj trek"},
	"Kalsubai":          {"kalsubai", "kalsu bai", "highest peak maharashtra"},
	"Hampta Pass":       {"hampta", "hamta pass", "manali trek"},
}

var monthNames = map[string]string{
	"jan": "January", "january": "January",
	"feb": "February", "february": "February",
	"mar": "March", "march": "March",
	"apr": "April", "april": "April",
	"may": "May",
	"jun": "June", "june": "June",
	"jul": "July", "july": "July",
	"aug": "August", "august": "August",
	"sep": "September", "sept": "September", "september": "September",
	"oct": "October", "october": "October",
	"nov": "November", "november": "November",
	"dec": "December", "december": "December",
}

var seasonMonths = map[string][]string{
	"winter":  {"december", "january", "february"},
	"summer":  {"april", "may", "june"},
	"monsoon": {"july", "august", "september"},
	"spring":  {"march", "april"},
	"autumn":  {"october", "november"},
}

// intentOrder is a priority list: the first category with a keyword hit wins.
var intentOrder = []struct {
	intent   string
	keywords []string
}{
	{"safety", []string{"safe", "safety", "risk", "hazard", "avalanche", "snow", "conditions"}},
	{"permits", []string{"permit", "permits", "permission", "entry pass"}},
	{"weather", []string{"weather", "forecast", "rain", "snowfall", "temperature", "wind"}},
	{"accommodation", []string{"stay", "accommodation", "hotel", "guesthouse", "camp", "camping"}},
	{"difficulty", []string{"difficulty", "hard", "easy", "moderate", "elevation", "gain", "distance"}},
}

// guessDenylist holds common question words that a capitalized-run heuristic
// would otherwise mistake for a trail name.
var guessDenylist = map[string]bool{
	"Is": true, "What": true, "Best": true, "Tell": true, "About": true,
	"Can": true, "You": true, "Safe": true, "Monsoon": true,
}

var (
	capitalizedTokenRe = regexp.MustCompile(`^[A-Z][a-zA-Z\-]*$`)
	trekPhraseRe       = regexp.MustCompile(`([a-z][a-z\s\-]{2,})\s+(?:trek|trail)`)
	wordTokenRe        = regexp.MustCompile(`[a-zA-Z]+`)
)

// Extractor resolves trail aliases and classifies questions. Construct once
// and share; it is read-only after NewExtractor.
type Extractor struct {
	aliasToCanonical map[string]string
	aliases          []string
	aliasPatterns    []*regexp.Regexp // parallel to aliases
	monthPattern     *regexp.Regexp
	seasonPattern    *regexp.Regexp
}

// NewExtractor seeds the alias table with the known spelling variations plus
// every configured indexed trail (at minimum its own lowercased name).
func NewExtractor(indexedTrails []string) *Extractor {
	aliasToCanonical := make(map[string]string)
	for canonical, variations := range trailVariations {
		for _, v := range variations {
			aliasToCanonical[strings.ToLower(v)] = canonical
		}
	}
	if len(indexedTrails) == 0 {
		indexedTrails = defaultTrails
	}
	for _, t := range indexedTrails {
		key := strings.ToLower(strings.TrimSpace(t))
		if key == "" {
			continue
		}
		if _, ok := aliasToCanonical[key]; !ok {
			aliasToCanonical[key] = strings.TrimSpace(t)
		}
	}

	aliases := make([]string, 0, len(aliasToCanonical))
	for a := range aliasToCanonical {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)

	aliasPatterns := make([]*regexp.Regexp, len(aliases))
	for i, a := range aliases {
		aliasPatterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(a) + `\b`)
	}

	return &Extractor{
		aliasToCanonical: aliasToCanonical,
		aliases:          aliases,
		aliasPatterns:    aliasPatterns,
		monthPattern:     alternationPattern(keysOf(monthNames)),
		seasonPattern:    alternationPattern(keysOf(seasonMonths)),
	}
}

func keysOf[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// alternationPattern builds a case-insensitive word-boundary alternation,
// longest token first so "september" wins over "sep".
func alternationPattern(tokens []string) *regexp.Regexp {
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})
	escaped := make([]string, len(tokens))
	for i, t := range tokens {
		escaped[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
}

// Extract never fails; the worst case is an all-default Entities value.
func (e *Extractor) Extract(question string) Entities {
	trail, matchedAlias := e.MatchTrail(question)
	if trail == "" {
		if guessed := guessTrailFromText(question); guessed != "" {
			trail = guessed
			matchedAlias = strings.ToLower(guessed)
		}
	}

	timePeriod, months := e.extractTimePeriod(question)
	intent := extractIntent(question)

	entities := Entities{
		Trail:        trail,
		MatchedAlias: matchedAlias,
		TimePeriod:   timePeriod,
		Months:       months,
		Intent:       intent,
	}
	entities.Sources = DetermineSources(entities)
	return entities
}

// MatchTrail resolves the canonical trail name even with minor typos.
// Direct word-boundary alias match first, then a token-level fuzzy pass.
func (e *Extractor) MatchTrail(text string) (canonical, alias string) {
	lower := strings.ToLower(text)

	for i, a := range e.aliases {
		if e.aliasPatterns[i].MatchString(lower) {
			return e.aliasToCanonical[a], a
		}
	}

	for _, token := range wordTokenRe.FindAllString(lower, -1) {
		if best := e.closestAlias(token); best != "" {
			if canonical, ok := e.aliasToCanonical[best]; ok {
				return canonical, best
			}
			return titleCase(best), best
		}
	}
	return "", ""
}

// closestAlias returns the alias most similar to token, or "" when no alias
// reaches the 0.85 similarity cutoff.
func (e *Extractor) closestAlias(token string) string {
	const cutoff = 0.85
	best, bestScore := "", cutoff
	for _, a := range e.aliases {
		if s := similarity(token, a); s >= bestScore {
			best, bestScore = a, s
		}
	}
	return best
}

// similarity is a normalized edit-distance score in [0,1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// guessTrailFromText is the last-resort heuristic: the longest run of
// capitalized words not made of common question words, else the phrase
// immediately preceding "trek"/"trail".
func guessTrailFromText(text string) string {
	var spans []string
	var current []string
	for _, tok := range strings.Fields(text) {
		if capitalizedTokenRe.MatchString(tok) {
			current = append(current, tok)
			continue
		}
		if len(current) > 0 {
			spans = append(spans, strings.Join(current, " "))
			current = nil
		}
	}
	if len(current) > 0 {
		spans = append(spans, strings.Join(current, " "))
	}

	var best string
	for _, span := range spans {
		clean := true
		for _, w := range strings.Fields(span) {
			if guessDenylist[w] {
				clean = false
				break
			}
		}
		if clean && len(span) > len(best) {
			best = span
		}
	}
	if best != "" {
		return best
	}

	lower := strings.ToLower(text)
	m := trekPhraseRe.FindStringSubmatch(lower)
	if m == nil {
		return ""
	}
	guess := strings.TrimSpace(m[1])
	for _, lead := range []string{"can you tell me about ", "tell me about ", "about "} {
		if strings.HasPrefix(guess, lead) {
			guess = strings.TrimPrefix(guess, lead)
			break
		}
	}
	return titleCase(guess)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// extractTimePeriod finds explicit months and a season mention. A season
// expands to its constituent months; the rendered period combines both when
// present, e.g. "Winter (December, January, February)".
func (e *Extractor) extractTimePeriod(text string) (string, []string) {
	var months []string
	seen := make(map[string]bool)
	for _, m := range e.monthPattern.FindAllString(text, -1) {
		norm := monthNames[strings.ToLower(m)]
		if norm != "" && !seen[norm] {
			months = append(months, norm)
			seen[norm] = true
		}
	}

	var season string
	if m := e.seasonPattern.FindString(text); m != "" {
		key := strings.ToLower(m)
		season = titleCase(key)
		for _, sm := range seasonMonths[key] {
			norm := monthNames[sm]
			if norm != "" && !seen[norm] {
				months = append(months, norm)
				seen[norm] = true
			}
		}
	}

	switch {
	case len(months) > 0 && season != "":
		return fmt.Sprintf("%s (%s)", season, strings.Join(months, ", ")), months
	case len(months) > 0:
		return strings.Join(months, ", "), months
	case season != "":
		return season, months
	}
	return "", months
}

func extractIntent(text string) string {
	lower := strings.ToLower(text)
	for _, cat := range intentOrder {
		for _, k := range cat.keywords {
			if strings.Contains(lower, k) {
				return cat.intent
			}
		}
	}
	return "general"
}

// DetermineSources applies the fixed source-selection policy:
//   - wikivoyage: a trail is identified, or intent is general/permits/
//     accommodation/difficulty
//   - mountain_forecast: intent is weather/safety, or a trail plus a time
//     period was extracted
//   - osm_wiki: intent is difficulty/safety/general and a trail is present
func DetermineSources(entities Entities) []connector.Source {
	trailPresent := entities.Trail != ""

	var sources []connector.Source

	switch entities.Intent {
	case "general", "permits", "accommodation", "difficulty":
		sources = append(sources, connector.SourceWikivoyage)
	default:
		if trailPresent {
			sources = append(sources, connector.SourceWikivoyage)
		}
	}

	if entities.Intent == "weather" || entities.Intent == "safety" ||
		(trailPresent && entities.TimePeriod != "") {
		sources = append(sources, connector.SourceMountainForecast)
	}

	if trailPresent {
		switch entities.Intent {
		case "difficulty", "safety", "general":
			sources = append(sources, connector.SourceOSMWiki)
		}
	}

	seen := make(map[connector.Source]bool, len(sources))
	ordered := sources[:0]
	for _, s := range sources {
		if !seen[s] {
			ordered = append(ordered, s)
			seen[s] = true
		}
	}
	return ordered
}
