// Package cache provides the in-process response cache used across the
// question pipeline. Entries are partitioned by concern (questions, weather,
// trail info), expire on a per-entry TTL and are evicted LRU-first once a
// partition reaches its capacity.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Partition names. Each partition carries its own default TTL and eviction
// state.
const (
	QuestionCache  = "questions"
	WeatherCache   = "weather"
	TrailInfoCache = "trail_info"
)

type entry struct {
	key       string
	value     interface{}
	expiresAt time.Time
}

// expired reports whether e is no longer visible. An entry is live only
// while expiresAt is strictly in the future.
func (e *entry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

type partition struct {
	mu      sync.Mutex
	max     int
	order   *list.List // front = oldest, back = most recently used
	entries map[string]*list.Element
	clock   func() time.Time
}

func newPartition(max int, clock func() time.Time) *partition {
	return &partition{
		max:     max,
		order:   list.New(),
		entries: make(map[string]*list.Element),
		clock:   clock,
	}
}

// prune drops every expired entry so dead entries never count against the
// LRU capacity. Caller holds p.mu.
func (p *partition) prune(now time.Time) {
	for el := p.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry)
		if e.expired(now) {
			p.order.Remove(el)
			delete(p.entries, e.key)
		}
		el = next
	}
}

func (p *partition) get(key string) (interface{}, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.prune(p.clock())

	el, ok := p.entries[key]
	if !ok {
		return nil, false
	}
	p.order.MoveToBack(el)
	return el.Value.(*entry).value, true
}

func (p *partition) set(key string, value interface{}, ttl time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock()
	p.prune(now)

	if el, ok := p.entries[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = now.Add(ttl)
		p.order.MoveToBack(el)
		return
	}

	for p.max > 0 && len(p.entries) >= p.max {
		oldest := p.order.Front()
		if oldest == nil {
			break
		}
		p.order.Remove(oldest)
		delete(p.entries, oldest.Value.(*entry).key)
	}

	el := p.order.PushBack(&entry{key: key, value: value, expiresAt: now.Add(ttl)})
	p.entries[key] = el
}

func (p *partition) invalidate(match func(key string) bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for el := p.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry)
		if match == nil || match(e.key) {
			p.order.Remove(el)
			delete(p.entries, e.key)
			removed++
		}
		el = next
	}
	return removed
}

func (p *partition) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prune(p.clock())
	return len(p.entries)
}

// Options configure a Manager. The TTLs are the per-partition defaults
// handed out by TTL; a zero TTL means "use the built-in default", while a
// negative TTL is kept as-is and makes every default-TTL entry an immediate
// miss. MaxEntries applies to each partition independently.
type Options struct {
	MaxEntries    int
	SchemaVersion string
	QuestionTTL   time.Duration
	WeatherTTL    time.Duration
	TrailInfoTTL  time.Duration

	// Clock overrides time.Now, used by tests to drive expiry.
	Clock func() time.Time
}

// Manager is the partitioned TTL+LRU cache. Safe for concurrent use.
type Manager struct {
	mu            sync.Mutex
	partitions    map[string]*partition
	opts          Options
	schemaVersion string
}

func NewManager(opts Options) *Manager {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 100
	}
	if opts.SchemaVersion == "" {
		opts.SchemaVersion = "1"
	}
	if opts.QuestionTTL == 0 {
		opts.QuestionTTL = 5 * time.Minute
	}
	if opts.WeatherTTL == 0 {
		opts.WeatherTTL = time.Hour
	}
	if opts.TrailInfoTTL == 0 {
		opts.TrailInfoTTL = 24 * time.Hour
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Manager{
		partitions:    make(map[string]*partition),
		opts:          opts,
		schemaVersion: opts.SchemaVersion,
	}
}

// TTL returns the configured default TTL for a partition, for callers that
// have no reason to override it per entry.
func (m *Manager) TTL(name string) time.Duration {
	switch name {
	case WeatherCache:
		return m.opts.WeatherTTL
	case TrailInfoCache:
		return m.opts.TrailInfoTTL
	default:
		return m.opts.QuestionTTL
	}
}

// partition lazily creates the named partition on first use.
func (m *Manager) partition(name string) *partition {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.partitions[name]
	if !ok {
		p = newPartition(m.opts.MaxEntries, m.opts.Clock)
		m.partitions[name] = p
	}
	return p
}

func (m *Manager) Get(partition, key string) (interface{}, bool) {
	return m.partition(partition).get(key)
}

// Set stores value under key with the given TTL. A zero or negative TTL
// produces an entry that is already expired, so the next Get misses.
func (m *Manager) Set(partition, key string, value interface{}, ttl time.Duration) {
	m.partition(partition).set(key, value, ttl)
}

// Invalidate removes entries whose key matches pattern. The pattern is tried
// as a regular expression first; if it does not compile it falls back to a
// substring match. A nil-equivalent empty pattern clears the partition.
// Returns the number of entries removed.
func (m *Manager) Invalidate(partition, pattern string) int {
	p := m.partition(partition)
	if pattern == "" {
		return p.invalidate(nil)
	}
	if re, err := regexp.Compile(pattern); err == nil {
		return p.invalidate(func(key string) bool { return re.MatchString(key) })
	}
	return p.invalidate(func(key string) bool { return strings.Contains(key, pattern) })
}

// Clear empties the named partition.
func (m *Manager) Clear(partition string) {
	m.partition(partition).invalidate(nil)
}

// Len reports the number of live (unexpired) entries in a partition.
func (m *Manager) Len(partition string) int {
	return m.partition(partition).len()
}

// QuestionKey derives the cache key for a question. Keys are versioned so a
// schema bump invalidates everything cached under the old shape, and
// normalized so trivial whitespace/casing differences hit the same entry.
func (m *Manager) QuestionKey(question string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	sum := sha256.Sum256([]byte("v" + m.schemaVersion + "|" + normalized))
	return hex.EncodeToString(sum[:])
}
