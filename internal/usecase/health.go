package usecase

import (
	"sync"
	"time"

	"eth_history_api/internal/domain"
)

// SourceResult is the outcome of one upstream call made while filling a
// collection. Err is nil on success; a negative Items means the source has
// no meaningful count.
type SourceResult struct {
	Source string
	Items  int
	Err    error
}

// Enrichment is the tagged result of the best-effort timeline sources: the
// events that could be fetched plus one result per source, failed ones
// included.
type Enrichment struct {
	Events  []domain.TimelineEvent
	Results []SourceResult
}

func (e Enrichment) Degraded() []SourceResult {
	var out []SourceResult
	for _, r := range e.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

type sourceHealth struct {
	lastFetch time.Time
	lastErr   error
	items     int
	fetched   bool
}

// healthRegistry keeps the last known outcome per source, in a fixed order.
type healthRegistry struct {
	mu      sync.RWMutex
	order   []string
	sources map[string]*sourceHealth
	now     func() time.Time
}

func newHealthRegistry(names ...string) *healthRegistry {
	h := &healthRegistry{
		order:   names,
		sources: make(map[string]*sourceHealth, len(names)),
		now:     time.Now,
	}
	for _, n := range names {
		h.sources[n] = &sourceHealth{}
	}
	return h
}

func (h *healthRegistry) record(r SourceResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sources[r.Source]
	if !ok {
		s = &sourceHealth{}
		h.sources[r.Source] = s
		h.order = append(h.order, r.Source)
	}
	s.lastErr = r.Err
	if r.Err == nil {
		s.lastFetch = h.now()
		s.items = r.Items
		s.fetched = true
	}
}

// snapshot never blocks on upstream work; counts overrides the item count
// for sources whose data is held in a cache.
func (h *healthRegistry) snapshot(counts map[string]int) []domain.SourceStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]domain.SourceStatus, 0, len(h.order))
	for _, name := range h.order {
		s := h.sources[name]
		st := domain.SourceStatus{Name: name, Healthy: s.lastErr == nil}
		if s.fetched {
			t := s.lastFetch
			st.LastFetch = &t
			if s.items >= 0 {
				n := s.items
				st.ItemCount = &n
			}
		}
		if n, ok := counts[name]; ok {
			st.ItemCount = &n
		}
		if s.lastErr != nil {
			st.Error = s.lastErr.Error()
		}
		out = append(out, st)
	}
	return out
}
