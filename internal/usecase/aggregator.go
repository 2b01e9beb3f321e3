package usecase

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"eth_history_api/internal/domain"
	apierr "eth_history_api/internal/errors"
	"eth_history_api/internal/port"
	"eth_history_api/pkg/metrics"
)

const (
	CollectionTimeline = "timeline"
	CollectionEips     = "eips"

	DefaultFetchTimeout = 10 * time.Second
	DefaultTopicLimit   = 30
)

type AggregatorConfig struct {
	// FetchTimeout bounds one shared collection fill, whoever started it.
	FetchTimeout time.Duration
	// ResearchTopicLimit caps the ethresear.ch topics considered per fill.
	ResearchTopicLimit int
	// ResearchCategories are ethresear.ch category slugs listed alongside the
	// top topics.
	ResearchCategories []string
}

// Aggregator serves the timeline and EIP collections cache-aside. Concurrent
// misses on one collection share a single upstream fill.
type Aggregator struct {
	eipSource      port.EipSource
	researchSource port.ResearchSource
	blockSource    port.BlockSource

	timeline port.Cache[string, []domain.TimelineEvent]
	eips     port.Cache[string, []domain.Eip]

	flight singleflight.Group
	health *healthRegistry
	cfg    AggregatorConfig
}

func NewAggregator(
	eipSource port.EipSource,
	researchSource port.ResearchSource,
	blockSource port.BlockSource,
	timelineCache port.Cache[string, []domain.TimelineEvent],
	eipCache port.Cache[string, []domain.Eip],
	cfg AggregatorConfig,
) *Aggregator {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.ResearchTopicLimit <= 0 {
		cfg.ResearchTopicLimit = DefaultTopicLimit
	}
	return &Aggregator{
		eipSource:      eipSource,
		researchSource: researchSource,
		blockSource:    blockSource,
		timeline:       timelineCache,
		eips:           eipCache,
		health: newHealthRegistry(
			domain.SourceGitHubEips,
			domain.SourceGitHubEvents,
			domain.SourceEthResearch,
			domain.SourceEthereumRPC,
		),
		cfg: cfg,
	}
}

// load runs fill at most once per key at a time. The fill is detached from
// the caller's cancellation and bounded by FetchTimeout instead, so one
// caller giving up does not fail the others waiting on it.
func load[T any](ctx context.Context, a *Aggregator, key string, fill func(context.Context) (T, error)) (T, error) {
	ch := a.flight.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.FetchTimeout)
		defer cancel()
		return fill(fctx)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.SharedFetches.WithLabelValues(key).Inc()
		}
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// GetTimeline returns the core events merged with whatever the enrichment
// sources could provide, ordered by date.
func (a *Aggregator) GetTimeline(ctx context.Context) ([]domain.TimelineEvent, error) {
	if v, ok := a.timeline.Get(CollectionTimeline); ok {
		metrics.CacheLookups.WithLabelValues(CollectionTimeline, "hit").Inc()
		return cloneEvents(v), nil
	}
	metrics.CacheLookups.WithLabelValues(CollectionTimeline, "miss").Inc()

	events, err := load(ctx, a, CollectionTimeline, func(fctx context.Context) ([]domain.TimelineEvent, error) {
		// a fill that finished between our miss and joining the flight
		if v, ok := a.timeline.Get(CollectionTimeline); ok {
			return v, nil
		}

		enr := a.enrich(fctx)
		for _, r := range enr.Results {
			a.health.record(r)
		}
		for _, d := range enr.Degraded() {
			zap.L().Warn("timeline source degraded", zap.String("source", d.Source), zap.Error(d.Err))
		}

		merged := MergeTimeline(domain.CoreEvents(), enr.Events)
		a.timeline.Set(CollectionTimeline, merged)
		zap.L().Info("timeline assembled",
			zap.Int("events", len(merged)),
			zap.Int("degraded_sources", len(enr.Degraded())))
		return merged, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneEvents(events), nil
}

// enrich queries every optional timeline source concurrently. Failures are
// reported in the result, never returned.
func (a *Aggregator) enrich(ctx context.Context) Enrichment {
	var (
		eipEvents      []domain.TimelineEvent
		researchEvents []domain.TimelineEvent
		results        = make([]SourceResult, 2)
	)

	var g errgroup.Group
	g.Go(func() error {
		events, err := a.eipSource.FetchEipEvents(ctx)
		results[0] = SourceResult{Source: domain.SourceGitHubEvents, Items: len(events), Err: err}
		if err == nil {
			eipEvents = events
		}
		return nil
	})
	g.Go(func() error {
		topics, err := a.researchTopics(ctx)
		if err != nil {
			results[1] = SourceResult{Source: domain.SourceEthResearch, Err: err}
			return nil
		}
		researchEvents = a.researchSource.TopicsToEvents(topics)
		results[1] = SourceResult{Source: domain.SourceEthResearch, Items: len(researchEvents)}
		return nil
	})
	_ = g.Wait()

	return Enrichment{
		Events:  slices.Concat(eipEvents, researchEvents),
		Results: results,
	}
}

// researchTopics lists the top topics and every configured category
// concurrently and merges them by topic id, top topics first. It fails only
// when every listing fails.
func (a *Aggregator) researchTopics(ctx context.Context) ([]domain.ResearchTopic, error) {
	lists := make([][]domain.ResearchTopic, 1+len(a.cfg.ResearchCategories))
	errs := make([]error, len(lists))

	var g errgroup.Group
	g.Go(func() error {
		lists[0], errs[0] = a.researchSource.FetchTopTopics(ctx, a.cfg.ResearchTopicLimit)
		return nil
	})
	for i, slug := range a.cfg.ResearchCategories {
		g.Go(func() error {
			lists[i+1], errs[i+1] = a.researchSource.FetchCategory(ctx, slug)
			return nil
		})
	}
	_ = g.Wait()

	var (
		out      []domain.ResearchTopic
		firstErr error
		failed   int
	)
	seen := make(map[uint32]struct{})
	for i, list := range lists {
		if errs[i] != nil {
			failed++
			if firstErr == nil {
				firstErr = errs[i]
			}
			if i > 0 {
				zap.L().Warn("research category unavailable",
					zap.String("category", a.cfg.ResearchCategories[i-1]), zap.Error(errs[i]))
			}
			continue
		}
		for _, t := range list {
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
			out = append(out, t)
		}
	}
	if failed == len(lists) {
		return nil, firstErr
	}
	return out, nil
}

// MergeTimeline concatenates the event sets, keeps the first event seen for
// each id and stable-sorts by ISO date.
func MergeTimeline(sets ...[]domain.TimelineEvent) []domain.TimelineEvent {
	seen := make(map[string]struct{})
	var out []domain.TimelineEvent
	for _, set := range sets {
		for _, e := range set {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.TimelineEvent) int {
		return strings.Compare(a.Date, b.Date)
	})
	return out
}

func (a *Aggregator) GetEvent(ctx context.Context, id string) (domain.TimelineEvent, bool, error) {
	events, err := a.GetTimeline(ctx)
	if err != nil {
		return domain.TimelineEvent{}, false, err
	}
	for _, e := range events {
		if e.ID == id {
			return e, true, nil
		}
	}
	return domain.TimelineEvent{}, false, nil
}

// GetEips has no fallback: an upstream failure is returned as is and leaves
// the cache untouched.
func (a *Aggregator) GetEips(ctx context.Context) ([]domain.Eip, error) {
	if v, ok := a.eips.Get(CollectionEips); ok {
		metrics.CacheLookups.WithLabelValues(CollectionEips, "hit").Inc()
		return cloneEips(v), nil
	}
	metrics.CacheLookups.WithLabelValues(CollectionEips, "miss").Inc()

	eips, err := load(ctx, a, CollectionEips, func(fctx context.Context) ([]domain.Eip, error) {
		if v, ok := a.eips.Get(CollectionEips); ok {
			return v, nil
		}

		fetched, err := a.eipSource.FetchEips(fctx)
		if err != nil {
			a.health.record(SourceResult{Source: domain.SourceGitHubEips, Err: err})
			zap.L().Error("fetching EIPs failed", zap.Error(err))
			return nil, err
		}
		eips := normalizeEips(fetched)
		a.health.record(SourceResult{Source: domain.SourceGitHubEips, Items: len(eips)})

		// an empty listing is served but not kept
		if len(eips) > 0 {
			a.eips.Set(CollectionEips, eips)
		}
		return eips, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneEips(eips), nil
}

func cloneEvents(in []domain.TimelineEvent) []domain.TimelineEvent {
	out := make([]domain.TimelineEvent, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}

func cloneEips(in []domain.Eip) []domain.Eip {
	out := make([]domain.Eip, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}

func normalizeEips(in []domain.Eip) []domain.Eip {
	seen := make(map[uint32]struct{}, len(in))
	out := make([]domain.Eip, 0, len(in))
	for _, e := range in {
		if e.Number == 0 {
			continue
		}
		if _, dup := seen[e.Number]; dup {
			continue
		}
		seen[e.Number] = struct{}{}
		out = append(out, e)
	}
	slices.SortStableFunc(out, func(a, b domain.Eip) int {
		return cmp.Compare(a.Number, b.Number)
	})
	return out
}

func (a *Aggregator) GetEip(ctx context.Context, number uint32) (domain.Eip, bool, error) {
	eips, err := a.GetEips(ctx)
	if err != nil {
		return domain.Eip{}, false, err
	}
	i, found := slices.BinarySearchFunc(eips, number, func(e domain.Eip, n uint32) int {
		return cmp.Compare(e.Number, n)
	})
	if !found {
		return domain.Eip{}, false, nil
	}
	return eips[i], true, nil
}

// GetCurrentBlock always goes to the node.
func (a *Aggregator) GetCurrentBlock(ctx context.Context) (domain.BlockInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
	defer cancel()

	block, err := a.blockSource.FetchCurrentBlock(ctx)
	if err != nil {
		a.health.record(SourceResult{Source: domain.SourceEthereumRPC, Err: err})
		return domain.BlockInfo{}, err
	}
	a.health.record(SourceResult{Source: domain.SourceEthereumRPC, Items: -1})
	return block, nil
}

// GetStatus reports per-source health from local state only.
func (a *Aggregator) GetStatus() []domain.SourceStatus {
	counts := map[string]int{}
	if v, ok := a.eips.Get(CollectionEips); ok {
		counts[domain.SourceGitHubEips] = len(v)
	}
	return a.health.snapshot(counts)
}

// Invalidate drops a collection so the next read refills it.
func (a *Aggregator) Invalidate(collection string) error {
	switch collection {
	case CollectionTimeline:
		a.timeline.Invalidate(CollectionTimeline)
	case CollectionEips:
		a.eips.Invalidate(CollectionEips)
	default:
		return apierr.ErrUnknownCache
	}
	zap.L().Info("collection invalidated", zap.String("collection", collection))
	return nil
}
