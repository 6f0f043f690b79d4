package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/model"
	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/repository"
	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/useCases"
)

// CacheKeyPrefix scopes every aggregate-level cache entry; Invalidate
// defaults to this prefix.
const CacheKeyPrefix = "agg:"

const defaultPageLimit = 50

// AggregatorService fans a request out across all configured source
// clients in parallel, tolerates partial failures, merges the survivors
// into one record per address, and fronts the merged result with a
// query-scoped cache. Per-source errors are logged and swallowed;
// unexpected internal errors propagate to the boundary.
type AggregatorService struct {
	sources      []useCases.SourceClient
	cache        repository.CacheStore
	ttl          time.Duration
	defaultQuery string
	log          *slog.Logger
}

var _ useCases.TokenAggregator = (*AggregatorService)(nil)

// NewAggregatorService wires the aggregator. defaultQuery is the "popular"
// fetch used by ListFiltered when no search string is given.
func NewAggregatorService(sources []useCases.SourceClient, cache repository.CacheStore, ttl time.Duration, defaultQuery string, log *slog.Logger) *AggregatorService {
	return &AggregatorService{
		sources:      sources,
		cache:        cache,
		ttl:          ttl,
		defaultQuery: defaultQuery,
		log:          log,
	}
}

// Search returns the merged token set for query, ranked by volume. The
// result is only cached when at least one source answered, so a transient
// total outage never pins an empty listing for a full TTL.
func (s *AggregatorService) Search(ctx context.Context, query string) ([]model.Token, error) {
	key := CacheKeyPrefix + "search:" + strings.ToLower(strings.TrimSpace(query))
	var cached []model.Token
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	results, ok := s.fetchAll(ctx, query)
	merged := MergeTokenLists(results)
	sortTokens(merged, model.SortByVolume, model.OrderDesc, "")

	if ok {
		s.cache.Set(ctx, key, merged, s.ttl)
	}
	return merged, nil
}

// GetByAddress merges whatever each source knows about one address.
// Returns nil, nil when no source has it.
func (s *AggregatorService) GetByAddress(ctx context.Context, address string) (*model.Token, error) {
	addr := strings.ToLower(strings.TrimSpace(address))
	key := CacheKeyPrefix + "token:" + addr
	var cached model.Token
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	found := make([]*model.Token, len(s.sources))
	var wg sync.WaitGroup
	for i, src := range s.sources {
		wg.Add(1)
		go func(i int, src useCases.SourceClient) {
			defer wg.Done()
			t, err := src.GetByAddress(ctx, addr)
			if err != nil {
				s.log.Warn("source lookup failed", "source", src.Name(), "address", addr, "error", err)
				return
			}
			found[i] = t
		}(i, src)
	}
	wg.Wait()

	var merged *model.Token
	for _, t := range found {
		if t == nil {
			continue
		}
		if merged == nil {
			copied := *t
			merged = &copied
			continue
		}
		m := MergeTokens(*merged, *t)
		merged = &m
	}
	if merged == nil {
		return nil, nil
	}

	s.cache.Set(ctx, key, *merged, s.ttl)
	return merged, nil
}

// ListFiltered resolves the base token set, applies the volume and period
// filters, sorts, and slices one page using an integer offset cursor.
func (s *AggregatorService) ListFiltered(ctx context.Context, q model.ListQuery) (*model.PagedResult, error) {
	query := s.defaultQuery
	if strings.TrimSpace(q.Search) != "" {
		query = q.Search
	}
	base, err := s.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	filtered := make([]model.Token, 0, len(base))
	for _, t := range base {
		if t.Volume < q.MinVolume {
			continue
		}
		if q.Period != "" && t.PriceChangeFor(q.Period) == nil {
			continue
		}
		filtered = append(filtered, t)
	}

	sortTokens(filtered, q.SortBy, q.Order, q.Period)

	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	offset := 0
	if q.Cursor != "" {
		if n, err := strconv.Atoi(q.Cursor); err == nil && n > 0 {
			offset = n
		}
	}

	res := &model.PagedResult{Total: len(filtered)}
	if offset >= len(filtered) {
		res.Tokens = []model.Token{}
		return res, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	res.Tokens = filtered[offset:end]
	if end < len(filtered) {
		res.NextCursor = strconv.Itoa(end)
	}
	return res, nil
}

// Invalidate removes cached aggregates matching pattern, defaulting to
// everything under the aggregator's own prefix.
func (s *AggregatorService) Invalidate(ctx context.Context, pattern string) int {
	if strings.TrimSpace(pattern) == "" {
		pattern = CacheKeyPrefix + "*"
	}
	removed := s.cache.DeleteByPattern(ctx, pattern)
	s.log.Info("invalidated aggregate cache", "pattern", pattern, "removed", removed)
	return removed
}

// fetchAll queries every source concurrently and keeps whichever succeed.
// The result slice is indexed by source registration order so the merge
// tie-break stays deterministic. The second return reports whether at least
// one source answered.
func (s *AggregatorService) fetchAll(ctx context.Context, query string) ([][]model.Token, bool) {
	results := make([][]model.Token, len(s.sources))
	succeeded := make([]bool, len(s.sources))
	var wg sync.WaitGroup
	for i, src := range s.sources {
		wg.Add(1)
		go func(i int, src useCases.SourceClient) {
			defer wg.Done()
			tokens, err := src.Search(ctx, query)
			if err != nil {
				s.log.Warn("source search failed", "source", src.Name(), "query", query, "error", err)
				return
			}
			results[i] = tokens
			succeeded[i] = true
		}(i, src)
	}
	wg.Wait()

	for _, ok := range succeeded {
		if ok {
			return results, true
		}
	}
	return results, false
}
