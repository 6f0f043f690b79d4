package service_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/model"
	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/service"
	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/useCases"
	"github.com/raunaksarawgi/dexflow-realtime/internal/infrastructure/cache"
)

// stubSource is a scripted SourceClient for aggregator tests.
type stubSource struct {
	name     string
	tokens   []model.Token
	err      error
	searches atomic.Int64
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Search(ctx context.Context, query string) ([]model.Token, error) {
	s.searches.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.tokens, nil
}

func (s *stubSource) GetByAddress(ctx context.Context, address string) (*model.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, t := range s.tokens {
		if t.NormalizedAddress() == strings.ToLower(address) {
			copied := t
			return &copied, nil
		}
	}
	return nil, nil
}

func newAggregator(t *testing.T, sources ...*stubSource) *service.AggregatorService {
	t.Helper()
	store := cache.NewMemoryStore(nil)
	t.Cleanup(func() { store.Close() })

	clients := make([]useCases.SourceClient, len(sources))
	for i, s := range sources {
		clients[i] = s
	}
	return service.NewAggregatorService(clients, store, 30*time.Second, "SOL", slog.Default())
}

func addrForIndex(i int) string {
	return "0x" + strings.Repeat("0", 2) + string(rune('a'+i))
}

func TestSearchToleratesPartialSourceFailure(t *testing.T) {
	good := &stubSource{name: "good", tokens: []model.Token{tokenFixture("0xaa", 1.0, 100)}}
	bad := &stubSource{name: "bad", err: errors.New("upstream down")}

	agg := newAggregator(t, good, bad)

	tokens, err := agg.Search(context.Background(), "sol")
	require.NoError(t, err, "one failing source must not fail the aggregate")
	require.Len(t, tokens, 1)
	assert.Equal(t, "0xaa", tokens[0].NormalizedAddress())
}

func TestSearchCachesMergedResult(t *testing.T) {
	src := &stubSource{name: "src", tokens: []model.Token{tokenFixture("0xaa", 1.0, 100)}}
	agg := newAggregator(t, src)
	ctx := context.Background()

	_, err := agg.Search(ctx, "sol")
	require.NoError(t, err)
	_, err = agg.Search(ctx, "SOL ")
	require.NoError(t, err)

	assert.Equal(t, int64(1), src.searches.Load(), "second call should be served from cache")
}

func TestSearchDoesNotCacheTotalOutage(t *testing.T) {
	src := &stubSource{name: "src", err: errors.New("upstream down")}
	agg := newAggregator(t, src)
	ctx := context.Background()

	tokens, err := agg.Search(ctx, "sol")
	require.NoError(t, err)
	assert.Empty(t, tokens)

	// The outage clears; the next call must reach the source again instead
	// of serving an empty result pinned in the cache.
	src.err = nil
	src.tokens = []model.Token{tokenFixture("0xaa", 1.0, 100)}

	tokens, err = agg.Search(ctx, "sol")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, int64(2), src.searches.Load())
}

func TestGetByAddressMergesAndMisses(t *testing.T) {
	a := tokenFixture("0xaa", 1.0, 100)
	b := tokenFixture("0xaa", 0, 40)
	b.Liquidity = 999

	src1 := &stubSource{name: "one", tokens: []model.Token{a}}
	src2 := &stubSource{name: "two", tokens: []model.Token{b}}
	agg := newAggregator(t, src1, src2)
	ctx := context.Background()

	got, err := agg.GetByAddress(ctx, "0xAA")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 140.0, got.Volume)
	assert.Equal(t, 999.0, got.Liquidity)
	assert.Equal(t, 1.0, got.Price, "the positive-price source is the base")

	missing, err := agg.GetByAddress(ctx, "0xdoesnotexist")
	require.NoError(t, err)
	assert.Nil(t, missing, "unknown address is an absent result, not an error")
}

func TestListFilteredPaginationIsDeterministic(t *testing.T) {
	tokens := make([]model.Token, 12)
	for i := range tokens {
		tokens[i] = tokenFixture(addrForIndex(i), 1.0, float64(1200-i*100))
	}
	agg := newAggregator(t, &stubSource{name: "src", tokens: tokens})
	ctx := context.Background()

	page1, err := agg.ListFiltered(ctx, model.ListQuery{Limit: 5, SortBy: model.SortByVolume, Order: model.OrderDesc})
	require.NoError(t, err)
	require.Len(t, page1.Tokens, 5)
	assert.Equal(t, "5", page1.NextCursor)
	assert.Equal(t, 12, page1.Total)

	page2, err := agg.ListFiltered(ctx, model.ListQuery{Limit: 5, Cursor: page1.NextCursor, SortBy: model.SortByVolume, Order: model.OrderDesc})
	require.NoError(t, err)
	require.Len(t, page2.Tokens, 5)
	assert.Equal(t, "10", page2.NextCursor)

	// Slices are disjoint and order-consistent over the first 10 ranked tokens.
	seen := make(map[string]bool)
	var prev = page1.Tokens[0].Volume + 1
	for _, tok := range append(append([]model.Token{}, page1.Tokens...), page2.Tokens...) {
		assert.False(t, seen[tok.NormalizedAddress()], "pages must be disjoint")
		seen[tok.NormalizedAddress()] = true
		assert.LessOrEqual(t, tok.Volume, prev, "ranking must be non-increasing")
		prev = tok.Volume
	}

	page3, err := agg.ListFiltered(ctx, model.ListQuery{Limit: 5, Cursor: page2.NextCursor, SortBy: model.SortByVolume, Order: model.OrderDesc})
	require.NoError(t, err)
	assert.Len(t, page3.Tokens, 2)
	assert.Empty(t, page3.NextCursor, "last slice carries no cursor")
}

func TestListFilteredFilters(t *testing.T) {
	withChange := tokenFixture("0xaa", 1.0, 500)
	c := 2.0
	withChange.PriceChange1h = &c
	noChange := tokenFixture("0xbb", 1.0, 400)
	lowVolume := tokenFixture("0xcc", 1.0, 10)

	agg := newAggregator(t, &stubSource{name: "src", tokens: []model.Token{withChange, noChange, lowVolume}})
	ctx := context.Background()

	res, err := agg.ListFiltered(ctx, model.ListQuery{MinVolume: 100, Period: model.Period1h})
	require.NoError(t, err)
	require.Len(t, res.Tokens, 1, "minVolume and period filters apply together")
	assert.Equal(t, "0xaa", res.Tokens[0].NormalizedAddress())
}

func TestListFilteredUnknownSortFallsBackToVolume(t *testing.T) {
	tokens := []model.Token{tokenFixture("0xaa", 1.0, 100), tokenFixture("0xbb", 1.0, 900)}
	agg := newAggregator(t, &stubSource{name: "src", tokens: tokens})

	res, err := agg.ListFiltered(context.Background(), model.ListQuery{SortBy: "bogus", Order: model.OrderDesc})
	require.NoError(t, err)
	require.Len(t, res.Tokens, 2)
	assert.Equal(t, "0xbb", res.Tokens[0].NormalizedAddress())
}

func TestInvalidateDefaultsToAggregatorPrefix(t *testing.T) {
	src := &stubSource{name: "src", tokens: []model.Token{tokenFixture("0xaa", 1.0, 100)}}
	agg := newAggregator(t, src)
	ctx := context.Background()

	_, err := agg.Search(ctx, "sol")
	require.NoError(t, err)

	removed := agg.Invalidate(ctx, "")
	assert.Equal(t, 1, removed)

	_, err = agg.Search(ctx, "sol")
	require.NoError(t, err)
	assert.Equal(t, int64(2), src.searches.Load(), "cache was invalidated, so the source is hit again")
}
