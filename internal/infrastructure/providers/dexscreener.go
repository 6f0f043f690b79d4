package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/model"
	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/repository"
	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/useCases"
	"github.com/raunaksarawgi/dexflow-realtime/internal/infrastructure/ratelimit"
)

const dexScreenerName = "dexscreener"

// DexScreenerClient queries the DexScreener public API and normalizes its
// pair records into the common Token shape.
type DexScreenerClient struct {
	baseURL string
	http    *breakerClient
	cache   repository.CacheStore
	limiter *ratelimit.FixedWindow
	ttl     time.Duration
	log     *slog.Logger
}

var _ useCases.SourceClient = (*DexScreenerClient)(nil)

func NewDexScreenerClient(baseURL string, cache repository.CacheStore, limiter *ratelimit.FixedWindow, ttl, httpTimeout time.Duration, log *slog.Logger) *DexScreenerClient {
	return &DexScreenerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newBreakerClient(dexScreenerName, httpTimeout, log),
		cache:   cache,
		limiter: limiter,
		ttl:     ttl,
		log:     log,
	}
}

func (c *DexScreenerClient) Name() string { return dexScreenerName }

func (c *DexScreenerClient) Search(ctx context.Context, query string) ([]model.Token, error) {
	key := "src:" + dexScreenerName + ":search:" + strings.ToLower(query)
	var cached []model.Token
	if c.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	if !c.limiter.Admit(dexScreenerName) {
		return nil, fmt.Errorf("%s search: %w", dexScreenerName, ErrRateLimited)
	}

	endpoint := c.baseURL + "/latest/dex/search?q=" + url.QueryEscape(query)
	tokens, err := c.fetchPairs(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	c.cache.Set(ctx, key, tokens, c.ttl)
	return tokens, nil
}

func (c *DexScreenerClient) GetByAddress(ctx context.Context, address string) (*model.Token, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	key := "src:" + dexScreenerName + ":token:" + address
	var cached model.Token
	if c.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	if !c.limiter.Admit(dexScreenerName) {
		return nil, fmt.Errorf("%s token: %w", dexScreenerName, ErrRateLimited)
	}

	endpoint := c.baseURL + "/latest/dex/tokens/" + url.PathEscape(address)
	tokens, err := c.fetchPairs(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	// The tokens endpoint lists every pair for the address; keep the most
	// liquid one as the canonical record.
	best := tokens[0]
	for _, t := range tokens[1:] {
		if t.Liquidity > best.Liquidity {
			best = t
		}
	}
	best.Address = address
	c.cache.Set(ctx, key, best, c.ttl)
	return &best, nil
}

// fetchPairs performs the request and normalizes the response. An upstream
// 429 triggers a one-shot wait for a fresh slot before the error propagates,
// so the next cycle is not immediately rejected again.
func (c *DexScreenerClient) fetchPairs(ctx context.Context, endpoint string) ([]model.Token, error) {
	body, err := c.http.getJSON(ctx, endpoint)
	if err != nil {
		if IsUpstreamThrottled(err) {
			c.limiter.AwaitSlot(ctx, dexScreenerName, 1)
		}
		return nil, err
	}

	var res dexSearchResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("%s: decoding response: %w", dexScreenerName, err)
	}

	tokens := make([]model.Token, 0, len(res.Pairs))
	for _, p := range res.Pairs {
		tokens = append(tokens, p.normalize())
	}
	return tokens, nil
}

// Wire types for the DexScreener search/tokens endpoints. Prices arrive as
// strings, change percentages as optional numbers.
type dexSearchResponse struct {
	Pairs []dexPair `json:"pairs"`
}

type dexPair struct {
	DexID     string `json:"dexId"`
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUsd string `json:"priceUsd"`
	Volume   struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	Liquidity *struct {
		Usd float64 `json:"usd"`
	} `json:"liquidity"`
	MarketCap float64 `json:"marketCap"`
	Txns      struct {
		H24 struct {
			Buys  int64 `json:"buys"`
			Sells int64 `json:"sells"`
		} `json:"h24"`
	} `json:"txns"`
	PriceChange struct {
		H1  *float64 `json:"h1"`
		H24 *float64 `json:"h24"`
	} `json:"priceChange"`
}

func (p dexPair) normalize() model.Token {
	price, _ := strconv.ParseFloat(p.PriceUsd, 64)
	t := model.Token{
		Address:          p.BaseToken.Address,
		Name:             p.BaseToken.Name,
		Ticker:           p.BaseToken.Symbol,
		Price:            price,
		MarketCap:        p.MarketCap,
		Volume:           p.Volume.H24,
		TransactionCount: p.Txns.H24.Buys + p.Txns.H24.Sells,
		PriceChange1h:    p.PriceChange.H1,
		PriceChange24h:   p.PriceChange.H24,
		SourceProtocol:   p.DexID,
		LastUpdated:      time.Now().UTC(),
	}
	if t.SourceProtocol == "" {
		t.SourceProtocol = dexScreenerName
	}
	if p.Liquidity != nil {
		t.Liquidity = p.Liquidity.Usd
	}
	return t
}
