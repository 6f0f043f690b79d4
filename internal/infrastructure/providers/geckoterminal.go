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

const geckoTerminalName = "geckoterminal"

// GeckoTerminalClient queries the GeckoTerminal v2 API. GeckoTerminal
// reports most numerics as strings and nests token metadata under JSON:API
// attributes, so normalization is mostly string parsing.
type GeckoTerminalClient struct {
	baseURL string
	http    *breakerClient
	cache   repository.CacheStore
	limiter *ratelimit.FixedWindow
	ttl     time.Duration
	log     *slog.Logger
}

var _ useCases.SourceClient = (*GeckoTerminalClient)(nil)

func NewGeckoTerminalClient(baseURL string, cache repository.CacheStore, limiter *ratelimit.FixedWindow, ttl, httpTimeout time.Duration, log *slog.Logger) *GeckoTerminalClient {
	return &GeckoTerminalClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newBreakerClient(geckoTerminalName, httpTimeout, log),
		cache:   cache,
		limiter: limiter,
		ttl:     ttl,
		log:     log,
	}
}

func (c *GeckoTerminalClient) Name() string { return geckoTerminalName }

func (c *GeckoTerminalClient) Search(ctx context.Context, query string) ([]model.Token, error) {
	key := "src:" + geckoTerminalName + ":search:" + strings.ToLower(query)
	var cached []model.Token
	if c.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	if !c.limiter.Admit(geckoTerminalName) {
		return nil, fmt.Errorf("%s search: %w", geckoTerminalName, ErrRateLimited)
	}

	endpoint := c.baseURL + "/api/v2/search/pools?query=" + url.QueryEscape(query)
	body, err := c.http.getJSON(ctx, endpoint)
	if err != nil {
		if IsUpstreamThrottled(err) {
			c.limiter.AwaitSlot(ctx, geckoTerminalName, 1)
		}
		return nil, err
	}

	var res geckoPoolsResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("%s: decoding response: %w", geckoTerminalName, err)
	}

	tokens := make([]model.Token, 0, len(res.Data))
	for _, d := range res.Data {
		tokens = append(tokens, d.normalize())
	}

	c.cache.Set(ctx, key, tokens, c.ttl)
	return tokens, nil
}

// GetByAddress is not served by GeckoTerminal's search surface without a
// per-network path, so this source contributes nothing to address lookups.
func (c *GeckoTerminalClient) GetByAddress(ctx context.Context, address string) (*model.Token, error) {
	return nil, nil
}

type geckoPoolsResponse struct {
	Data []geckoPool `json:"data"`
}

type geckoPool struct {
	Attributes struct {
		Name                  string  `json:"name"`
		Address               string  `json:"address"`
		BaseTokenPriceUsd     string  `json:"base_token_price_usd"`
		MarketCapUsd          *string `json:"market_cap_usd"`
		ReserveInUsd          string  `json:"reserve_in_usd"`
		VolumeUsd             struct {
			H24 string `json:"h24"`
		} `json:"volume_usd"`
		PriceChangePercentage struct {
			H1  *string `json:"h1"`
			H24 *string `json:"h24"`
		} `json:"price_change_percentage"`
		Transactions struct {
			H24 struct {
				Buys  int64 `json:"buys"`
				Sells int64 `json:"sells"`
			} `json:"h24"`
		} `json:"transactions"`
	} `json:"attributes"`
	Relationships struct {
		Dex struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		} `json:"dex"`
	} `json:"relationships"`
}

func (p geckoPool) normalize() model.Token {
	a := p.Attributes
	t := model.Token{
		Address:          a.Address,
		Name:             a.Name,
		Ticker:           tickerFromPoolName(a.Name),
		Price:            parseFloat(a.BaseTokenPriceUsd),
		Liquidity:        parseFloat(a.ReserveInUsd),
		Volume:           parseFloat(a.VolumeUsd.H24),
		TransactionCount: a.Transactions.H24.Buys + a.Transactions.H24.Sells,
		PriceChange1h:    parseFloatPtr(a.PriceChangePercentage.H1),
		PriceChange24h:   parseFloatPtr(a.PriceChangePercentage.H24),
		SourceProtocol:   p.Relationships.Dex.Data.ID,
		LastUpdated:      time.Now().UTC(),
	}
	if a.MarketCapUsd != nil {
		t.MarketCap = parseFloat(*a.MarketCapUsd)
	}
	if t.SourceProtocol == "" {
		t.SourceProtocol = geckoTerminalName
	}
	return t
}

// tickerFromPoolName extracts the base symbol from a pool name like
// "WIF / SOL".
func tickerFromPoolName(name string) string {
	if base, _, ok := strings.Cut(name, "/"); ok {
		return strings.TrimSpace(base)
	}
	return strings.TrimSpace(name)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseFloatPtr(s *string) *float64 {
	if s == nil {
		return nil
	}
	v, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return nil
	}
	return &v
}
