package model

import (
	"strings"
	"time"
)

// Token is a normalized market-data record for one tradable asset, merged
// from one or more providers. It is a value type: each fetch cycle produces
// a fresh snapshot, never a record mutated in place.
type Token struct {
	Address          string
	Name             string
	Ticker           string
	Price            float64
	MarketCap        float64
	Volume           float64
	Liquidity        float64
	TransactionCount int64
	PriceChange1h    *float64 // nil means not reported by any source
	PriceChange24h   *float64
	PriceChange7d    *float64
	SourceProtocol   string
	LastUpdated      time.Time
}

// NormalizedAddress returns the canonical identifier used for merging and
// snapshot lookups. Addresses are case-insensitive within a snapshot.
func (t Token) NormalizedAddress() string {
	return strings.ToLower(strings.TrimSpace(t.Address))
}

// PriceChangeFor maps a period name to the matching change field.
// Unknown periods resolve to the 24h field.
func (t Token) PriceChangeFor(period string) *float64 {
	switch period {
	case Period1h:
		return t.PriceChange1h
	case Period7d:
		return t.PriceChange7d
	default:
		return t.PriceChange24h
	}
}

// Periods accepted by list queries.
const (
	Period1h  = "1h"
	Period24h = "24h"
	Period7d  = "7d"
)

// Sort fields accepted by list queries.
const (
	SortByVolume      = "volume"
	SortByPriceChange = "price_change"
	SortByMarketCap   = "market_cap"
	SortByLiquidity   = "liquidity"
)

const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ListQuery carries the filter/sort/paginate parameters for an aggregate
// token listing. The boundary layer validates ranges before building one.
type ListQuery struct {
	Limit     int
	Cursor    string
	SortBy    string
	Order     string
	Period    string
	Search    string
	MinVolume float64
}

// PagedResult is one slice of a ranked token set. NextCursor is the next
// integer offset rendered as a string, empty when the slice reaches the end.
type PagedResult struct {
	Tokens     []Token
	NextCursor string
	Total      int
}
