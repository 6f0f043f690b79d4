// Package service implements the domain services: aggregation over the
// source clients and change detection between broadcast cycles. It depends
// only on domain models and interfaces, never on infrastructure packages.
package service

import (
	"sort"

	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/model"
)

// MergeTokens combines two records reporting the same address. Volume is
// summed across sources; liquidity, transaction count and the update
// timestamp take the maximum. Every other field comes from whichever record
// reported a positive price, first argument winning ties, except that a
// missing optional change field is filled from the other record so absence
// still means "not reported by any source".
func MergeTokens(a, b model.Token) model.Token {
	base, other := a, b
	if base.Price <= 0 && other.Price > 0 {
		base, other = other, base
	}

	merged := base
	merged.Volume = a.Volume + b.Volume
	if other.Liquidity > merged.Liquidity {
		merged.Liquidity = other.Liquidity
	}
	if other.TransactionCount > merged.TransactionCount {
		merged.TransactionCount = other.TransactionCount
	}
	if other.LastUpdated.After(merged.LastUpdated) {
		merged.LastUpdated = other.LastUpdated
	}
	if merged.PriceChange1h == nil {
		merged.PriceChange1h = other.PriceChange1h
	}
	if merged.PriceChange24h == nil {
		merged.PriceChange24h = other.PriceChange24h
	}
	if merged.PriceChange7d == nil {
		merged.PriceChange7d = other.PriceChange7d
	}
	return merged
}

// MergeTokenLists folds per-source result lists into one record per
// normalized address. Within a single source's list duplicates are dropped
// (first occurrence wins) before the cross-source merge-sum, so a source
// repeating an address cannot double-count its own volume. Records without
// an address are discarded. Source order is preserved for tie-breaking and
// output ordering.
func MergeTokenLists(lists [][]model.Token) []model.Token {
	merged := make(map[string]model.Token)
	order := make([]string, 0)

	for _, list := range lists {
		for _, t := range dedupWithin(list) {
			addr := t.NormalizedAddress()
			if existing, ok := merged[addr]; ok {
				merged[addr] = MergeTokens(existing, t)
				continue
			}
			merged[addr] = t
			order = append(order, addr)
		}
	}

	out := make([]model.Token, 0, len(merged))
	for _, addr := range order {
		out = append(out, merged[addr])
	}
	return out
}

// dedupWithin keeps the first record per address within one source's list.
func dedupWithin(list []model.Token) []model.Token {
	seen := make(map[string]struct{}, len(list))
	out := make([]model.Token, 0, len(list))
	for _, t := range list {
		addr := t.NormalizedAddress()
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, t)
	}
	return out
}

// sortTokens orders tokens in place by the requested field. An unrecognized
// field falls back to volume; price_change reads the change field for the
// requested period (24h when unset), treating missing values as zero.
func sortTokens(tokens []model.Token, sortBy, order, period string) {
	key := func(t model.Token) float64 {
		switch sortBy {
		case model.SortByPriceChange:
			if c := t.PriceChangeFor(period); c != nil {
				return *c
			}
			return 0
		case model.SortByMarketCap:
			return t.MarketCap
		case model.SortByLiquidity:
			return t.Liquidity
		default:
			return t.Volume
		}
	}
	sort.SliceStable(tokens, func(i, j int) bool {
		if order == model.OrderAsc {
			return key(tokens[i]) < key(tokens[j])
		}
		return key(tokens[i]) > key(tokens[j])
	})
}
