// Package dto holds the wire representations crossing the HTTP and
// websocket boundaries, kept separate from the domain models.
package dto

import (
	"time"

	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/model"
)

// TokenDTO is the outbound representation of a token record.
type TokenDTO struct {
	Address          string   `json:"address"`
	Name             string   `json:"name"`
	Ticker           string   `json:"ticker"`
	Price            float64  `json:"price"`
	MarketCap        float64  `json:"market_cap"`
	Volume           float64  `json:"volume"`
	Liquidity        float64  `json:"liquidity"`
	TransactionCount int64    `json:"transaction_count"`
	PriceChange1h    *float64 `json:"price_change_1h,omitempty"`
	PriceChange24h   *float64 `json:"price_change_24h,omitempty"`
	PriceChange7d    *float64 `json:"price_change_7d,omitempty"`
	SourceProtocol   string   `json:"source_protocol"`
	LastUpdated      string   `json:"last_updated"`
}

// FromToken converts a domain token to its wire shape.
func FromToken(t model.Token) TokenDTO {
	return TokenDTO{
		Address:          t.Address,
		Name:             t.Name,
		Ticker:           t.Ticker,
		Price:            t.Price,
		MarketCap:        t.MarketCap,
		Volume:           t.Volume,
		Liquidity:        t.Liquidity,
		TransactionCount: t.TransactionCount,
		PriceChange1h:    t.PriceChange1h,
		PriceChange24h:   t.PriceChange24h,
		PriceChange7d:    t.PriceChange7d,
		SourceProtocol:   t.SourceProtocol,
		LastUpdated:      t.LastUpdated.UTC().Format(time.RFC3339),
	}
}

func FromTokens(tokens []model.Token) []TokenDTO {
	dtos := make([]TokenDTO, len(tokens))
	for i, t := range tokens {
		dtos[i] = FromToken(t)
	}
	return dtos
}

// PagedResultDTO is one page of a ranked token listing.
type PagedResultDTO struct {
	Tokens     []TokenDTO `json:"tokens"`
	NextCursor string     `json:"next_cursor,omitempty"`
	Total      int        `json:"total"`
}

func FromPagedResult(r *model.PagedResult) PagedResultDTO {
	return PagedResultDTO{
		Tokens:     FromTokens(r.Tokens),
		NextCursor: r.NextCursor,
		Total:      r.Total,
	}
}

// PriceUpdateDTO is the wire shape of one price delta.
type PriceUpdateDTO struct {
	Address       string  `json:"address"`
	Ticker        string  `json:"ticker"`
	OldPrice      float64 `json:"old_price"`
	NewPrice      float64 `json:"new_price"`
	ChangePercent float64 `json:"change_percent"`
}

func FromPriceUpdates(updates []model.PriceUpdate) []PriceUpdateDTO {
	dtos := make([]PriceUpdateDTO, len(updates))
	for i, u := range updates {
		dtos[i] = PriceUpdateDTO{
			Address:       u.Address,
			Ticker:        u.Ticker,
			OldPrice:      u.OldPrice,
			NewPrice:      u.NewPrice,
			ChangePercent: u.ChangePercent,
		}
	}
	return dtos
}

// VolumeSpikeDTO is the wire shape of one qualifying volume spike.
type VolumeSpikeDTO struct {
	Address      string  `json:"address"`
	Ticker       string  `json:"ticker"`
	OldVolume    float64 `json:"old_volume"`
	NewVolume    float64 `json:"new_volume"`
	SpikePercent float64 `json:"spike_percent"`
}

func FromVolumeSpikes(spikes []model.VolumeSpike) []VolumeSpikeDTO {
	dtos := make([]VolumeSpikeDTO, len(spikes))
	for i, s := range spikes {
		dtos[i] = VolumeSpikeDTO{
			Address:      s.Address,
			Ticker:       s.Ticker,
			OldVolume:    s.OldVolume,
			NewVolume:    s.NewVolume,
			SpikePercent: s.SpikePercent,
		}
	}
	return dtos
}
