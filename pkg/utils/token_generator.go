package utils

import (
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/model"
)

var demoTickers = []string{"SOL", "WIF", "BONK", "JUP", "PYTH", "RAY", "ORCA", "JTO", "WEN", "MNGO"}

// TokenGenerator produces pseudo-market data for demo runs and tests.
// Addresses are fixed per generator instance; prices and volumes drift a
// little on every Generate call so the change detector has something to
// classify.
type TokenGenerator struct {
	rng    *rand.Rand
	tokens []model.Token
}

// NewTokenGenerator seeds a generator with count tokens.
func NewTokenGenerator(count int) *TokenGenerator {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	tokens := make([]model.Token, count)
	for i := range tokens {
		ticker := demoTickers[i%len(demoTickers)]
		change := rng.Float64()*10 - 5
		tokens[i] = model.Token{
			Address:          "0x" + strings.ReplaceAll(uuid.New().String(), "-", ""),
			Name:             ticker + " Token",
			Ticker:           ticker,
			Price:            0.01 + rng.Float64()*100,
			MarketCap:        float64(1+rng.Intn(500)) * 1e6,
			Volume:           float64(10+rng.Intn(990)) * 1e3,
			Liquidity:        float64(5+rng.Intn(495)) * 1e4,
			TransactionCount: int64(100 + rng.Intn(9900)),
			PriceChange24h:   &change,
			SourceProtocol:   "demo",
			LastUpdated:      time.Now().UTC(),
		}
	}
	return &TokenGenerator{rng: rng, tokens: tokens}
}

// Generate returns the current universe with prices drifted up to ±5% and
// volumes grown up to +30%.
func (g *TokenGenerator) Generate() []model.Token {
	out := make([]model.Token, len(g.tokens))
	for i := range g.tokens {
		t := &g.tokens[i]
		t.Price *= 1 + (g.rng.Float64()*0.1 - 0.05)
		t.Volume *= 1 + g.rng.Float64()*0.3
		change := g.rng.Float64()*10 - 5
		t.PriceChange24h = &change
		t.LastUpdated = time.Now().UTC()
		out[i] = *t
	}
	return out
}
