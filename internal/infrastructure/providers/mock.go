package providers

import (
	"context"
	"strings"

	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/model"
	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/useCases"
	"github.com/raunaksarawgi/dexflow-realtime/pkg/utils"
)

// MockClient serves generated market data, for local runs without upstream
// access. Enabled via USE_MOCK_SOURCE.
type MockClient struct {
	gen *utils.TokenGenerator
}

var _ useCases.SourceClient = (*MockClient)(nil)

func NewMockClient(tokenCount int) *MockClient {
	return &MockClient{gen: utils.NewTokenGenerator(tokenCount)}
}

func (c *MockClient) Name() string { return "mock" }

func (c *MockClient) Search(ctx context.Context, query string) ([]model.Token, error) {
	tokens := c.gen.Generate()
	if query == "" {
		return tokens, nil
	}
	q := strings.ToLower(query)
	matched := make([]model.Token, 0, len(tokens))
	for _, t := range tokens {
		if strings.Contains(strings.ToLower(t.Ticker), q) || strings.Contains(strings.ToLower(t.Name), q) {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

func (c *MockClient) GetByAddress(ctx context.Context, address string) (*model.Token, error) {
	addr := strings.ToLower(strings.TrimSpace(address))
	for _, t := range c.gen.Generate() {
		if t.NormalizedAddress() == addr {
			return &t, nil
		}
	}
	return nil, nil
}
