package useCases

import (
	"context"
	"net/http"
	"time"

	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/model"
)

// SourceClient is one upstream DEX data provider. Implementations normalize
// the provider's native schema into the common Token shape, apply a
// provider-scoped cache-through, and rate-limit their own outbound calls.
// A failing source returns an error; it must never block or corrupt the
// results of the other sources.
type SourceClient interface {
	Name() string
	Search(ctx context.Context, query string) ([]model.Token, error)
	// GetByAddress returns nil, nil when the provider does not know the address.
	GetByAddress(ctx context.Context, address string) (*model.Token, error)
}

// TokenAggregator fans a request out across all configured sources, merges
// overlapping records into one Token per address, and fronts the merged
// result with a query-scoped cache.
type TokenAggregator interface {
	Search(ctx context.Context, query string) ([]model.Token, error)
	// GetByAddress returns nil, nil when no source knows the address.
	GetByAddress(ctx context.Context, address string) (*model.Token, error)
	ListFiltered(ctx context.Context, q model.ListQuery) (*model.PagedResult, error)
	// Invalidate removes cached aggregates matching pattern (the
	// aggregator's own key prefix when pattern is empty) and returns the
	// number of entries removed.
	Invalidate(ctx context.Context, pattern string) int
}

// Broadcaster pushes classified change events to connected clients.
type Broadcaster interface {
	// Broadcast sends one event envelope stamped with at to every connected
	// client, so all batches of one detection cycle carry the same
	// timestamp. A zero at means now.
	Broadcast(eventType string, data any, at time.Time)
	ClientCount() int
	// Handler accepts websocket upgrade requests.
	Handler() http.HandlerFunc
	// Close disconnects all clients and rejects further connections.
	Close()
}
