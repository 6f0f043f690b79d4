// Package providers implements the upstream SourceClient integrations.
// Each provider normalizes its native schema into the common Token shape,
// fronts its calls with a provider-scoped cache and rate limiter, and wraps
// the HTTP round trip in a circuit breaker so a flapping upstream is cut
// off before it slows the aggregate fetch.
package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
)

// ErrRateLimited is returned when the local admission check rejects a call.
// The aggregator treats it like any other transient source failure.
var ErrRateLimited = errors.New("provider rate limited")

// errUpstreamThrottled marks an HTTP 429 from the provider itself.
type errUpstreamThrottled struct{ provider string }

func (e errUpstreamThrottled) Error() string {
	return fmt.Sprintf("%s: upstream throttled (429)", e.provider)
}

// IsUpstreamThrottled reports whether err is a provider-side 429.
func IsUpstreamThrottled(err error) bool {
	var t errUpstreamThrottled
	return errors.As(err, &t)
}

// breakerClient is an HTTP GET client with a circuit breaker per provider.
// Settings follow the usual shape: trip on three consecutive failures, or
// on a >5% failure ratio once twenty calls have been observed.
type breakerClient struct {
	name    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *slog.Logger
}

func newBreakerClient(name string, timeout time.Duration, log *slog.Logger) *breakerClient {
	st := gobreaker.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn("provider circuit breaker state change",
			"provider", name, "from", from.String(), "to", to.String())
	}
	return &breakerClient{
		name:    name,
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(st),
		log:     log,
	}
}

// getJSON fetches url through the breaker and returns the raw body.
// 429 responses surface as errUpstreamThrottled without counting as a
// breaker failure; 5xx and transport errors do count.
func (c *breakerClient) getJSON(ctx context.Context, url string) ([]byte, error) {
	res, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, err
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			// Throttling is the caller's problem, not an outage.
			return httpResult{status: resp.StatusCode}, nil
		case resp.StatusCode >= 400:
			return nil, fmt.Errorf("%s: unexpected status %s", c.name, strconv.Itoa(resp.StatusCode))
		}
		return httpResult{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		return nil, err
	}
	r := res.(httpResult)
	if r.status == http.StatusTooManyRequests {
		return nil, errUpstreamThrottled{provider: c.name}
	}
	return r.body, nil
}

type httpResult struct {
	status int
	body   []byte
}
