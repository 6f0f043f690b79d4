// Package http is the REST boundary. It validates query parameters, maps
// domain results into the uniform response envelope, and never lets core
// errors escape unclassified.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/raunaksarawgi/dexflow-realtime/internal/app/dto"
	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/model"
	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/repository"
	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/useCases"
)

const maxPageLimit = 100

// Server is the HTTP server with all routes configured.
type Server struct {
	aggregator  useCases.TokenAggregator
	broadcaster useCases.Broadcaster
	cache       repository.CacheStore
	router      *mux.Router
	server      *http.Server
	log         *slog.Logger
}

// NewServer wires the routes onto a gorilla router.
func NewServer(addr string, aggregator useCases.TokenAggregator, broadcaster useCases.Broadcaster, cache repository.CacheStore, log *slog.Logger) *Server {
	router := mux.NewRouter()

	s := &Server{
		aggregator:  aggregator,
		broadcaster: broadcaster,
		cache:       cache,
		router:      router,
		log:         log,
		server: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/api/tokens", s.handleListTokens).Methods(http.MethodGet)
	s.router.HandleFunc("/api/tokens/search", s.handleSearch).Methods(http.MethodGet)
	s.router.HandleFunc("/api/tokens/{address}", s.handleGetToken).Methods(http.MethodGet)
	s.router.HandleFunc("/api/cache", s.handleInvalidate).Methods(http.MethodDelete)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.broadcaster != nil {
		s.router.HandleFunc("/ws", s.broadcaster.Handler())
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	q, ok := parseListQuery(w, r)
	if !ok {
		return
	}

	res, err := s.aggregator.ListFiltered(r.Context(), q)
	if err != nil {
		s.log.Error("list tokens failed", "error", err)
		writeError(w, CodeInternalError, "failed to list tokens", http.StatusInternalServerError)
		return
	}
	writeSuccess(w, http.StatusOK, dto.FromPagedResult(res))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, CodeMissingQuery, "query parameter q is required", http.StatusBadRequest)
		return
	}

	tokens, err := s.aggregator.Search(r.Context(), query)
	if err != nil {
		s.log.Error("search failed", "query", query, "error", err)
		writeError(w, CodeInternalError, "search failed", http.StatusInternalServerError)
		return
	}
	writeSuccess(w, http.StatusOK, dto.FromTokens(tokens))
}

func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	token, err := s.aggregator.GetByAddress(r.Context(), address)
	if err != nil {
		s.log.Error("token lookup failed", "address", address, "error", err)
		writeError(w, CodeInternalError, "token lookup failed", http.StatusInternalServerError)
		return
	}
	if token == nil {
		writeError(w, CodeTokenNotFound, "no source has data for this address", http.StatusNotFound)
		return
	}
	writeSuccess(w, http.StatusOK, dto.FromToken(*token))
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	removed := s.aggregator.Invalidate(r.Context(), pattern)
	writeSuccess(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":          "ok",
		"cache_connected": s.cache != nil && s.cache.Connected(),
	}
	if s.broadcaster != nil {
		body["clients"] = s.broadcaster.ClientCount()
	}
	writeSuccess(w, http.StatusOK, body)
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// parseListQuery validates the listing parameters and writes the client
// error itself when a value is out of range.
func parseListQuery(w http.ResponseWriter, r *http.Request) (model.ListQuery, bool) {
	params := r.URL.Query()
	q := model.ListQuery{
		Limit:  50,
		Cursor: params.Get("cursor"),
		SortBy: model.SortByVolume,
		Order:  model.OrderDesc,
		Search: params.Get("search"),
	}

	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageLimit {
			writeError(w, CodeInvalidLimit, "limit must be an integer between 1 and 100", http.StatusBadRequest)
			return q, false
		}
		q.Limit = n
	}

	if raw := params.Get("sort_by"); raw != "" {
		switch raw {
		case model.SortByVolume, model.SortByPriceChange, model.SortByMarketCap, model.SortByLiquidity:
			q.SortBy = raw
		default:
			writeError(w, CodeInvalidSortBy, "sort_by must be one of volume, price_change, market_cap, liquidity", http.StatusBadRequest)
			return q, false
		}
	}

	if raw := params.Get("order"); raw != "" {
		switch raw {
		case model.OrderAsc, model.OrderDesc:
			q.Order = raw
		default:
			writeError(w, CodeInvalidOrder, "order must be asc or desc", http.StatusBadRequest)
			return q, false
		}
	}

	if raw := params.Get("period"); raw != "" {
		switch raw {
		case model.Period1h, model.Period24h, model.Period7d:
			q.Period = raw
		default:
			writeError(w, CodeInvalidPeriod, "period must be one of 1h, 24h, 7d", http.StatusBadRequest)
			return q, false
		}
	}

	if raw := params.Get("min_volume"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			writeError(w, CodeInvalidMinVolume, "min_volume must be a non-negative number", http.StatusBadRequest)
			return q, false
		}
		q.MinVolume = v
	}

	return q, true
}
