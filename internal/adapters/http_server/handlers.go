// internal/adapters/http_server/handlers.go
package httpserver

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"aqi_relay/internal/app"
	"aqi_relay/internal/domain"
)

type Handlers struct {
	L *app.LookupService
	// TranslateErrors answers 404 (body unchanged) when the upstream document
	// carries "status":"error".
	TranslateErrors bool
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/aqi/{city}", h.lookup)
	s.mux.Get("/v1/stats/popular", h.popular)
	s.mux.Get("/v1/stats/recent", h.recent)
}

func writeProblem(w http.ResponseWriter, status int, typ, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: typ, Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// cityParam returns the decoded {city} segment. chi routes on RawPath when
// the request path had escapes the default encoding would not reproduce
// (e.g. %2F), leaving the param still escaped.
func cityParam(r *http.Request) string {
	city := chi.URLParam(r, "city")
	if r.URL.RawPath == "" {
		return city
	}
	if dec, err := url.PathUnescape(city); err == nil {
		return dec
	}
	return city
}

// problemFor maps a lookup failure to an HTTP status and problem type.
func problemFor(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, "upstream_timeout", "Upstream Timeout"
	case errors.Is(err, domain.ErrStatus):
		return http.StatusBadGateway, "upstream_status", "Upstream Error"
	case errors.Is(err, domain.ErrCancelled):
		return http.StatusServiceUnavailable, "request_cancelled", "Request Cancelled"
	case errors.Is(err, domain.ErrDecode):
		return http.StatusBadGateway, "upstream_malformed", "Malformed Upstream Response"
	default:
		return http.StatusBadGateway, "upstream_unreachable", "Upstream Unreachable"
	}
}

func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request) {
	city := cityParam(r)
	doc, err := h.L.Lookup(r.Context(), city)
	if err != nil {
		status, typ, title := problemFor(err)
		writeProblem(w, status, typ, title, "no air quality data for "+strconv.Quote(city))
		return
	}

	status := http.StatusOK
	if h.TranslateErrors && domain.FeedStatus(doc) == "error" {
		status = http.StatusNotFound
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(doc); err != nil {
		log.Error().Err(err).Msg("failed to write lookup body")
	}
}

// parseLimit reads ?limit=, defaulting to def and bounded by hi.
func parseLimit(r *http.Request, def, hi int) (int, bool) {
	ls := r.URL.Query().Get("limit")
	if ls == "" {
		return def, true
	}
	l, err := strconv.Atoi(ls)
	if err != nil || l <= 0 || l > hi {
		return 0, false
	}
	return l, true
}

func (h *Handlers) popular(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, 10, 100)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "about:blank", "Invalid limit", "limit must be an integer between 1 and 100")
		return
	}
	out, err := h.L.Popular(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("popular stats failed")
		writeProblem(w, http.StatusServiceUnavailable, "about:blank", "Stats Unavailable", "")
		return
	}
	writeJSON(w, out)
}

func (h *Handlers) recent(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, 50, 500)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "about:blank", "Invalid limit", "limit must be an integer between 1 and 500")
		return
	}
	out, err := h.L.Recent(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("recent lookups failed")
		writeProblem(w, http.StatusServiceUnavailable, "about:blank", "Stats Unavailable", "")
		return
	}
	writeJSON(w, out)
}
