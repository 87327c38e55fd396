package harvest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
)

// extractPayload is the wire form of a Request; the timeout comes in as
// seconds rather than a Go duration.
type extractPayload struct {
	Platform       string `json:"platform"`
	AccountURL     string `json:"account_url"`
	CookieFile     string `json:"cookie_file,omitempty"`
	MaxItems       int    `json:"max_items,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

func (p extractPayload) request() Request {
	return Request{
		Platform:      Platform(p.Platform),
		AccountURL:    p.AccountURL,
		CookieFile:    p.CookieFile,
		MaxItems:      p.MaxItems,
		MethodTimeout: time.Duration(p.TimeoutSeconds) * time.Second,
	}
}

// Router returns the HTTP surface of the service:
//
//	POST /extract        one account
//	POST /extract/batch  many accounts, bounded concurrency
//	GET  /stats/{platform}/{account}
//	GET  /methods
//	GET  /healthz
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/extract", s.handleExtract)
	r.Post("/extract/batch", s.handleExtractBatch)
	r.Get("/stats/{platform}/{account}", s.handleStats)
	r.Get("/methods", s.handleMethods)
	r.Get("/healthz", s.handleHealthz)
	return r
}

func (s *Service) handleExtract(w http.ResponseWriter, r *http.Request) {
	var p extractPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httpError(w, http.StatusBadRequest, "malformed body")
		return
	}
	res, err := s.Extract(r.Context(), p.request())
	if err != nil && res == nil {
		httpError(w, statusFor(err), err.Error())
		return
	}
	// Exhaustion still returns the trail, with a distinct status.
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	}
	writeJSON(w, status, res)
}

func (s *Service) handleExtractBatch(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Requests []extractPayload `json:"requests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if len(payload.Requests) == 0 {
		httpError(w, http.StatusBadRequest, "empty batch")
		return
	}

	reqs := make([]Request, len(payload.Requests))
	for i, p := range payload.Requests {
		reqs[i] = p.request()
	}

	results, err := s.ExtractBatch(r.Context(), reqs)
	if err != nil {
		httpError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	platform, ok := ParsePlatform(chi.URLParam(r, "platform"))
	if !ok {
		httpError(w, http.StatusNotFound, "unknown platform")
		return
	}
	// Account URLs arrive percent-encoded so their slashes survive routing.
	account := chi.URLParam(r, "account")
	if decoded, err := url.PathUnescape(account); err == nil {
		account = decoded
	}

	stats, err := s.MethodStats(r.Context(), platform, account)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"platform": platform,
		"account":  account,
		"stats":    stats,
	})
}

func (s *Service) handleMethods(w http.ResponseWriter, r *http.Request) {
	type methodInfo struct {
		Name      string   `json:"name"`
		Ordinal   int      `json:"ordinal"`
		Platforms []string `json:"platforms"`
	}
	var out []methodInfo
	for _, m := range s.Methods() {
		mi := methodInfo{Name: m.Name(), Ordinal: m.Ordinal()}
		for _, p := range Platforms() {
			if m.Supports(p) {
				mi.Platforms = append(mi.Platforms, string(p))
			}
		}
		out = append(out, mi)
	}
	writeJSON(w, http.StatusOK, map[string]any{"methods": out})
}

func (s *Service) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"cache_degraded": s.Degraded(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnknownPlatform):
		return http.StatusBadRequest
	case errors.Is(err, ErrPlatformDisabled):
		return http.StatusForbidden
	case errors.Is(err, ErrExhausted):
		return http.StatusBadGateway
	case errors.Is(err, ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("response encode failed", "error", err)
	}
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
