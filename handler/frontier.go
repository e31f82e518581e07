package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/LexiconIndonesia/frontier-http-service/common/config"
	"github.com/LexiconIndonesia/frontier-http-service/common/frontier"
	"github.com/LexiconIndonesia/frontier-http-service/common/store"
	"github.com/LexiconIndonesia/frontier-http-service/common/utils"
)

// FrontierHandler exposes one frontier per crawl target over HTTP. The
// crawler path parameter namespaces everything, so independent crawl
// targets never share state.
type FrontierHandler struct {
	store    store.Store
	cfg      config.Config
	notifier frontier.Notifier
	router   *chi.Mux

	mu        sync.Mutex
	frontiers map[string]*frontier.Frontier
}

// NewFrontierHandler creates the frontier resource handler. The notifier
// may be nil when NATS is disabled.
func NewFrontierHandler(s store.Store, cfg config.Config, notifier frontier.Notifier) *FrontierHandler {
	h := &FrontierHandler{
		store:     s,
		cfg:       cfg,
		notifier:  notifier,
		frontiers: make(map[string]*frontier.Frontier),
	}

	r := chi.NewRouter()
	r.Route("/{crawler}", func(r chi.Router) {
		r.Post("/urls", h.handleAddURL)
		r.Post("/urls/batch", h.handleAddURLs)
		r.Get("/next", h.handleNext)
		r.Get("/next/batch", h.handleNextBatch)
		r.Post("/complete", h.handleComplete)
		r.Post("/skip", h.handleSkip)
		r.Get("/stats", h.handleStats)
		r.Get("/progress", h.handleProgress)
		r.Get("/failed", h.handleFailed)
		r.Post("/retry", h.handleRetry)
		r.Post("/reclaim", h.handleReclaim)
		r.Post("/clear", h.handleClear)
		r.Post("/export", h.handleExport)
		r.Post("/import", h.handleImport)
	})

	h.router = r
	return h
}

// Router returns the chi router for mounting.
func (h *FrontierHandler) Router() *chi.Mux {
	return h.router
}

// frontierFor returns the frontier for the named crawl target, creating it
// with the configured defaults on first use.
func (h *FrontierHandler) frontierFor(name string) (*frontier.Frontier, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if f, ok := h.frontiers[name]; ok {
		return f, nil
	}

	cfg := frontier.Config{
		Name:            name,
		PolitenessDelay: h.cfg.Frontier.PolitenessDelay(),
		MaxDepth:        h.cfg.Frontier.MaxDepth,
		MaxRetries:      h.cfg.Frontier.MaxRetries,
		Notifier:        h.notifier,
	}
	f, err := frontier.New(h.store, cfg)
	if err != nil {
		return nil, err
	}
	h.frontiers[name] = f
	return f, nil
}

func (h *FrontierHandler) frontierFromRequest(w http.ResponseWriter, r *http.Request) *frontier.Frontier {
	name := chi.URLParam(r, "crawler")
	if name == "" {
		utils.WriteError(w, http.StatusBadRequest, "crawler name is required")
		return nil
	}
	f, err := h.frontierFor(name)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return nil
	}
	return f
}

type addURLRequest struct {
	URL string `json:"url"`
	// Priority is a pointer so an absent field defaults to normal rather
	// than critical (the zero value)
	Priority *frontier.Priority `json:"priority,omitempty"`
	Depth    int                `json:"depth"`
	Referer  string             `json:"referer,omitempty"`
	Metadata map[string]any     `json:"metadata,omitempty"`
}

func priorityOrNormal(p *frontier.Priority) frontier.Priority {
	if p == nil {
		return frontier.PriorityNormal
	}
	return *p
}

func (h *FrontierHandler) handleAddURL(w http.ResponseWriter, r *http.Request) {
	f := h.frontierFromRequest(w, r)
	if f == nil {
		return
	}

	var req addURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		utils.WriteError(w, http.StatusBadRequest, "url is required")
		return
	}
	added, err := f.AddURL(r.Context(), req.URL, frontier.AddOptions{
		Priority: priorityOrNormal(req.Priority),
		Depth:    req.Depth,
		Referer:  req.Referer,
		Metadata: req.Metadata,
	})
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"added": added})
}

type addURLsRequest struct {
	URLs     []string           `json:"urls"`
	Priority *frontier.Priority `json:"priority,omitempty"`
	Depth    int                `json:"depth"`
	Referer  string             `json:"referer,omitempty"`
	Metadata map[string]any     `json:"metadata,omitempty"`
}

func (h *FrontierHandler) handleAddURLs(w http.ResponseWriter, r *http.Request) {
	f := h.frontierFromRequest(w, r)
	if f == nil {
		return
	}

	var req addURLsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.URLs) == 0 {
		utils.WriteError(w, http.StatusBadRequest, "urls is required")
		return
	}

	count, err := f.AddURLs(r.Context(), req.URLs, frontier.AddOptions{
		Priority: priorityOrNormal(req.Priority),
		Depth:    req.Depth,
		Referer:  req.Referer,
		Metadata: req.Metadata,
	})
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"added": count})
}

func (h *FrontierHandler) handleNext(w http.ResponseWriter, r *http.Request) {
	f := h.frontierFromRequest(w, r)
	if f == nil {
		return
	}

	respectPoliteness := r.URL.Query().Get("politeness") != "false"
	entry, err := f.GetNext(r.Context(), respectPoliteness)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entry == nil {
		// No work currently available, not necessarily finished
		w.WriteHeader(http.StatusNoContent)
		return
	}

	utils.WriteJSON(w, http.StatusOK, entry)
}

func (h *FrontierHandler) handleNextBatch(w http.ResponseWriter, r *http.Request) {
	f := h.frontierFromRequest(w, r)
	if f == nil {
		return
	}

	size := 10
	if sizeStr := r.URL.Query().Get("size"); sizeStr != "" {
		n, err := strconv.Atoi(sizeStr)
		if err != nil || n <= 0 {
			utils.WriteError(w, http.StatusBadRequest, "invalid size")
			return
		}
		size = n
	}

	respectPoliteness := r.URL.Query().Get("politeness") != "false"
	entries, err := f.GetNextBatch(r.Context(), size, respectPoliteness)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, entries)
}

type completeRequest struct {
	URL      string         `json:"url"`
	Success  bool           `json:"success"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (h *FrontierHandler) handleComplete(w http.ResponseWriter, r *http.Request) {
	f := h.frontierFromRequest(w, r)
	if f == nil {
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		utils.WriteError(w, http.StatusBadRequest, "url is required")
		return
	}

	success, err := f.MarkCompleted(r.Context(), req.URL, req.Success, req.Metadata)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"success": success})
}

type skipRequest struct {
	URL    string `json:"url"`
	Reason string `json:"reason,omitempty"`
}

func (h *FrontierHandler) handleSkip(w http.ResponseWriter, r *http.Request) {
	f := h.frontierFromRequest(w, r)
	if f == nil {
		return
	}

	var req skipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		utils.WriteError(w, http.StatusBadRequest, "url is required")
		return
	}

	if err := f.SkipURL(r.Context(), req.URL, req.Reason); err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.WriteMessage(w, http.StatusOK, "skipped")
}

func (h *FrontierHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	f := h.frontierFromRequest(w, r)
	if f == nil {
		return
	}

	stats, err := f.Stats(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, stats)
}

func (h *FrontierHandler) handleProgress(w http.ResponseWriter, r *http.Request) {
	f := h.frontierFromRequest(w, r)
	if f == nil {
		return
	}

	progress, err := f.Progress(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, progress)
}

func (h *FrontierHandler) handleFailed(w http.ResponseWriter, r *http.Request) {
	f := h.frontierFromRequest(w, r)
	if f == nil {
		return
	}

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 {
			utils.WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := f.FailedURLs(r.Context(), limit)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, entries)
}

type retryRequest struct {
	MaxRetries *int `json:"max_retries,omitempty"`
}

func (h *FrontierHandler) handleRetry(w http.ResponseWriter, r *http.Request) {
	f := h.frontierFromRequest(w, r)
	if f == nil {
		return
	}

	var req retryRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	count, err := f.RetryFailed(r.Context(), req.MaxRetries)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"retried": count})
}

type reclaimRequest struct {
	OlderThanSeconds float64 `json:"older_than_seconds"`
}

func (h *FrontierHandler) handleReclaim(w http.ResponseWriter, r *http.Request) {
	f := h.frontierFromRequest(w, r)
	if f == nil {
		return
	}

	var req reclaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OlderThanSeconds <= 0 {
		utils.WriteError(w, http.StatusBadRequest, "older_than_seconds must be positive")
		return
	}

	count, err := f.ReclaimStale(r.Context(), time.Duration(req.OlderThanSeconds*float64(time.Second)))
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"reclaimed": count})
}

func (h *FrontierHandler) handleClear(w http.ResponseWriter, r *http.Request) {
	f := h.frontierFromRequest(w, r)
	if f == nil {
		return
	}

	if err := f.Clear(r.Context()); err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.WriteMessage(w, http.StatusOK, "cleared")
}

type snapshotRequest struct {
	Path string `json:"path"`
}

func (h *FrontierHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	f := h.frontierFromRequest(w, r)
	if f == nil {
		return
	}

	var req snapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		utils.WriteError(w, http.StatusBadRequest, "path is required")
		return
	}

	if err := f.ExportState(r.Context(), req.Path); err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"path": req.Path})
}

func (h *FrontierHandler) handleImport(w http.ResponseWriter, r *http.Request) {
	f := h.frontierFromRequest(w, r)
	if f == nil {
		return
	}

	var req snapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		utils.WriteError(w, http.StatusBadRequest, "path is required")
		return
	}

	if err := f.ImportState(r.Context(), req.Path); err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"path": req.Path})
}
