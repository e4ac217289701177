package controllers

import (
	"errors"
	json "github.com/goccy/go-json"
	"io"
	"net/http"
	"snapfeed/internal/feed"
	"snapfeed/internal/providers"
	"snapfeed/internal/services"
	"strconv"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type ApiController struct {
	logger  providers.Logger
	service services.FeedServiceInterface
	cache   providers.CacheProviderInterface
}

func NewApiController(logger providers.Logger, service services.FeedServiceInterface, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger:  logger,
		service: service,
		cache:   cache,
	}
}

type createSessionRequest struct {
	User string `json:"user"`
}

func sessionID(r *http.Request) string {
	return r.URL.Query().Get("session")
}

func filterKind(r *http.Request) (feed.FilterKind, bool) {
	raw := r.URL.Query().Get("filter")
	if raw == "" {
		return feed.FilterNewest, true
	}
	return feed.ParseFilterKind(raw)
}

// feedCacheKey includes the ledger version, so a fetch that lands new
// containers invalidates every cached projection of that session at once.
func feedCacheKey(id string, kind feed.FilterKind, user string, version uint64) string {
	return "feed:" + id + ":" + string(kind) + ":u" + user + ":v" + strconv.FormatUint(version, 10)
}

func (ac *ApiController) writeJSON(w http.ResponseWriter, status int, v any) {
	gson, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func (ac *ApiController) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrSessionNotFound) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	ac.logger.Errorf(providers.TypeApp, "Unhandled API error: %v", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (ac *ApiController) CreateSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload createSessionRequest
	err := json.NewDecoder(r.Body).Decode(&payload)
	if err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	info := ac.service.CreateSession(payload.User)
	ac.writeJSON(w, http.StatusCreated, info)
}

func (ac *ApiController) CloseSession(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if id == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if !ac.service.CloseSession(id) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ac *ApiController) GetFeed(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	kind, ok := filterKind(r)
	if !ok {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	info, err := ac.service.SessionStats(id)
	if err != nil {
		ac.fail(w, err)
		return
	}

	if data, ok := ac.cache.Get(feedCacheKey(id, kind, info.User, info.Ledger.Version)); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	page, err := ac.service.GetFeed(id, kind)
	if err != nil {
		ac.fail(w, err)
		return
	}

	gson, err := json.Marshal(page)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// Pages carrying a registry failure stay uncached so the next request
	// retries the lookup instead of pinning the degraded page for the TTL.
	if page.Error == "" {
		ac.cache.Set(feedCacheKey(id, kind, info.User, page.Version), gson)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (ac *ApiController) LoadMore(w http.ResponseWriter, r *http.Request) {
	status, err := ac.service.LoadMore(sessionID(r))
	if err != nil {
		ac.fail(w, err)
		return
	}
	ac.writeJSON(w, http.StatusOK, status)
}

func (ac *ApiController) Refresh(w http.ResponseWriter, r *http.Request) {
	status, err := ac.service.Refresh(sessionID(r))
	if err != nil {
		ac.fail(w, err)
		return
	}
	ac.writeJSON(w, http.StatusOK, status)
}

func (ac *ApiController) SessionStats(w http.ResponseWriter, r *http.Request) {
	info, err := ac.service.SessionStats(sessionID(r))
	if err != nil {
		ac.fail(w, err)
		return
	}
	ac.writeJSON(w, http.StatusOK, info)
}
