package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coocood/freecache"
	mapset "github.com/deckarep/golang-set/v2"
	json "github.com/goccy/go-json"

	"snapfeed/internal/providers"
	"snapfeed/internal/structures"
)

const (
	muteCacheSize = 1024 * 1024
	muteCacheKey  = "mutelist"

	muteFetchTimeout = 10 * time.Second
	// Cached after a failed fetch so a dead blacklist service is retried
	// once per interval instead of once per feed request.
	muteFailureTTL = 30 * time.Second
)

// muteResponse is the documented blacklist payload: {"users": [...]}.
type muteResponse struct {
	Users []string `json:"users"`
}

// decodeMuteList normalizes every historical payload spelling in one place.
// The current API returns {"users":[...]}; older deployments returned
// {"blacklist":[...]}, {"data":[...]} or a bare array.
func decodeMuteList(raw []byte) ([]string, error) {
	var current muteResponse
	if err := json.Unmarshal(raw, &current); err == nil && current.Users != nil {
		return current.Users, nil
	}

	var legacy struct {
		Blacklist []string `json:"blacklist"`
		Data      []string `json:"data"`
	}
	if err := json.Unmarshal(raw, &legacy); err == nil {
		if legacy.Blacklist != nil {
			return legacy.Blacklist, nil
		}
		if legacy.Data != nil {
			return legacy.Data, nil
		}
	}

	var bare []string
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare, nil
	}
	return nil, errors.New("unrecognized blacklist payload")
}

// MuteRegistry caches the suppressed-author set fetched from the blacklist
// service. A fetch failure degrades to an empty set: losing moderation for
// one retry window beats losing the whole feed.
type MuteRegistry struct {
	url    string
	client *http.Client
	cache  *freecache.Cache
	ttl    time.Duration
	logger providers.Logger
}

func NewMuteRegistry(conf *structures.Config, logger providers.Logger) *MuteRegistry {
	ttl := conf.Registry.MuteTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &MuteRegistry{
		url:    conf.Registry.MuteURL,
		client: &http.Client{Timeout: muteFetchTimeout},
		cache:  freecache.NewCache(muteCacheSize),
		ttl:    ttl,
		logger: logger,
	}
}

// Snapshot returns the current mute set, serving from cache inside the TTL.
// With no blacklist URL configured, or after a failed fetch, the set is
// empty and feed delivery continues unmoderated.
func (r *MuteRegistry) Snapshot(ctx context.Context) mapset.Set[string] {
	if r.url == "" {
		return mapset.NewSet[string]()
	}

	if raw, err := r.cache.Get([]byte(muteCacheKey)); err == nil {
		var names []string
		if err := json.Unmarshal(raw, &names); err == nil {
			return mapset.NewSet[string](names...)
		}
	}

	names, err := r.fetch(ctx)
	if err != nil {
		r.logger.Warnf(providers.TypeRegistry, "Mute list fetch failed, suppression disabled until retry: %v", err)
		r.store(nil, muteFailureTTL)
		return mapset.NewSet[string]()
	}

	r.store(names, r.ttl)
	r.logger.Debugf(providers.TypeRegistry, "Cached mute list with %d authors", len(names))
	return mapset.NewSet[string](names...)
}

// IsMuted reports whether author is on the current mute list.
func (r *MuteRegistry) IsMuted(ctx context.Context, author string) bool {
	return r.Snapshot(ctx).Contains(author)
}

// Refresh fetches the mute list unconditionally, replacing whatever is
// cached. Used by the warm-refresh job and at boot.
func (r *MuteRegistry) Refresh(ctx context.Context) error {
	if r.url == "" {
		return nil
	}
	names, err := r.fetch(ctx)
	if err != nil {
		return err
	}
	r.store(names, r.ttl)
	r.logger.Infof(providers.TypeRegistry, "Refreshed mute list with %d authors", len(names))
	return nil
}

func (r *MuteRegistry) Clear() {
	r.cache.Clear()
}

func (r *MuteRegistry) Stats() Stats {
	return Stats{
		Entries: r.cache.EntryCount(),
		Hits:    r.cache.HitCount(),
		Misses:  r.cache.MissCount(),
	}
}

func (r *MuteRegistry) fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return decodeMuteList(body)
}

func (r *MuteRegistry) store(names []string, ttl time.Duration) {
	raw, err := json.Marshal(names)
	if err != nil {
		return
	}
	_ = r.cache.Set([]byte(muteCacheKey), raw, int(ttl.Seconds()))
}
