// Package registry holds the external author-set collaborators of the feed
// core: the following registry and the mute registry. Both are explicit
// cache objects with constructor-injected TTLs and Clear/Stats methods, not
// ambient module state.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/coocood/freecache"
	mapset "github.com/deckarep/golang-set/v2"
	json "github.com/goccy/go-json"

	"snapfeed/internal/providers"
	"snapfeed/internal/structures"
)

const followingCacheSize = 1024 * 1024

// FollowingSource fetches the raw follow list for an account.
type FollowingSource interface {
	GetFollowing(ctx context.Context, account string) ([]string, error)
}

// Stats of one registry cache.
type Stats struct {
	Entries int64 `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// FollowingRegistry is a pull-through cache of following sets keyed by
// account. A fetch failure propagates to the caller: an empty following
// feed would be indistinguishable from "follows nobody".
type FollowingRegistry struct {
	source FollowingSource
	cache  *freecache.Cache
	ttl    time.Duration
	logger providers.Logger
}

func NewFollowingRegistry(source FollowingSource, conf *structures.Config, logger providers.Logger) *FollowingRegistry {
	ttl := conf.Registry.FollowingTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &FollowingRegistry{
		source: source,
		cache:  freecache.NewCache(followingCacheSize),
		ttl:    ttl,
		logger: logger,
	}
}

// Snapshot returns the set of accounts the given account follows, serving
// from cache inside the TTL. Each call returns a fresh set; callers may
// keep it without seeing later refreshes. An empty account has an empty
// following set and never touches the upstream.
func (r *FollowingRegistry) Snapshot(ctx context.Context, account string) (mapset.Set[string], error) {
	if account == "" {
		return mapset.NewSet[string](), nil
	}

	if raw, err := r.cache.Get([]byte(account)); err == nil {
		var names []string
		if err := json.Unmarshal(raw, &names); err == nil {
			return mapset.NewSet[string](names...), nil
		}
	}

	names, err := r.source.GetFollowing(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch following for %s: %w", account, err)
	}

	if raw, err := json.Marshal(names); err == nil {
		_ = r.cache.Set([]byte(account), raw, int(r.ttl.Seconds()))
	}
	r.logger.Debugf(providers.TypeRegistry, "Cached following set for %s (%d accounts)", account, len(names))
	return mapset.NewSet[string](names...), nil
}

func (r *FollowingRegistry) Clear() {
	r.cache.Clear()
}

func (r *FollowingRegistry) Stats() Stats {
	return Stats{
		Entries: r.cache.EntryCount(),
		Hits:    r.cache.HitCount(),
		Misses:  r.cache.MissCount(),
	}
}
