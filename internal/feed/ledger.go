// Package feed implements the feed acquisition core: a bounded in-memory
// ledger of fetched containers, a coordinator that paginates the chain and
// feeds the ledger, and a pure filter engine projecting the flattened snaps
// into the selectable views.
package feed

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"

	"snapfeed/internal/models"
	"snapfeed/internal/providers"
)

// Ledger is the bounded, ordered store of fetched containers. Containers are
// held in display order: index 0 is the feed top, the tail is the deepest
// page reached. Pagination appends at the tail and evicts from the front;
// a refresh that discovers a brand-new container prepends at the front and
// evicts from the tail, so the resident window always stays contiguous with
// the end being extended.
type Ledger struct {
	mu         sync.RWMutex
	containers []*models.Container
	byPermlink map[string]*models.Container
	max        int
	version    atomic.Uint64
	logger     providers.Logger
}

type LedgerStats struct {
	ResidentContainers int    `json:"resident_containers"`
	TotalSnaps         int    `json:"total_snaps"`
	Version            uint64 `json:"version"`
}

// NewLedger creates a ledger holding at most maxContainers containers.
func NewLedger(maxContainers int, logger providers.Logger) *Ledger {
	if maxContainers < 1 {
		maxContainers = 1
	}
	return &Ledger{
		containers: make([]*models.Container, 0, maxContainers),
		byPermlink: make(map[string]*models.Container, maxContainers),
		max:        maxContainers,
		logger:     logger,
	}
}

// Upsert inserts a container at the tail, or updates the resident container
// with the same permlink in place. When an insert would exceed capacity the
// front (oldest-fetched) container is evicted first. The ledger takes
// ownership of c; snaps are normalized to descending creation order.
func (l *Ledger) Upsert(c *models.Container) {
	if c == nil {
		return
	}
	sortSnapsDesc(c.Snaps)

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.byPermlink[c.Permlink]; ok {
		existing.Snaps = c.Snaps
		existing.Created = c.Created
		existing.FetchedAt = c.FetchedAt
		l.version.Inc()
		return
	}

	if len(l.containers) >= l.max {
		l.evictLocked(0)
	}
	l.containers = append(l.containers, c)
	l.byPermlink[c.Permlink] = c
	l.version.Inc()
}

// PrependNewest inserts a container at the feed top, or updates the resident
// container with the same permlink in place. When an insert would exceed
// capacity the tail (deepest) container is evicted so the pagination cursor
// stays adjacent to the resident window.
func (l *Ledger) PrependNewest(c *models.Container) {
	if c == nil {
		return
	}
	sortSnapsDesc(c.Snaps)

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.byPermlink[c.Permlink]; ok {
		existing.Snaps = c.Snaps
		existing.Created = c.Created
		existing.FetchedAt = c.FetchedAt
		l.version.Inc()
		return
	}

	if len(l.containers) >= l.max {
		l.evictLocked(len(l.containers) - 1)
	}
	l.containers = append([]*models.Container{c}, l.containers...)
	l.byPermlink[c.Permlink] = c
	l.version.Inc()
}

// AllSnaps returns all resident snaps concatenated in container order, each
// container's snaps sorted descending by creation time. Ordering across
// container boundaries follows container order, not global recency; within
// the normal newest-to-oldest pagination flow the two coincide.
func (l *Ledger) AllSnaps() []models.Snap {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := 0
	for _, c := range l.containers {
		total += len(c.Snaps)
	}
	out := make([]models.Snap, 0, total)
	for _, c := range l.containers {
		out = append(out, c.Snaps...)
	}
	return out
}

// LastCursor returns the identity of the deepest resident container, the
// cursor from which the next older page starts. ok is false when the ledger
// is empty.
func (l *Ledger) LastCursor() (cursor models.Cursor, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.containers) == 0 {
		return models.Cursor{}, false
	}
	tail := l.containers[len(l.containers)-1]
	return models.Cursor{Author: tail.Author, Permlink: tail.Permlink}, true
}

// NewestFetchedAt returns the fetch time of the feed-top container.
func (l *Ledger) NewestFetchedAt() (time.Time, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.containers) == 0 {
		return time.Time{}, false
	}
	return l.containers[0].FetchedAt, true
}

// Has reports whether a container with the given permlink is resident.
func (l *Ledger) Has(permlink string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.byPermlink[permlink]
	return ok
}

// EvictOldest removes the front (oldest-fetched) container. Returns false
// when the ledger is empty.
func (l *Ledger) EvictOldest() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.containers) == 0 {
		return false
	}
	l.evictLocked(0)
	l.version.Inc()
	return true
}

// AtCapacity reports whether the ledger holds its maximum container count.
func (l *Ledger) AtCapacity() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.containers) >= l.max
}

func (l *Ledger) Stats() LedgerStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := 0
	for _, c := range l.containers {
		total += len(c.Snaps)
	}
	return LedgerStats{
		ResidentContainers: len(l.containers),
		TotalSnaps:         total,
		Version:            l.version.Load(),
	}
}

// Version is incremented on every mutation; callers use it to key derived
// caches.
func (l *Ledger) Version() uint64 {
	return l.version.Load()
}

// evictLocked removes the container at index i. Eviction is always explicit
// and logged; the ledger never drops a container silently.
func (l *Ledger) evictLocked(i int) {
	victim := l.containers[i]
	l.containers = append(l.containers[:i], l.containers[i+1:]...)
	delete(l.byPermlink, victim.Permlink)
	l.logger.Infof(providers.TypeFeed, "Evicted container %s (%d snaps), capacity %d", victim.Permlink, len(victim.Snaps), l.max)
}

func sortSnapsDesc(snaps []models.Snap) {
	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].Created.After(snaps[j].Created.Time)
	})
}
