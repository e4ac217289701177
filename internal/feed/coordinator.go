package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"snapfeed/internal/models"
	"snapfeed/internal/providers"
	"snapfeed/internal/structures"
)

// Gateway is the narrow view of the chain RPC client the coordinator needs.
type Gateway interface {
	ListContainerPosts(ctx context.Context, limit int, cursor *models.Cursor) ([]models.ContainerRef, error)
	ListReplies(ctx context.Context, author string, permlink string) ([]models.Snap, error)
}

// State of a coordinator as observed between operations.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
)

// CoordinatorStatus is a point-in-time snapshot for API responses and logs.
type CoordinatorStatus struct {
	State     State  `json:"state"`
	Exhausted bool   `json:"exhausted"`
	LastError string `json:"last_error,omitempty"`
}

// Coordinator drives pagination over container posts and feeds results into
// its ledger. A single in-flight fetch is allowed at a time; concurrent
// FetchNext or RefreshNewest calls while one is running are no-ops, the
// in-flight fetch is authoritative. Network failures are converted to state
// and never clear already-cached data.
type Coordinator struct {
	gateway Gateway
	ledger  *Ledger
	logger  providers.Logger

	limit  int
	window time.Duration

	fetching  atomic.Bool
	exhausted atomic.Bool

	mu      sync.Mutex
	lastErr string
}

func NewCoordinator(gateway Gateway, ledger *Ledger, conf *structures.Config, logger providers.Logger) *Coordinator {
	limit := conf.Hive.FetchLimit
	if limit < 1 {
		limit = 1
	}
	return &Coordinator{
		gateway: gateway,
		ledger:  ledger,
		logger:  logger,
		limit:   limit,
		window:  conf.Feed.RefreshWindow,
	}
}

// FetchNext loads up to limit containers older than the ledger's last cursor,
// or the newest containers when the ledger is empty, together with their full
// reply lists, and upserts them. The ledger is written only after every
// network response of the call has resolved. Returns true when at least one
// container was written. A zero-container result marks the older direction
// exhausted; that is a terminal signal, not an error.
func (c *Coordinator) FetchNext(ctx context.Context) (bool, error) {
	if !c.fetching.CompareAndSwap(false, true) {
		return false, nil
	}
	defer c.fetching.Store(false)

	if c.exhausted.Load() {
		return false, nil
	}
	if !c.canFetchMore() {
		c.logger.Debugf(providers.TypeFeed, "Skipping pagination, newest container still inside the %s window", c.window)
		return false, nil
	}

	cursor, hasCursor := c.ledger.LastCursor()
	limit := c.limit
	var cursorArg *models.Cursor
	if hasCursor {
		// Bridge queries echo the cursor post as the first result, so ask
		// for one extra and drop the echo below.
		cursorArg = &cursor
		limit++
	}

	refs, err := c.gateway.ListContainerPosts(ctx, limit, cursorArg)
	if err != nil {
		return false, c.fail(fmt.Errorf("failed to list containers: %w", err))
	}

	fresh := make([]models.ContainerRef, 0, c.limit)
	for _, ref := range refs {
		if hasCursor && cursor.Matches(ref.Author, ref.Permlink) {
			continue
		}
		fresh = append(fresh, ref)
		if len(fresh) == c.limit {
			break
		}
	}

	if len(fresh) == 0 {
		c.exhausted.Store(true)
		c.clearError()
		c.logger.Infof(providers.TypeFeed, "No containers past cursor %s/%s, pagination exhausted", cursor.Author, cursor.Permlink)
		return false, nil
	}

	containers := make([]*models.Container, 0, len(fresh))
	for _, ref := range fresh {
		snaps, err := c.gateway.ListReplies(ctx, ref.Author, ref.Permlink)
		if err != nil {
			// One failed reply list must not abort the batch. The container
			// is kept with zero snaps so the cursor still advances past it.
			c.logger.Warnf(providers.TypeFeed, "Reply fetch for %s/%s failed, keeping container empty: %v", ref.Author, ref.Permlink, err)
			snaps = nil
		}
		containers = append(containers, &models.Container{
			Author:    ref.Author,
			Permlink:  ref.Permlink,
			Created:   ref.Created,
			FetchedAt: time.Now(),
			Snaps:     snaps,
		})
	}

	for _, container := range containers {
		c.ledger.Upsert(container)
		c.logger.Debugf(providers.TypeFeed, "Fetched container %s with %d snaps", container.Permlink, container.SnapCount())
	}
	c.clearError()
	return true, nil
}

// RefreshNewest fetches the single newest container and folds it into the
// ledger: an already-resident permlink is updated in place, a brand-new one
// is prepended at the feed top. A failed reply fetch here leaves the ledger
// untouched rather than overwriting resident snaps with an empty list.
func (c *Coordinator) RefreshNewest(ctx context.Context) (bool, error) {
	if !c.fetching.CompareAndSwap(false, true) {
		return false, nil
	}
	defer c.fetching.Store(false)

	refs, err := c.gateway.ListContainerPosts(ctx, 1, nil)
	if err != nil {
		return false, c.fail(fmt.Errorf("failed to list newest container: %w", err))
	}
	if len(refs) == 0 {
		c.clearError()
		c.logger.Debugf(providers.TypeFeed, "Refresh found no containers upstream")
		return false, nil
	}

	ref := refs[0]
	snaps, err := c.gateway.ListReplies(ctx, ref.Author, ref.Permlink)
	if err != nil {
		return false, c.fail(fmt.Errorf("failed to fetch replies for %s/%s: %w", ref.Author, ref.Permlink, err))
	}

	c.ledger.PrependNewest(&models.Container{
		Author:    ref.Author,
		Permlink:  ref.Permlink,
		Created:   ref.Created,
		FetchedAt: time.Now(),
		Snaps:     snaps,
	})
	c.clearError()
	c.logger.Debugf(providers.TypeFeed, "Refreshed container %s with %d snaps", ref.Permlink, len(snaps))
	return true, nil
}

// CanFetchMore reports whether a pagination continuation is worthwhile:
// false once the older direction is exhausted, and false while the ledger is
// at capacity with its newest container fetched inside the rate window.
func (c *Coordinator) CanFetchMore() bool {
	if c.exhausted.Load() {
		return false
	}
	return c.canFetchMore()
}

func (c *Coordinator) canFetchMore() bool {
	if !c.ledger.AtCapacity() {
		return true
	}
	fetchedAt, ok := c.ledger.NewestFetchedAt()
	if !ok {
		return true
	}
	return time.Since(fetchedAt) >= c.window
}

func (c *Coordinator) Status() CoordinatorStatus {
	c.mu.Lock()
	lastErr := c.lastErr
	c.mu.Unlock()

	state := StateIdle
	if c.fetching.Load() {
		state = StateFetching
	}
	return CoordinatorStatus{
		State:     state,
		Exhausted: c.exhausted.Load(),
		LastError: lastErr,
	}
}

// fail records err as the coordinator's recoverable error state and returns
// it. Cached data is left as is.
func (c *Coordinator) fail(err error) error {
	c.mu.Lock()
	c.lastErr = err.Error()
	c.mu.Unlock()
	c.logger.Errorf(providers.TypeFeed, "Fetch failed: %v", err)
	return err
}

func (c *Coordinator) clearError() {
	c.mu.Lock()
	c.lastErr = ""
	c.mu.Unlock()
}
