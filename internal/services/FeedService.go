package services

import (
	"errors"
	"fmt"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"snapfeed/internal/feed"
	"snapfeed/internal/models"
	"snapfeed/internal/providers"
	"snapfeed/internal/registry"
	"snapfeed/internal/structures"
	"sync"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// FeedPage is one filtered projection of a session's resident snaps.
// Error carries a following-lookup failure; coordinator failures travel
// inside Status.LastError.
type FeedPage struct {
	Session string                 `json:"session"`
	Filter  feed.FilterKind        `json:"filter"`
	Snaps   []models.Snap          `json:"snaps"`
	Count   int                    `json:"count"`
	Version uint64                 `json:"version"`
	Status  feed.CoordinatorStatus `json:"status"`
	Error   string                 `json:"error,omitempty"`
}

// FeedStatus is the outcome of a load-more or refresh call.
type FeedStatus struct {
	Session      string                 `json:"session"`
	Fetched      bool                   `json:"fetched"`
	Status       feed.CoordinatorStatus `json:"status"`
	Ledger       feed.LedgerStats       `json:"ledger"`
	CanFetchMore bool                   `json:"can_fetch_more"`
}

type SessionInfo struct {
	Session      string                 `json:"session"`
	User         string                 `json:"user,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	IdleSeconds  float64                `json:"idle_seconds"`
	Ledger       feed.LedgerStats       `json:"ledger"`
	Status       feed.CoordinatorStatus `json:"status"`
	CanFetchMore bool                   `json:"can_fetch_more"`
}

type FeedServiceInterface interface {
	CreateSession(user string) *SessionInfo
	CloseSession(id string) bool
	GetFeed(id string, kind feed.FilterKind) (*FeedPage, error)
	LoadMore(id string) (*FeedStatus, error)
	Refresh(id string) (*FeedStatus, error)
	SessionStats(id string) (*SessionInfo, error)
	Sessions() int
	TotalResident() (int, int)
	SweepIdle() int
	CloseAll()
}

// FeedService owns every live feed session. Each session carries its own
// ledger and coordinator, so two screens never race on shared feed state;
// the service only guards the session map itself.
type FeedService struct {
	conf      *structures.Config
	gateway   feed.Gateway
	following *registry.FollowingRegistry
	mute      *registry.MuteRegistry
	logger    providers.Logger
	metrics   providers.MetricsProviderInterface

	mu       sync.RWMutex
	sessions map[string]*feed.Session
}

func NewFeedService(
	conf *structures.Config,
	gateway feed.Gateway,
	following *registry.FollowingRegistry,
	mute *registry.MuteRegistry,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) FeedServiceInterface {
	return &FeedService{
		conf:      conf,
		gateway:   gateway,
		following: following,
		mute:      mute,
		logger:    logger,
		metrics:   metrics,
		sessions:  make(map[string]*feed.Session),
	}
}

func (fs *FeedService) CreateSession(user string) *SessionInfo {
	session := feed.NewSession(uuid.NewString(), user, fs.gateway, fs.conf, fs.logger)

	fs.mu.Lock()
	fs.sessions[session.ID] = session
	fs.mu.Unlock()

	fs.metrics.IncSessionsOpened()
	fs.logger.Infof(providers.TypeFeed, "Opened session %s for user %q", session.ID, user)
	return fs.info(session)
}

func (fs *FeedService) CloseSession(id string) bool {
	fs.mu.Lock()
	session, ok := fs.sessions[id]
	if ok {
		delete(fs.sessions, id)
	}
	fs.mu.Unlock()

	if !ok {
		return false
	}
	session.Close()
	fs.metrics.IncSessionsClosed()
	fs.logger.Infof(providers.TypeFeed, "Closed session %s", id)
	return true
}

// GetFeed projects the session's resident snaps through the requested
// filter. The first view of an empty session pulls the initial batch; after
// that, filter switches are pure in-memory work.
func (fs *FeedService) GetFeed(id string, kind feed.FilterKind) (*FeedPage, error) {
	session, err := fs.lookup(id)
	if err != nil {
		return nil, err
	}
	session.Touch()

	if session.Ledger.Stats().ResidentContainers == 0 && !session.Coordinator.Status().Exhausted {
		if _, err := session.Coordinator.FetchNext(session.Context()); err != nil {
			fs.metrics.IncFetches("initial", "error")
		} else {
			fs.metrics.IncFetches("initial", "ok")
		}
	}

	page := &FeedPage{
		Session: session.ID,
		Filter:  kind,
		Version: session.Ledger.Version(),
		Status:  session.Coordinator.Status(),
	}

	muted := fs.mute.Snapshot(session.Context())

	var following mapset.Set[string]
	if kind == feed.FilterFollowing && session.User != "" {
		following, err = fs.following.Snapshot(session.Context(), session.User)
		if err != nil {
			fs.logger.Errorf(providers.TypeFeed, "Following lookup failed for session %s: %v", session.ID, err)
			page.Error = fmt.Sprintf("following lookup failed: %v", err)
			page.Snaps = []models.Snap{}
			return page, nil
		}
	}

	page.Snaps = feed.Apply(session.Ledger.AllSnaps(), kind, following, muted, session.User)
	page.Count = len(page.Snaps)
	return page, nil
}

func (fs *FeedService) LoadMore(id string) (*FeedStatus, error) {
	session, err := fs.lookup(id)
	if err != nil {
		return nil, err
	}
	session.Touch()

	fetched, err := session.Coordinator.FetchNext(session.Context())
	fs.metrics.IncFetches("next", fetchOutcome(fetched, err))
	return fs.status(session, fetched), nil
}

func (fs *FeedService) Refresh(id string) (*FeedStatus, error) {
	session, err := fs.lookup(id)
	if err != nil {
		return nil, err
	}
	session.Touch()

	fetched, err := session.Coordinator.RefreshNewest(session.Context())
	fs.metrics.IncFetches("refresh", fetchOutcome(fetched, err))
	return fs.status(session, fetched), nil
}

func (fs *FeedService) SessionStats(id string) (*SessionInfo, error) {
	session, err := fs.lookup(id)
	if err != nil {
		return nil, err
	}
	return fs.info(session), nil
}

func (fs *FeedService) Sessions() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.sessions)
}

// TotalResident sums resident containers and snaps across all sessions.
func (fs *FeedService) TotalResident() (int, int) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	containers, snaps := 0, 0
	for _, session := range fs.sessions {
		stats := session.Ledger.Stats()
		containers += stats.ResidentContainers
		snaps += stats.TotalSnaps
	}
	return containers, snaps
}

// SweepIdle closes and removes every session idle longer than the session
// TTL. Returns the number of sessions removed.
func (fs *FeedService) SweepIdle() int {
	ttl := fs.conf.Feed.SessionTTL

	fs.mu.Lock()
	var victims []*feed.Session
	for id, session := range fs.sessions {
		if session.IdleFor() >= ttl {
			delete(fs.sessions, id)
			victims = append(victims, session)
		}
	}
	fs.mu.Unlock()

	for _, session := range victims {
		session.Close()
		fs.metrics.IncSessionsClosed()
		fs.logger.Infof(providers.TypeFeed, "Swept session %s after %s idle", session.ID, session.IdleFor().Round(time.Second))
	}
	return len(victims)
}

func (fs *FeedService) CloseAll() {
	fs.mu.Lock()
	sessions := make([]*feed.Session, 0, len(fs.sessions))
	for _, session := range fs.sessions {
		sessions = append(sessions, session)
	}
	fs.sessions = make(map[string]*feed.Session)
	fs.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
	if len(sessions) > 0 {
		fs.logger.Infof(providers.TypeFeed, "Closed %d sessions on shutdown", len(sessions))
	}
}

func (fs *FeedService) lookup(id string) (*feed.Session, error) {
	fs.mu.RLock()
	session, ok := fs.sessions[id]
	fs.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (fs *FeedService) status(session *feed.Session, fetched bool) *FeedStatus {
	return &FeedStatus{
		Session:      session.ID,
		Fetched:      fetched,
		Status:       session.Coordinator.Status(),
		Ledger:       session.Ledger.Stats(),
		CanFetchMore: session.Coordinator.CanFetchMore(),
	}
}

func (fs *FeedService) info(session *feed.Session) *SessionInfo {
	return &SessionInfo{
		Session:      session.ID,
		User:         session.User,
		CreatedAt:    session.CreatedAt,
		IdleSeconds:  session.IdleFor().Seconds(),
		Ledger:       session.Ledger.Stats(),
		Status:       session.Coordinator.Status(),
		CanFetchMore: session.Coordinator.CanFetchMore(),
	}
}

func fetchOutcome(fetched bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case !fetched:
		return "noop"
	default:
		return "ok"
	}
}
