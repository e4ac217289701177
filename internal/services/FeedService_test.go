package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"snapfeed/internal/feed"
	"snapfeed/internal/models"
	"snapfeed/internal/registry"
	"snapfeed/internal/structures"
	"snapfeed/internal/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var serviceBase = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func serviceConf() *structures.Config {
	return &structures.Config{
		Hive: structures.HiveConfig{FetchLimit: 1},
		Feed: structures.FeedConfig{
			MaxContainers: 4,
			RefreshWindow: 5 * time.Minute,
			SessionTTL:    30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Registry: structures.RegistryConfig{
			FollowingTTL: 10 * time.Minute,
			MuteTTL:      15 * time.Minute,
		},
	}
}

type serviceFixture struct {
	conf    *structures.Config
	gw      *testutil.MockGateway
	logger  *testutil.MockLogger
	metrics *testutil.MockMetrics
	mute    *registry.MuteRegistry
	service FeedServiceInterface
}

func newFixture(conf *structures.Config) *serviceFixture {
	gw := &testutil.MockGateway{}
	logger := &testutil.MockLogger{}
	metrics := testutil.NewMockMetrics()
	mute := registry.NewMuteRegistry(conf, logger)
	following := registry.NewFollowingRegistry(gw, conf, logger)
	return &serviceFixture{
		conf:    conf,
		gw:      gw,
		logger:  logger,
		metrics: metrics,
		mute:    mute,
		service: NewFeedService(conf, gw, following, mute, logger, metrics),
	}
}

// stubFeed wires the gateway with one container of two snaps and nothing
// older.
func (f *serviceFixture) stubFeed() {
	f.gw.ListContainerPostsFn = func(_ context.Context, _ int, cursor *models.Cursor) ([]models.ContainerRef, error) {
		if cursor == nil {
			return []models.ContainerRef{{Author: "peak.snaps", Permlink: "re-1", Created: models.NewHiveTime(serviceBase)}}, nil
		}
		return nil, nil
	}
	f.gw.ListRepliesFn = func(_ context.Context, _, _ string) ([]models.Snap, error) {
		return []models.Snap{
			{Author: "alice", Permlink: "s1", Body: "hi", Created: models.NewHiveTime(serviceBase)},
			{Author: "bob", Permlink: "s2", Body: "yo", Created: models.NewHiveTime(serviceBase.Add(-time.Minute))},
		}, nil
	}
}

func TestFeedService_SessionLifecycle(t *testing.T) {
	f := newFixture(serviceConf())

	info := f.service.CreateSession("alice")
	require.NotEmpty(t, info.Session)
	assert.Equal(t, "alice", info.User)
	assert.Equal(t, 1, f.service.Sessions())
	assert.Equal(t, 1, f.metrics.SessionsOpened)

	got, err := f.service.SessionStats(info.Session)
	require.NoError(t, err)
	assert.Equal(t, info.Session, got.Session)

	assert.True(t, f.service.CloseSession(info.Session))
	assert.Equal(t, 0, f.service.Sessions())
	assert.Equal(t, 1, f.metrics.SessionsClosed)
	assert.False(t, f.service.CloseSession(info.Session))

	_, err = f.service.SessionStats(info.Session)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestFeedService_LazyFirstFetch(t *testing.T) {
	f := newFixture(serviceConf())
	f.stubFeed()

	info := f.service.CreateSession("")
	assert.Equal(t, int32(0), f.gw.ContainerCalls.Load())

	page, err := f.service.GetFeed(info.Session, feed.FilterNewest)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, int32(1), f.gw.ContainerCalls.Load())

	// Filter switches stay in memory once data is resident.
	page, err = f.service.GetFeed(info.Session, feed.FilterTrending)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, int32(1), f.gw.ContainerCalls.Load())
}

func TestFeedService_GetFeedUnknownSession(t *testing.T) {
	f := newFixture(serviceConf())

	_, err := f.service.GetFeed("no-such-session", feed.FilterNewest)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestFeedService_FollowingProjection(t *testing.T) {
	f := newFixture(serviceConf())
	f.stubFeed()
	f.gw.GetFollowingFn = func(_ context.Context, account string) ([]string, error) {
		assert.Equal(t, "viewer", account)
		return []string{"alice"}, nil
	}

	info := f.service.CreateSession("viewer")
	page, err := f.service.GetFeed(info.Session, feed.FilterFollowing)
	require.NoError(t, err)
	require.Equal(t, 1, page.Count)
	assert.Equal(t, "alice", page.Snaps[0].Author)

	// The following set is cached across calls.
	_, err = f.service.GetFeed(info.Session, feed.FilterFollowing)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.gw.FollowingCalls.Load())
}

func TestFeedService_FollowingFailureSurfaces(t *testing.T) {
	f := newFixture(serviceConf())
	f.stubFeed()
	f.gw.GetFollowingFn = func(_ context.Context, _ string) ([]string, error) {
		return nil, errors.New("nodes down")
	}

	info := f.service.CreateSession("viewer")
	page, err := f.service.GetFeed(info.Session, feed.FilterFollowing)
	require.NoError(t, err)
	assert.Contains(t, page.Error, "following lookup failed")
	assert.Empty(t, page.Snaps)
}

func TestFeedService_FollowingWithoutUser(t *testing.T) {
	f := newFixture(serviceConf())
	f.stubFeed()

	info := f.service.CreateSession("")
	page, err := f.service.GetFeed(info.Session, feed.FilterFollowing)
	require.NoError(t, err)
	assert.Empty(t, page.Snaps)
	assert.Equal(t, int32(0), f.gw.FollowingCalls.Load())
}

func TestFeedService_MineProjection(t *testing.T) {
	f := newFixture(serviceConf())
	f.stubFeed()

	mine := f.service.CreateSession("bob")
	page, err := f.service.GetFeed(mine.Session, feed.FilterMine)
	require.NoError(t, err)
	require.Equal(t, 1, page.Count)
	assert.Equal(t, "bob", page.Snaps[0].Author)

	anon := f.service.CreateSession("")
	page, err = f.service.GetFeed(anon.Session, feed.FilterMine)
	require.NoError(t, err)
	assert.Empty(t, page.Snaps)
}

func TestFeedService_MutedAuthorsSuppressed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"users":["bob"]}`)
	}))
	defer srv.Close()

	conf := serviceConf()
	conf.Registry.MuteURL = srv.URL
	f := newFixture(conf)
	f.stubFeed()

	info := f.service.CreateSession("")
	page, err := f.service.GetFeed(info.Session, feed.FilterNewest)
	require.NoError(t, err)
	require.Equal(t, 1, page.Count)
	assert.Equal(t, "alice", page.Snaps[0].Author)
}

func TestFeedService_LoadMoreReportsErrorInStatus(t *testing.T) {
	f := newFixture(serviceConf())
	f.stubFeed()

	info := f.service.CreateSession("")
	_, err := f.service.GetFeed(info.Session, feed.FilterNewest)
	require.NoError(t, err)

	f.gw.ListContainerPostsFn = func(_ context.Context, _ int, _ *models.Cursor) ([]models.ContainerRef, error) {
		return nil, errors.New("all nodes down")
	}

	status, err := f.service.LoadMore(info.Session)
	require.NoError(t, err)
	assert.False(t, status.Fetched)
	assert.Contains(t, status.Status.LastError, "all nodes down")
	// Cached data survives the failure.
	assert.Equal(t, 1, status.Ledger.ResidentContainers)
	assert.Equal(t, 2, status.Ledger.TotalSnaps)
	assert.Equal(t, 1, f.metrics.Fetches["next:error"])
}

func TestFeedService_LoadMoreAdvances(t *testing.T) {
	f := newFixture(serviceConf())
	f.gw.ListContainerPostsFn = func(_ context.Context, _ int, cursor *models.Cursor) ([]models.ContainerRef, error) {
		if cursor == nil {
			return []models.ContainerRef{{Author: "peak.snaps", Permlink: "re-2", Created: models.NewHiveTime(serviceBase)}}, nil
		}
		return []models.ContainerRef{{Author: "peak.snaps", Permlink: "re-1", Created: models.NewHiveTime(serviceBase.Add(-time.Hour))}}, nil
	}
	f.gw.ListRepliesFn = func(_ context.Context, _, permlink string) ([]models.Snap, error) {
		return []models.Snap{{Author: "alice", Permlink: permlink + "-snap", Created: models.NewHiveTime(serviceBase)}}, nil
	}

	info := f.service.CreateSession("")
	_, err := f.service.GetFeed(info.Session, feed.FilterNewest)
	require.NoError(t, err)

	status, err := f.service.LoadMore(info.Session)
	require.NoError(t, err)
	assert.True(t, status.Fetched)
	assert.Equal(t, 2, status.Ledger.ResidentContainers)
	assert.Equal(t, 1, f.metrics.Fetches["next:ok"])
}

func TestFeedService_RefreshFoldsNewContainer(t *testing.T) {
	f := newFixture(serviceConf())
	newest := "re-1"
	f.gw.ListContainerPostsFn = func(_ context.Context, _ int, cursor *models.Cursor) ([]models.ContainerRef, error) {
		if cursor == nil {
			return []models.ContainerRef{{Author: "peak.snaps", Permlink: newest, Created: models.NewHiveTime(serviceBase)}}, nil
		}
		return nil, nil
	}
	f.gw.ListRepliesFn = func(_ context.Context, _, permlink string) ([]models.Snap, error) {
		return []models.Snap{{Author: "alice", Permlink: permlink + "-snap", Created: models.NewHiveTime(serviceBase)}}, nil
	}

	info := f.service.CreateSession("")
	_, err := f.service.GetFeed(info.Session, feed.FilterNewest)
	require.NoError(t, err)

	newest = "re-2"
	status, err := f.service.Refresh(info.Session)
	require.NoError(t, err)
	assert.True(t, status.Fetched)
	assert.Equal(t, 2, status.Ledger.ResidentContainers)
	assert.Equal(t, 1, f.metrics.Fetches["refresh:ok"])
}

func TestFeedService_SweepIdle(t *testing.T) {
	conf := serviceConf()
	conf.Feed.SessionTTL = time.Nanosecond
	f := newFixture(conf)

	f.service.CreateSession("a")
	f.service.CreateSession("b")
	require.Equal(t, 2, f.service.Sessions())

	swept := f.service.SweepIdle()
	assert.Equal(t, 2, swept)
	assert.Equal(t, 0, f.service.Sessions())
	assert.Equal(t, 2, f.metrics.SessionsClosed)
}

func TestFeedService_SweepKeepsActiveSessions(t *testing.T) {
	f := newFixture(serviceConf())

	f.service.CreateSession("a")
	assert.Equal(t, 0, f.service.SweepIdle())
	assert.Equal(t, 1, f.service.Sessions())
}

func TestFeedService_TotalResident(t *testing.T) {
	f := newFixture(serviceConf())
	f.stubFeed()

	a := f.service.CreateSession("")
	b := f.service.CreateSession("")

	_, err := f.service.GetFeed(a.Session, feed.FilterNewest)
	require.NoError(t, err)

	containers, snaps := f.service.TotalResident()
	assert.Equal(t, 1, containers)
	assert.Equal(t, 2, snaps)

	_, err = f.service.GetFeed(b.Session, feed.FilterNewest)
	require.NoError(t, err)

	containers, snaps = f.service.TotalResident()
	assert.Equal(t, 2, containers)
	assert.Equal(t, 4, snaps)
}

func TestFeedService_CloseAll(t *testing.T) {
	f := newFixture(serviceConf())
	f.service.CreateSession("a")
	f.service.CreateSession("b")

	f.service.CloseAll()
	assert.Equal(t, 0, f.service.Sessions())
}
