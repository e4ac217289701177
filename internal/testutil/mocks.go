package testutil

import (
	"context"
	"go.uber.org/atomic"
	"snapfeed/internal/models"
	"snapfeed/internal/providers"
	"sync"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Entries returns a copy of everything logged so far.
func (m *MockLogger) Entries() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LogEntry, len(m.Logs))
	copy(out, m.Logs)
	return out
}

// MockGateway covers the gateway methods consumed by the fetch coordinator
// and the following registry, with injectable behavior per method and
// race-safe call counters.
type MockGateway struct {
	ListContainerPostsFn func(ctx context.Context, limit int, cursor *models.Cursor) ([]models.ContainerRef, error)
	ListRepliesFn        func(ctx context.Context, author string, permlink string) ([]models.Snap, error)
	GetFollowingFn       func(ctx context.Context, account string) ([]string, error)

	ContainerCalls atomic.Int32
	ReplyCalls     atomic.Int32
	FollowingCalls atomic.Int32
}

func (m *MockGateway) ListContainerPosts(ctx context.Context, limit int, cursor *models.Cursor) ([]models.ContainerRef, error) {
	m.ContainerCalls.Inc()
	if m.ListContainerPostsFn != nil {
		return m.ListContainerPostsFn(ctx, limit, cursor)
	}
	return nil, nil
}

func (m *MockGateway) ListReplies(ctx context.Context, author string, permlink string) ([]models.Snap, error) {
	m.ReplyCalls.Inc()
	if m.ListRepliesFn != nil {
		return m.ListRepliesFn(ctx, author, permlink)
	}
	return nil, nil
}

func (m *MockGateway) GetFollowing(ctx context.Context, account string) ([]string, error) {
	m.FollowingCalls.Inc()
	if m.GetFollowingFn != nil {
		return m.GetFollowingFn(ctx, account)
	}
	return nil, nil
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data = make(map[string][]byte)
}

func (m *MockCache) EntryCount() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.Data))
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu                 sync.Mutex
	Requests           map[string]int
	CacheHits          int
	CacheMisses        int
	GatewayCalls       map[string]int
	Fetches            map[string]int
	SessionsOpened     int
	SessionsClosed     int
	SessionsActive     int
	ContainersResident int
	SnapsResident      int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Requests:     make(map[string]int),
		GatewayCalls: make(map[string]int),
		Fetches:      make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(endpoint string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests[endpoint]++
}

func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}

func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *MockMetrics) IncGatewayCalls(method string, _ string, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GatewayCalls[method+":"+outcome]++
}

func (m *MockMetrics) ObserveGatewayDuration(_ string, _ time.Duration) {}

func (m *MockMetrics) IncFetches(kind string, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fetches[kind+":"+outcome]++
}

func (m *MockMetrics) IncSessionsOpened() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SessionsOpened++
}

func (m *MockMetrics) IncSessionsClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SessionsClosed++
}

func (m *MockMetrics) SetSessionsActive(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SessionsActive = count
}

func (m *MockMetrics) SetContainersResident(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ContainersResident = count
}

func (m *MockMetrics) SetSnapsResident(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SnapsResident = count
}
