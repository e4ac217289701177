package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type cacheMetricsTestMetrics struct {
	hits   int
	misses int
}

func (m *cacheMetricsTestMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (m *cacheMetricsTestMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *cacheMetricsTestMetrics) IncCacheHits()                                    { m.hits++ }
func (m *cacheMetricsTestMetrics) IncCacheMisses()                                  { m.misses++ }
func (m *cacheMetricsTestMetrics) IncGatewayCalls(_ string, _ string, _ string)     {}
func (m *cacheMetricsTestMetrics) ObserveGatewayDuration(_ string, _ time.Duration) {}
func (m *cacheMetricsTestMetrics) IncFetches(_ string, _ string)                    {}
func (m *cacheMetricsTestMetrics) IncSessionsOpened()                               {}
func (m *cacheMetricsTestMetrics) IncSessionsClosed()                               {}
func (m *cacheMetricsTestMetrics) SetSessionsActive(_ int)                          {}
func (m *cacheMetricsTestMetrics) SetContainersResident(_ int)                      {}
func (m *cacheMetricsTestMetrics) SetSnapsResident(_ int)                           {}

type cacheMetricsTestInner struct {
	data    map[string][]byte
	cleared bool
}

func (c *cacheMetricsTestInner) Get(key string) ([]byte, bool) {
	v, ok := c.data[key]
	return v, ok
}
func (c *cacheMetricsTestInner) Set(key string, value []byte) {
	c.data[key] = value
}
func (c *cacheMetricsTestInner) Clear() {
	c.data = map[string][]byte{}
	c.cleared = true
}
func (c *cacheMetricsTestInner) EntryCount() int64 {
	return int64(len(c.data))
}

func TestMetricsCacheProvider_Hit(t *testing.T) {
	inner := &cacheMetricsTestInner{data: map[string][]byte{"key1": []byte("val1")}}
	metrics := &cacheMetricsTestMetrics{}
	cache := &MetricsCacheProvider{inner: inner, metrics: metrics}

	val, ok := cache.Get("key1")
	assert.True(t, ok)
	assert.Equal(t, []byte("val1"), val)
	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 0, metrics.misses)
}

func TestMetricsCacheProvider_Miss(t *testing.T) {
	inner := &cacheMetricsTestInner{data: map[string][]byte{}}
	metrics := &cacheMetricsTestMetrics{}
	cache := &MetricsCacheProvider{inner: inner, metrics: metrics}

	val, ok := cache.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, val)
	assert.Equal(t, 0, metrics.hits)
	assert.Equal(t, 1, metrics.misses)
}

func TestMetricsCacheProvider_SetDelegates(t *testing.T) {
	inner := &cacheMetricsTestInner{data: map[string][]byte{}}
	metrics := &cacheMetricsTestMetrics{}
	cache := &MetricsCacheProvider{inner: inner, metrics: metrics}

	cache.Set("key2", []byte("val2"))

	val, ok := inner.Get("key2")
	assert.True(t, ok)
	assert.Equal(t, []byte("val2"), val)
}

func TestMetricsCacheProvider_ClearDelegates(t *testing.T) {
	inner := &cacheMetricsTestInner{data: map[string][]byte{"a": []byte("1")}}
	metrics := &cacheMetricsTestMetrics{}
	cache := &MetricsCacheProvider{inner: inner, metrics: metrics}

	assert.Equal(t, int64(1), cache.EntryCount())
	cache.Clear()
	assert.True(t, inner.cleared)
	assert.Equal(t, int64(0), cache.EntryCount())
}

func TestMetricsCacheProvider_MultipleOperations(t *testing.T) {
	inner := &cacheMetricsTestInner{data: map[string][]byte{"a": []byte("1")}}
	metrics := &cacheMetricsTestMetrics{}
	cache := &MetricsCacheProvider{inner: inner, metrics: metrics}

	cache.Get("a") // hit
	cache.Get("b") // miss
	cache.Get("a") // hit
	cache.Get("c") // miss

	assert.Equal(t, 2, metrics.hits)
	assert.Equal(t, 2, metrics.misses)
}

func TestNewInstrumentedCacheProvider_DisabledSkipsWrapper(t *testing.T) {
	logger := &cacheTestLogger{}
	metrics := &cacheMetricsTestMetrics{}
	c := NewInstrumentedCacheProvider(cacheConfig(false, 10, time.Second), logger, metrics)

	assert.IsType(t, &noopCache{}, c)

	c.Get("anything")
	assert.Equal(t, 0, metrics.misses, "disabled cache should not count phantom misses")
}

func TestNewInstrumentedCacheProvider_EnabledWraps(t *testing.T) {
	logger := &cacheTestLogger{}
	metrics := &cacheMetricsTestMetrics{}
	c := NewInstrumentedCacheProvider(cacheConfig(true, 1, time.Second), logger, metrics)

	assert.IsType(t, &MetricsCacheProvider{}, c)

	c.Get("anything")
	assert.Equal(t, 1, metrics.misses)
}
