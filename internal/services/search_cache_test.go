package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arden28/flygasal-api/pkg/pkfare"
)

type fakeRedis struct {
	values  map[string]string
	ttls    map[string]time.Duration
	readErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.readErr != nil {
		return redis.NewStringResult("", f.readErr)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedisSearchCache_RoundTrip(t *testing.T) {
	kv := newFakeRedis()
	cache := NewRedisSearchCache(kv, 5*time.Minute, quietLogger())
	offers := NormalizeOffers(roundTripPayload(), testNow)

	_, ok := cache.Get(context.Background(), "k")
	assert.False(t, ok)

	cache.Set(context.Background(), "k", offers)
	assert.Equal(t, 5*time.Minute, kv.ttls["k"])

	got, ok := cache.Get(context.Background(), "k")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, offers[0].SolutionID, got[0].SolutionID)
	assert.Equal(t, offers[0].PriceBreakdown.Total, got[0].PriceBreakdown.Total)
	assert.True(t, offers[0].DepartureTime.Equal(*got[0].DepartureTime))
}

func TestRedisSearchCache_Failures(t *testing.T) {
	kv := newFakeRedis()
	cache := NewRedisSearchCache(kv, time.Minute, quietLogger())

	kv.values["bad"] = "{not json"
	_, ok := cache.Get(context.Background(), "bad")
	assert.False(t, ok)

	kv.readErr = errors.New("connection refused")
	_, ok = cache.Get(context.Background(), "bad")
	assert.False(t, ok)
}

func TestSearchCacheKey(t *testing.T) {
	a := pkfare.SearchRequest{Adults: 1, SearchAirLegs: []pkfare.SearchAirLeg{{Origin: "NBO", Destination: "DXB", DepartureDate: "2030-03-01"}}}
	b := a
	b.SearchAirLegs = []pkfare.SearchAirLeg{{Origin: "NBO", Destination: "DXB", DepartureDate: "2030-03-02"}}

	ka, err := SearchCacheKey(a)
	require.NoError(t, err)
	ka2, err := SearchCacheKey(a)
	require.NoError(t, err)
	kb, err := SearchCacheKey(b)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ka, "flights:search:"))
	assert.Equal(t, ka, ka2)
	assert.NotEqual(t, ka, kb)
}

var _ SearchCache = (*RedisSearchCache)(nil)
