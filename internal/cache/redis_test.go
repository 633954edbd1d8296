package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/pvoronin/busbooking/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRedisCache_SearchResultsRoundTrip(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCacheWithClient(client, 30*time.Second)

	views := []domain.TripView{{TripID: 2, Origin: "Lisbon", Destination: "Porto", AvailableSeats: 3}}
	payload, err := json.Marshal(views)
	assert.NoError(t, err)

	mock.ExpectSet("cache:search:Lisbon|Porto|1", payload, 30*time.Second).SetVal("OK")
	mock.ExpectGet("cache:search:Lisbon|Porto|1").SetVal(string(payload))

	err = c.SetSearchResults(context.Background(), "Lisbon|Porto|1", views)
	assert.NoError(t, err)

	got, err := c.GetSearchResults(context.Background(), "Lisbon|Porto|1")
	assert.NoError(t, err)
	assert.Equal(t, views, got)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_GetSearchResults_MissIsNotAnError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCacheWithClient(client, 30*time.Second)

	mock.ExpectGet("cache:search:k").RedisNil()

	got, err := c.GetSearchResults(context.Background(), "k")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCache_AcquireRunLock(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCacheWithClient(client, 30*time.Second)

	mock.ExpectSetNX("lock:reconciler", "locked", 5*time.Minute).SetVal(true)

	ok, err := c.AcquireRunLock(context.Background(), 5*time.Minute)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisCache_AcquireRunLock_AlreadyHeld(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCacheWithClient(client, 30*time.Second)

	mock.ExpectSetNX("lock:reconciler", "locked", 5*time.Minute).SetVal(false)

	ok, err := c.AcquireRunLock(context.Background(), 5*time.Minute)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_ReleaseRunLock(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCacheWithClient(client, 30*time.Second)

	mock.ExpectDel("lock:reconciler").SetVal(1)

	assert.NoError(t, c.ReleaseRunLock(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
