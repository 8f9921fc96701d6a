package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Domenick1991/airreservation/config"
	"github.com/stretchr/testify/assert"
)

func TestFlightsKey(t *testing.T) {
	assert.Equal(t, "cache:flights:available", flightsKey("available"))
	assert.Equal(t, "cache:flights:*", flightsKey("*"))
}

func TestRedisCache_UnreachableServerReturnsError(t *testing.T) {
	client := NewRedisClient(config.RedisConfig{Addr: "127.0.0.1:1"})
	defer client.Close()
	c := NewRedisCache(client, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	flights, err := c.GetFlights(ctx, "available")
	assert.Error(t, err)
	assert.Nil(t, flights)
	assert.Error(t, c.SetFlights(ctx, "available", nil))
}
