package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Domenick1991/airreservation/config"
	"github.com/Domenick1991/airreservation/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache holds read-mostly flight listings. Seat counts are never served
// from it when booking; only the listing endpoints read through it.
type RedisCache struct {
	client     redis.UniversalClient
	flightsTTL time.Duration
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

func NewRedisCache(client redis.UniversalClient, flightsTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, flightsTTL: flightsTTL}
}

// GetFlights returns nil, nil on a miss.
func (c *RedisCache) GetFlights(ctx context.Context, list string) ([]domain.Flight, error) {
	data, err := c.client.Get(ctx, flightsKey(list)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var flights []domain.Flight
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

func (c *RedisCache) SetFlights(ctx context.Context, list string, flights []domain.Flight) error {
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightsKey(list), payload, c.flightsTTL).Err()
}

// InvalidateFlights drops every cached listing after a seat count or schedule change.
func (c *RedisCache) InvalidateFlights(ctx context.Context) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, flightsKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func flightsKey(list string) string {
	return "cache:flights:" + list
}
