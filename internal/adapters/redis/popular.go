package redisad

import (
	"context"

	"github.com/redis/go-redis/v9"

	"aqi_relay/internal/domain"
)

const popularKey = "aqi:popular"

// Popular keeps a per-city lookup count in one sorted set.
type Popular struct {
	c   *redis.Client
	key string
}

func New(addr, pass string, db int) *Popular {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}))
}

func NewWithClient(c *redis.Client) *Popular {
	return &Popular{c: c, key: popularKey}
}

func (p *Popular) Ping(ctx context.Context) error { return p.c.Ping(ctx).Err() }

func (p *Popular) Close() error { return p.c.Close() }

func (p *Popular) Incr(ctx context.Context, city string) error {
	return p.c.ZIncrBy(ctx, p.key, 1, city).Err()
}

// Top returns up to n cities, highest count first. Ties break on city name.
func (p *Popular) Top(ctx context.Context, n int) ([]domain.CityCount, error) {
	if n <= 0 {
		return []domain.CityCount{}, nil
	}
	zs, err := p.c.ZRevRangeWithScores(ctx, p.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.CityCount, 0, len(zs))
	for _, z := range zs {
		city, _ := z.Member.(string)
		out = append(out, domain.CityCount{City: city, Count: int64(z.Score)})
	}
	return out, nil
}
