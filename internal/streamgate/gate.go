// Package streamgate answers one question for the command path: is the
// stream live right now. While live, the free economy is closed and play
// costs channel points; the bot marks those requests and bypasses the gate.
//
// Liveness is a DB bit per platform, optionally fronted by a short-TTL
// Redis cache. The cache is best effort: any Redis failure falls through
// to Postgres and the gate keeps working without it.
package streamgate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/db"
	"github.com/grindcity/economy-engine/pkg/econerr"
)

const (
	liveKey  = "econ:stream:live"
	cacheTTL = 5 * time.Second
)

// Gate reads and caches the liveness bit. rdb may be nil; the gate then
// reads Postgres on every call.
type Gate struct {
	store *db.Store
	rdb   *redis.Client
	log   *zap.Logger
}

func NewGate(store *db.Store, rdb *redis.Client, log *zap.Logger) *Gate {
	return &Gate{store: store, rdb: rdb, log: log.Named("streamgate")}
}

// ConnectRedis dials the cache and verifies it answers. Callers treat a nil
// client as "no cache" rather than an error worth dying over.
func ConnectRedis(addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     20,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping (%s): %w", addr, err)
	}
	return rdb, nil
}

// IsLive reports whether any platform session is active. Cache hits skip
// Postgres entirely; misses and cache errors read the table and repopulate.
func (g *Gate) IsLive(ctx context.Context) (bool, error) {
	if g.rdb != nil {
		val, err := g.rdb.Get(ctx, liveKey).Result()
		switch {
		case err == nil:
			return val == "1", nil
		case err != redis.Nil:
			g.log.Warn("liveness cache read failed", zap.Error(err))
		}
	}

	live, err := g.store.AnyStreamActive(ctx, g.store.Pool())
	if err != nil {
		return false, econerr.Wrap(err, "reading stream liveness")
	}

	if g.rdb != nil {
		val := "0"
		if live {
			val = "1"
		}
		if err := g.rdb.Set(ctx, liveKey, val, cacheTTL).Err(); err != nil {
			g.log.Warn("liveness cache write failed", zap.Error(err))
		}
	}
	return live, nil
}

// RequireOffline fails with a Policy error while the stream is live. The
// bypass flag is for channel-point redemptions, which paid already.
func (g *Gate) RequireOffline(ctx context.Context, bypass bool) error {
	if bypass {
		return nil
	}
	live, err := g.IsLive(ctx)
	if err != nil {
		return err
	}
	if live {
		return econerr.New(econerr.Policy, econerr.CodeStreamLive,
			"the stream is live; spend channel points to play")
	}
	return nil
}

// SetLive upserts the liveness flag for one platform inside the caller's
// transaction. Call Invalidate after the transaction commits, not before:
// an early invalidation lets a concurrent read repopulate the cache from
// the pre-commit row.
func (g *Gate) SetLive(ctx context.Context, q db.Querier, platform string, active bool) error {
	if err := g.store.SetStreamActive(ctx, q, platform, active); err != nil {
		return econerr.Wrap(err, "updating stream session")
	}
	return nil
}

// Invalidate drops the cached bit so the next IsLive reads Postgres.
func (g *Gate) Invalidate(ctx context.Context) {
	if g.rdb == nil {
		return
	}
	if err := g.rdb.Del(ctx, liveKey).Err(); err != nil {
		g.log.Warn("liveness cache invalidation failed", zap.Error(err))
	}
}

// Sessions lists per-platform liveness for the admin view.
func (g *Gate) Sessions(ctx context.Context) ([]SessionView, error) {
	rows, err := g.store.ListStreamSessions(ctx, g.store.Pool())
	if err != nil {
		return nil, econerr.Wrap(err, "listing stream sessions")
	}
	out := make([]SessionView, 0, len(rows))
	for _, ss := range rows {
		out = append(out, SessionView{
			Platform:  string(ss.Platform),
			IsActive:  ss.IsActive,
			UpdatedAt: ss.UpdatedAt,
		})
	}
	return out, nil
}

// SessionView is the admin-facing shape of one platform session.
type SessionView struct {
	Platform  string    `json:"platform"`
	IsActive  bool      `json:"isActive"`
	UpdatedAt time.Time `json:"updatedAt"`
}
