package devserver

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Presence tracks which users hold a live socket. With a redis client it is
// shared across devserver instances; without one it falls back to an
// in-process map. Counts, not booleans: one user may hold several sockets.
type Presence struct {
	redis *redis.Client

	mu    sync.Mutex
	local map[string]int
}

func NewPresence(redisClient *redis.Client) *Presence {
	return &Presence{redis: redisClient, local: make(map[string]int)}
}

func presenceKey(userID string) string {
	return "presence:" + userID
}

func (p *Presence) Connect(ctx context.Context, userID string) {
	if p.redis != nil {
		if err := p.redis.Incr(ctx, presenceKey(userID)).Err(); err != nil {
			log.Printf("presence incr failed: %v", err)
		}
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.local[userID]++
}

func (p *Presence) Disconnect(ctx context.Context, userID string) {
	if p.redis != nil {
		n, err := p.redis.Decr(ctx, presenceKey(userID)).Result()
		if err != nil {
			log.Printf("presence decr failed: %v", err)
			return
		}
		if n <= 0 {
			p.redis.Del(ctx, presenceKey(userID))
		}
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.local[userID] <= 1 {
		delete(p.local, userID)
	} else {
		p.local[userID]--
	}
}

func (p *Presence) IsConnected(ctx context.Context, userID string) bool {
	if p.redis != nil {
		n, err := p.redis.Get(ctx, presenceKey(userID)).Int64()
		if err != nil {
			return false
		}
		return n > 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.local[userID] > 0
}
