package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ReviewLock serialises reviewers working on the same application.
type ReviewLock interface {
	// Acquire returns ErrReviewInProgress when another owner holds key.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisReviewLock uses SET NX with a random owner token so a lock that
// expired and was taken over is never released by its previous owner.
type RedisReviewLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisReviewLock(client *redis.Client, ttl time.Duration) *RedisReviewLock {
	return &RedisReviewLock{client: client, ttl: ttl}
}

func (l *RedisReviewLock) Acquire(ctx context.Context, key string) (func(), error) {
	token, err := ownerToken()
	if err != nil {
		return nil, err
	}

	redisKey := "lock:" + key
	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", redisKey, err)
	}
	if !ok {
		return nil, ErrReviewInProgress
	}

	return func() {
		// The request context may already be cancelled when the caller releases.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
			logrus.WithError(err).WithField("key", redisKey).Warn("Failed to release review lock")
		}
	}, nil
}

func ownerToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// LocalReviewLock is the single-process fallback used when Redis is not configured.
type LocalReviewLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalReviewLock() *LocalReviewLock {
	return &LocalReviewLock{held: make(map[string]struct{})}
}

func (l *LocalReviewLock) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return nil, ErrReviewInProgress
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
