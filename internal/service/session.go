package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/qrbites/api/internal/enum"
	"github.com/redis/go-redis/v9"
)

// ErrUnknownSessionKind is returned for a session namespace the controller
// does not manage.
var ErrUnknownSessionKind = errors.New("unknown session kind")

// KV is the durable key-value store holding absolute session deadlines.
// Backed by Redis in production, an in-memory map in tests.
type KV interface {
	// SetNX stores value only when key is absent; reports whether it wrote.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// GetDel atomically reads and removes the key, reporting whether it existed.
	GetDel(ctx context.Context, key string) (string, bool, error)
	Del(ctx context.Context, key string) error
}

// RedisKV adapts a go-redis client to the KV interface.
type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisKV) GetDel(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisKV) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Sessions enforces the customer session budget and the post-service redirect
// window. Each session is one durable absolute deadline; remaining time is
// always recomputed as max(0, deadline - now), so a page reload never resets
// the clock.
type Sessions struct {
	kv      KV
	budgets map[string]time.Duration
}

// NewSessions creates the controller with the ordering-session budget and the
// served-redirect window.
func NewSessions(kv KV, ordering, served time.Duration) *Sessions {
	return &Sessions{
		kv: kv,
		budgets: map[string]time.Duration{
			enum.SessionKindOrdering: ordering,
			enum.SessionKindServed:   served,
		},
	}
}

func (s *Sessions) key(kind, id string) string {
	return "qrbites:session:" + kind + ":" + id
}

// Start establishes the deadline for (kind, id) if none exists and returns
// the effective deadline. A second Start for a live session returns the
// original deadline unchanged.
func (s *Sessions) Start(ctx context.Context, kind, id string, now time.Time) (time.Time, error) {
	budget, ok := s.budgets[kind]
	if !ok {
		return time.Time{}, ErrUnknownSessionKind
	}
	deadline := now.Add(budget)
	key := s.key(kind, id)

	// Keep the key around past the deadline so expiry can be observed; Redis
	// garbage-collects it afterwards.
	created, err := s.kv.SetNX(ctx, key, formatDeadline(deadline), budget*2)
	if err != nil {
		return time.Time{}, fmt.Errorf("persist session deadline: %w", err)
	}
	if created {
		return deadline, nil
	}

	existing, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("read session deadline: %w", err)
	}
	if !found {
		// Expired between SetNX and Get; treat as a fresh start.
		return s.Start(ctx, kind, id, now)
	}
	return parseDeadline(existing)
}

// Remaining reports the time left for (kind, id) and whether the session
// exists. A session past its deadline reports zero.
func (s *Sessions) Remaining(ctx context.Context, kind, id string, now time.Time) (time.Duration, bool, error) {
	if _, ok := s.budgets[kind]; !ok {
		return 0, false, ErrUnknownSessionKind
	}
	v, found, err := s.kv.Get(ctx, s.key(kind, id))
	if err != nil {
		return 0, false, fmt.Errorf("read session deadline: %w", err)
	}
	if !found {
		return 0, false, nil
	}
	deadline, err := parseDeadline(v)
	if err != nil {
		return 0, false, err
	}
	remaining := deadline.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true, nil
}

// Expire observes the expiry of (kind, id) exactly once: the first caller
// after the deadline gets true and the key is atomically removed, so
// overlapping timer ticks cannot fire the expiry action twice. Before the
// deadline, or once consumed, it returns false.
func (s *Sessions) Expire(ctx context.Context, kind, id string, now time.Time) (bool, error) {
	if _, ok := s.budgets[kind]; !ok {
		return false, ErrUnknownSessionKind
	}
	key := s.key(kind, id)

	v, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read session deadline: %w", err)
	}
	if !found {
		return false, nil
	}
	deadline, err := parseDeadline(v)
	if err != nil {
		return false, err
	}
	if now.Before(deadline) {
		return false, nil
	}

	// Atomic consume: only one of any concurrent observers sees the value.
	_, consumed, err := s.kv.GetDel(ctx, key)
	if err != nil {
		return false, fmt.Errorf("consume session deadline: %w", err)
	}
	return consumed, nil
}

// Clear drops the session outright (used when a new order begins).
func (s *Sessions) Clear(ctx context.Context, kind, id string) error {
	if _, ok := s.budgets[kind]; !ok {
		return ErrUnknownSessionKind
	}
	return s.kv.Del(ctx, s.key(kind, id))
}

func formatDeadline(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseDeadline(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt session deadline %q", s)
	}
	return time.UnixMilli(ms), nil
}
