// Package store abstracts the durable primitives the frontier is built on: a
// score-sorted set, a membership set, and hash maps. Any backend offering these
// with per-operation atomicity can carry a frontier.
package store

import "context"

// Store is the backing-store contract for the frontier.
//
// Multi-step sequences composed from these calls are NOT atomic as a whole;
// only each individual call is.
type Store interface {
	// Sorted set
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZPopMin(ctx context.Context, key string) (member string, ok bool, err error)
	ZCard(ctx context.Context, key string) (int64, error)
	// ZMembers lists all members in score order without removing them,
	// used by snapshot export.
	ZMembers(ctx context.Context, key string) ([]string, error)

	// Set
	SAdd(ctx context.Context, key, member string) (bool, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SRem(ctx context.Context, key, member string) error
	SCard(ctx context.Context, key string) (int64, error)

	// Hash
	HSet(ctx context.Context, key, field, value string) error
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HDel(ctx context.Context, key, field string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HLen(ctx context.Context, key string) (int64, error)

	// Del removes whole keys, used by Clear and ImportState.
	Del(ctx context.Context, keys ...string) error

	Close() error
}
