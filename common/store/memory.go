package store

import (
	"context"
	"sort"
	"sync"
)

type zentry struct {
	member string
	score  float64
	seq    uint64
}

// MemoryStore is an in-process Store for tests and single-process crawls.
// It is safe for concurrent use by multiple goroutines.
type MemoryStore struct {
	mu     sync.Mutex
	zsets  map[string][]zentry
	sets   map[string]map[string]struct{}
	hashes map[string]map[string]string
	seq    uint64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		zsets:  make(map[string][]zentry),
		sets:   make(map[string]map[string]struct{}),
		hashes: make(map[string]map[string]string),
	}
}

func (s *MemoryStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.zsets[key]
	for i := range entries {
		if entries[i].member == member {
			entries[i].score = score
			return nil
		}
	}
	s.seq++
	s.zsets[key] = append(entries, zentry{member: member, score: score, seq: s.seq})
	return nil
}

// ZPopMin removes and returns the lowest-scored member. Ties are broken by
// insertion order so equal scores pop FIFO.
func (s *MemoryStore) ZPopMin(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.zsets[key]
	if len(entries) == 0 {
		return "", false, nil
	}

	min := 0
	for i := 1; i < len(entries); i++ {
		if entries[i].score < entries[min].score ||
			(entries[i].score == entries[min].score && entries[i].seq < entries[min].seq) {
			min = i
		}
	}

	member := entries[min].member
	s.zsets[key] = append(entries[:min], entries[min+1:]...)
	return member, true, nil
}

func (s *MemoryStore) ZCard(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.zsets[key])), nil
}

func (s *MemoryStore) ZMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]zentry, len(s.zsets[key]))
	copy(entries, s.zsets[key])
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score < entries[j].score
		}
		return entries[i].seq < entries[j].seq
	})

	members := make([]string, len(entries))
	for i, e := range entries {
		members[i] = e.member
	}
	return members, nil
}

func (s *MemoryStore) SAdd(ctx context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	if _, exists := set[member]; exists {
		return false, nil
	}
	set[member] = struct{}{}
	return true, nil
}

func (s *MemoryStore) SIsMember(ctx context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sets[key][member]
	return ok, nil
}

func (s *MemoryStore) SRem(ctx context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets[key], member)
	return nil
}

func (s *MemoryStore) SCard(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.sets[key])), nil
}

func (s *MemoryStore) HSet(ctx context.Context, key, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, ok := s.hashes[key]
	if !ok {
		hash = make(map[string]string)
		s.hashes[key] = hash
	}
	hash[field] = value
	return nil
}

func (s *MemoryStore) HGet(ctx context.Context, key, field string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.hashes[key][field]
	return value, ok, nil
}

func (s *MemoryStore) HDel(ctx context.Context, key, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hashes[key], field)
	return nil
}

func (s *MemoryStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.hashes[key]))
	for field, value := range s.hashes[key] {
		out[field] = value
	}
	return out, nil
}

func (s *MemoryStore) HLen(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.hashes[key])), nil
}

func (s *MemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.zsets, key)
		delete(s.sets, key)
		delete(s.hashes, key)
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
