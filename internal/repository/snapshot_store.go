package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/FistoAR/AkiraServiceTool-sub000/internal/domain"
	apperrors "github.com/FistoAR/AkiraServiceTool-sub000/pkg/util"
)

const (
	snapshotKey        = "escalation:snapshot"
	snapshotVersionKey = "escalation:snapshot:version"
)

// SnapshotStore holds the authoritative escalation snapshot. Read returns an
// immutable copy; Write replaces the whole snapshot, last writer wins within
// a version. The snapshot passed to Write must carry the version it was read
// at; a stale base version is rejected with a VERSION_CONFLICT so the
// resolve action and the evaluator cannot silently overwrite each other.
type SnapshotStore interface {
	Read(ctx context.Context) (*domain.Snapshot, error)
	Write(ctx context.Context, snapshot *domain.Snapshot) error
}

// redisSnapshotStore persists the snapshot as a JSON blob in Redis, with the
// version tracked in a watched key.
type redisSnapshotStore struct {
	client *redis.Client
}

// NewRedisSnapshotStore creates a Redis-backed store.
func NewRedisSnapshotStore(client *redis.Client) SnapshotStore {
	return &redisSnapshotStore{client: client}
}

func (s *redisSnapshotStore) Read(ctx context.Context) (*domain.Snapshot, error) {
	payload, err := s.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return &domain.Snapshot{Version: 0, TakenAt: time.Now()}, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("read", err)
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, apperrors.NewPersistenceError("decode", err)
	}
	return &snapshot, nil
}

func (s *redisSnapshotStore) Write(ctx context.Context, snapshot *domain.Snapshot) error {
	base := snapshot.Version

	next := snapshot.Clone()
	next.Version = base + 1

	payload, err := json.Marshal(next)
	if err != nil {
		return apperrors.NewPersistenceError("encode", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, snapshotVersionKey).Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != base {
			return apperrors.NewVersionConflict(base, current)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, snapshotKey, payload, 0)
			pipe.Set(ctx, snapshotVersionKey, next.Version, 0)
			return nil
		})
		return err
	}, snapshotVersionKey)

	if err != nil {
		if apperrors.IsVersionConflict(err) {
			return err
		}
		if errors.Is(err, redis.TxFailedErr) {
			return apperrors.NewVersionConflict(base, -1)
		}
		return apperrors.NewPersistenceError("write", err)
	}

	snapshot.Version = next.Version
	return nil
}

// memorySnapshotStore is the in-process store used when Redis is not
// configured, and in tests. Same contract, including version checks.
type memorySnapshotStore struct {
	mu      sync.Mutex
	current *domain.Snapshot
}

// NewMemorySnapshotStore creates an in-memory store.
func NewMemorySnapshotStore() SnapshotStore {
	return &memorySnapshotStore{
		current: &domain.Snapshot{Version: 0, TakenAt: time.Now()},
	}
}

func (s *memorySnapshotStore) Read(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone(), nil
}

func (s *memorySnapshotStore) Write(ctx context.Context, snapshot *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snapshot.Version != s.current.Version {
		return apperrors.NewVersionConflict(snapshot.Version, s.current.Version)
	}

	next := snapshot.Clone()
	next.Version = snapshot.Version + 1
	s.current = next
	snapshot.Version = next.Version
	return nil
}
