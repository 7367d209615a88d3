package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stemsi/course-planner/internal/config"
	"github.com/stemsi/course-planner/internal/model"
	"github.com/stemsi/course-planner/internal/schedule"
)

// maxUpdateAttempts bounds WATCH retries for one Update call.
const maxUpdateAttempts = 5

// SessionRepository stores planner sessions and their cached timetables in
// Redis.
type SessionRepository struct {
	rdb *redis.Client
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(rdb *redis.Client) *SessionRepository {
	return &SessionRepository{rdb: rdb}
}

// Create stores a new session that expires after ttl.
func (r *SessionRepository) Create(ctx context.Context, sess *model.PlannerSession, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := r.rdb.SetNX(ctx, config.CacheKey.PlannerSessionKey(sess.ID.String()), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s already exists", sess.ID)
	}
	return nil
}

// Get loads a session.
func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*model.PlannerSession, error) {
	data, err := r.rdb.Get(ctx, config.CacheKey.PlannerSessionKey(id.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return decodeSession(data)
}

// Update applies fn to the stored session under WATCH and writes the result
// back, keeping the key's TTL and dropping the cached timetable. An error
// from fn aborts the update and is returned as is.
func (r *SessionRepository) Update(ctx context.Context, id uuid.UUID, fn func(*model.PlannerSession) error) (*model.PlannerSession, error) {
	key := config.CacheKey.PlannerSessionKey(id.String())
	timetableKey := config.CacheKey.PlannerTimetableKey(id.String())

	var updated *model.PlannerSession
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return err
		}
		sess, err := decodeSession(data)
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
		sess.UpdatedAt = time.Now().UTC()

		out, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, redis.KeepTTL)
			pipe.Del(ctx, timetableKey)
			return nil
		})
		if err != nil {
			return err
		}
		updated = sess
		return nil
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := r.rdb.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, ErrConcurrentUpdate
}

type cachedTimetable struct {
	Fingerprint string        `json:"fingerprint"`
	Grid        schedule.Grid `json:"grid"`
}

// GetTimetable returns the cached grid when it was built from fingerprint.
func (r *SessionRepository) GetTimetable(ctx context.Context, id uuid.UUID, fingerprint string) (schedule.Grid, bool, error) {
	data, err := r.rdb.Get(ctx, config.CacheKey.PlannerTimetableKey(id.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return schedule.Grid{}, false, nil
		}
		return schedule.Grid{}, false, err
	}
	var cached cachedTimetable
	if err := json.Unmarshal(data, &cached); err != nil || cached.Fingerprint != fingerprint {
		return schedule.Grid{}, false, nil
	}
	return cached.Grid, true, nil
}

// SetTimetable caches grid under fingerprint for ttl.
func (r *SessionRepository) SetTimetable(ctx context.Context, id uuid.UUID, fingerprint string, grid schedule.Grid, ttl time.Duration) error {
	data, err := json.Marshal(cachedTimetable{Fingerprint: fingerprint, Grid: grid})
	if err != nil {
		return fmt.Errorf("marshal timetable: %w", err)
	}
	return r.rdb.Set(ctx, config.CacheKey.PlannerTimetableKey(id.String()), data, ttl).Err()
}

// Publish sends payload on the session's event channel.
func (r *SessionRepository) Publish(ctx context.Context, id uuid.UUID, payload []byte) error {
	return r.rdb.Publish(ctx, config.CacheKey.PlannerEventsChannel(id.String()), payload).Err()
}

// Events subscribes to the session's event channel and relays payloads until
// ctx is cancelled, then closes the returned channel.
func (r *SessionRepository) Events(ctx context.Context, id uuid.UUID) (<-chan []byte, error) {
	pubsub := r.rdb.Subscribe(ctx, config.CacheKey.PlannerEventsChannel(id.String()))
	// Wait for the subscription to be confirmed before reporting success.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func decodeSession(data []byte) (*model.PlannerSession, error) {
	sess := &model.PlannerSession{}
	if err := json.Unmarshal(data, sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}
