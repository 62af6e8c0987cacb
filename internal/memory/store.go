// internal/memory/store.go
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"wb-analyst/internal/common/logger"
	"wb-analyst/internal/common/metrics"
	"wb-analyst/internal/models"
)

// ErrSessionBusy indicates another invocation holds the session lock
var ErrSessionBusy = errors.New("SESSION_BUSY")

// SessionStore hands out sessions one invocation at a time per id.
type SessionStore interface {
	Acquire(ctx context.Context, sessionID string) (*Session, error)
	Release(sessionID string)
	Touch(ctx context.Context, session *Session)
	EvictExpired() int
	Reset(ctx context.Context, sessionID string)
}

type sessionSlot struct {
	session *Session
	lock    chan struct{}
}

// MemoryStore keeps sessions in process memory and serializes
// invocations per session id. When a Redis client is supplied, sessions
// are mirrored there with the same TTL so a restarted process can pick
// up recent conversations; Redis being down degrades to in-memory only.
type MemoryStore struct {
	config *Config
	redis  *redis.Client
	logger logger.Logger

	mu    sync.Mutex
	slots map[string]*sessionSlot
}

// NewMemoryStore creates a session store; redisClient may be nil.
func NewMemoryStore(config *Config, redisClient *redis.Client, log logger.Logger) *MemoryStore {
	return &MemoryStore{
		config: config,
		redis:  redisClient,
		logger: log.WithFields(map[string]interface{}{
			"component": "session-store",
		}),
		slots: make(map[string]*sessionSlot),
	}
}

// Acquire returns the live session for the id, creating or replacing it
// when absent or past its TTL, and holds the session lock until
// Release. A second caller on the same id blocks until the first
// releases or its own context gives up with ErrSessionBusy.
func (s *MemoryStore) Acquire(ctx context.Context, sessionID string) (*Session, error) {
	slot := s.slotFor(sessionID)

	select {
	case slot.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: session %s", ErrSessionBusy, sessionID)
	}

	s.mu.Lock()
	if current, ok := s.slots[sessionID]; !ok || current != slot {
		// The sweeper dropped the slot while we waited for the lock.
		s.slots[sessionID] = slot
	}
	wasLive := slot.session != nil
	if wasLive && time.Since(slot.session.LastActive) > s.config.SessionTTL {
		slot.session = nil
	}
	session := slot.session
	s.mu.Unlock()

	if session == nil {
		if wasLive {
			session = NewSession(sessionID)
		} else {
			session = s.hydrate(ctx, sessionID)
			if session == nil {
				session = NewSession(sessionID)
			}
			metrics.SessionsActive.Inc()
		}
	}

	s.mu.Lock()
	session.LastActive = time.Now()
	slot.session = session
	s.mu.Unlock()

	return session, nil
}

// Release frees the session lock taken by Acquire.
func (s *MemoryStore) Release(sessionID string) {
	s.mu.Lock()
	slot, ok := s.slots[sessionID]
	s.mu.Unlock()
	if !ok {
		return
	}
	select {
	case <-slot.lock:
	default:
	}
}

// Touch refreshes the session's activity and mirrors it to Redis.
func (s *MemoryStore) Touch(ctx context.Context, session *Session) {
	s.mu.Lock()
	session.LastActive = time.Now()
	s.mu.Unlock()

	s.mirror(ctx, session)
}

// EvictExpired drops idle sessions past their TTL and returns how many
// were removed. Locked sessions are skipped; lazy expiry in Acquire
// remains the correctness mechanism, the sweep only bounds memory.
func (s *MemoryStore) EvictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, slot := range s.slots {
		if len(slot.lock) > 0 {
			continue
		}
		if slot.session == nil {
			delete(s.slots, id)
			continue
		}
		if time.Since(slot.session.LastActive) <= s.config.SessionTTL {
			continue
		}
		delete(s.slots, id)
		metrics.SessionsActive.Dec()
		evicted++
	}
	return evicted
}

// Reset drops the session so the next access starts a fresh one.
func (s *MemoryStore) Reset(ctx context.Context, sessionID string) {
	s.mu.Lock()
	if slot, ok := s.slots[sessionID]; ok && slot.session != nil {
		slot.session = nil
		metrics.SessionsActive.Dec()
	}
	s.mu.Unlock()

	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		s.logger.WithError(err).Warn("session reset in redis failed", map[string]interface{}{
			"sessionId": sessionID,
		})
	}
}

func (s *MemoryStore) slotFor(sessionID string) *sessionSlot {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[sessionID]
	if !ok {
		slot = &sessionSlot{lock: make(chan struct{}, 1)}
		s.slots[sessionID] = slot
	}
	return slot
}

// sessionSnapshot is the Redis mirror payload.
type sessionSnapshot struct {
	History   []models.ConversationExchange `json:"history"`
	CreatedAt time.Time                     `json:"createdAt"`
}

func (s *MemoryStore) mirror(ctx context.Context, session *Session) {
	if s.redis == nil {
		return
	}

	s.mu.Lock()
	payload, err := json.Marshal(sessionSnapshot{
		History:   session.History,
		CreatedAt: session.CreatedAt,
	})
	s.mu.Unlock()
	if err != nil {
		return
	}

	if err := s.redis.Set(ctx, sessionKey(session.ID), payload, s.config.SessionTTL).Err(); err != nil {
		s.logger.WithError(err).Warn("session mirror failed", map[string]interface{}{
			"sessionId": session.ID,
		})
	}
}

func (s *MemoryStore) hydrate(ctx context.Context, sessionID string) *Session {
	if s.redis == nil {
		return nil
	}

	raw, err := s.redis.Get(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WithError(err).Warn("session hydrate failed", map[string]interface{}{
				"sessionId": sessionID,
			})
		}
		return nil
	}

	var snapshot sessionSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		s.logger.WithError(err).Warn("session snapshot unreadable", map[string]interface{}{
			"sessionId": sessionID,
		})
		return nil
	}

	s.logger.Debug("session hydrated from redis", map[string]interface{}{
		"sessionId": sessionID,
		"exchanges": len(snapshot.History),
	})
	return &Session{
		ID:         sessionID,
		History:    snapshot.History,
		CreatedAt:  snapshot.CreatedAt,
		LastActive: time.Now(),
	}
}

func sessionKey(sessionID string) string {
	return "analyst:session:" + sessionID
}
