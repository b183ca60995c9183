package api

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campuskit/secretary/internal/agent"
)

// DefaultMaxSessions bounds the conversations kept in memory.
const DefaultMaxSessions = 256

// LoopFactory builds the agent loop for a new conversation.
type LoopFactory func() *agent.Loop

// session is one conversation. mu serializes messages to its loop.
type session struct {
	id      string
	mu      sync.Mutex
	loop    *agent.Loop
	created time.Time

	// updated and turns are guarded by Sessions.mu.
	updated time.Time
	turns   int
}

// Sessions owns one agent loop per conversation id. Conversations live in
// memory only; when the table is full the least recently used one is
// dropped.
type Sessions struct {
	newLoop LoopFactory
	max     int
	now     func() time.Time

	mu   sync.Mutex
	byID map[string]*session
}

// NewSessions creates an empty session table. max <= 0 uses
// DefaultMaxSessions.
func NewSessions(newLoop LoopFactory, max int) *Sessions {
	if max <= 0 {
		max = DefaultMaxSessions
	}
	return &Sessions{
		newLoop: newLoop,
		max:     max,
		now:     time.Now,
		byID:    make(map[string]*session),
	}
}

// NewID returns a fresh conversation id.
func NewID() string {
	return uuid.NewString()
}

// acquire returns the session for id, creating it when needed, and marks
// it used.
func (s *Sessions) acquire(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if sess, ok := s.byID[id]; ok {
		sess.updated = now
		return sess
	}
	if len(s.byID) >= s.max {
		s.evictLocked()
	}
	sess := &session{id: id, loop: s.newLoop(), created: now, updated: now}
	s.byID[id] = sess
	return sess
}

func (s *Sessions) evictLocked() {
	var oldest *session
	for _, sess := range s.byID {
		if oldest == nil || sess.updated.Before(oldest.updated) {
			oldest = sess
		}
	}
	if oldest != nil {
		delete(s.byID, oldest.id)
	}
}

func (s *Sessions) get(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	return sess, ok
}

// Chat sends one message to conversation id, waiting for any message
// already in flight on the same conversation.
func (s *Sessions) Chat(ctx context.Context, id, message string) *agent.Response {
	sess := s.acquire(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	resp := sess.loop.Chat(ctx, message)
	turns := len(sess.loop.History())

	s.mu.Lock()
	sess.turns = turns
	sess.updated = s.now()
	s.mu.Unlock()
	return resp
}

// Delete forgets a conversation. It reports whether it existed.
func (s *Sessions) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byID[id]
	delete(s.byID, id)
	return ok
}

// Summary describes a conversation without its content.
type Summary struct {
	ID        string    `json:"id"`
	TurnCount int       `json:"turn_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// List returns every conversation, most recently used first.
func (s *Sessions) List() []Summary {
	s.mu.Lock()
	out := make([]Summary, 0, len(s.byID))
	for _, sess := range s.byID {
		out = append(out, Summary{
			ID:        sess.id,
			TurnCount: sess.turns,
			CreatedAt: sess.created,
			UpdatedAt: sess.updated,
		})
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b Summary) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// History returns a copy of a conversation's turns. It waits for a
// message in flight on that conversation.
func (s *Sessions) History(id string) ([]agent.Turn, bool) {
	sess, ok := s.get(id)
	if !ok {
		return nil, false
	}
	return sess.history(), true
}

func (sess *session) history() []agent.Turn {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.loop.History()
}
