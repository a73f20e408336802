package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BradenHooton/staffguard/internal/models"
)

// SessionRepository handles session metadata in process memory
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

// NewSessionRepository creates an empty in-memory SessionRepository
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]models.Session),
	}
}

// Upsert stores a session, or only refreshes last activity when the id exists
func (r *SessionRepository) Upsert(_ context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[session.ID]; ok {
		existing.LastActive = session.LastActive
		r.sessions[session.ID] = existing
		return nil
	}

	r.sessions[session.ID] = *session
	return nil
}

// GetByID returns a copy of the session, or models.ErrNotFound
func (r *SessionRepository) GetByID(_ context.Context, id string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &s, nil
}

// ListByUser returns a user's sessions, most recently active first
func (r *SessionRepository) ListByUser(_ context.Context, userID string) ([]*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := []*models.Session{}
	for _, s := range r.sessions {
		if s.UserID == userID {
			s := s
			sessions = append(sessions, &s)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if !a.LastActive.Equal(b.LastActive) {
			return a.LastActive.After(b.LastActive)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	return sessions, nil
}

// Touch sets last activity to now. Unknown ids are ignored.
func (r *SessionRepository) Touch(_ context.Context, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		s.LastActive = now
		r.sessions[id] = s
	}
	return nil
}

// Delete removes one session
func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// DeleteByIDs removes the listed sessions and returns how many existed
func (r *SessionRepository) DeleteByIDs(_ context.Context, ids []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		if _, ok := r.sessions[id]; ok {
			delete(r.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// DeleteIfIdle removes a session only while its last activity is still before cutoff
func (r *SessionRepository) DeleteIfIdle(_ context.Context, id string, cutoff time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || !s.LastActive.Before(cutoff) {
		return false, nil
	}
	delete(r.sessions, id)
	return true, nil
}

// DeleteByUser removes every session for a user
func (r *SessionRepository) DeleteByUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// DeleteIdleBefore removes every session whose last activity is before cutoff
func (r *SessionRepository) DeleteIdleBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, s := range r.sessions {
		if s.LastActive.Before(cutoff) {
			delete(r.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}
