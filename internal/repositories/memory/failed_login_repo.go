package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/staffguard/internal/models"
	"github.com/google/uuid"
)

// FailedLoginRepository handles the failed login audit log in process memory
type FailedLoginRepository struct {
	mu       sync.RWMutex
	attempts []models.FailedLoginAttempt
}

// NewFailedLoginRepository creates an empty in-memory FailedLoginRepository
func NewFailedLoginRepository() *FailedLoginRepository {
	return &FailedLoginRepository{
		attempts: make([]models.FailedLoginAttempt, 0, 32),
	}
}

// RecordAttempt appends an audit entry, assigning an id when missing
func (r *FailedLoginRepository) RecordAttempt(_ context.Context, attempt *models.FailedLoginAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, *attempt)
	return nil
}

// DeleteOlderThan removes entries attempted before cutoff
func (r *FailedLoginRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.attempts[:0]
	var deleted int64
	for _, a := range r.attempts {
		if a.AttemptedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	r.attempts = kept
	return deleted, nil
}

// Attempts returns a copy of the recorded audit entries
func (r *FailedLoginRepository) Attempts() []models.FailedLoginAttempt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.FailedLoginAttempt, len(r.attempts))
	copy(out, r.attempts)
	return out
}
