package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/attendance"
	"github.com/google/uuid"
)

const maxAuditsPerUser = 200

type punchAuditRepositoryImpl struct {
	mu     sync.RWMutex
	audits map[string][]attendance.PunchAudit
}

// NewPunchAuditRepository keeps a bounded, newest-last audit trail per user.
// It backs deployments that run without PostgreSQL.
func NewPunchAuditRepository() attendance.AuditRepository {
	return &punchAuditRepositoryImpl{
		audits: make(map[string][]attendance.PunchAudit),
	}
}

func (r *punchAuditRepositoryImpl) Create(ctx context.Context, audit attendance.PunchAudit) error {
	if audit.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		audit.ID = id.String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list := append(r.audits[audit.UserID], audit)
	if len(list) > maxAuditsPerUser {
		list = list[len(list)-maxAuditsPerUser:]
	}
	r.audits[audit.UserID] = list
	return nil
}

func (r *punchAuditRepositoryImpl) ListByUser(ctx context.Context, userID string, limit int) ([]attendance.PunchAudit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		return []attendance.PunchAudit{}, nil
	}
	list := r.audits[userID]
	result := make([]attendance.PunchAudit, 0, min(limit, len(list)))
	for i := len(list) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, list[i])
	}
	return result, nil
}

func (r *punchAuditRepositoryImpl) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for userID, list := range r.audits {
		kept := list[:0]
		for _, a := range list {
			if a.CreatedAt.Before(before) {
				deleted++
				continue
			}
			kept = append(kept, a)
		}
		if len(kept) == 0 {
			delete(r.audits, userID)
		} else {
			r.audits[userID] = kept
		}
	}
	return deleted, nil
}
