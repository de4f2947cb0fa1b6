package memory

import (
	"context"
	"sync"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/attendance"
)

type attendanceStateRepositoryImpl struct {
	mu     sync.RWMutex
	states map[string]attendance.TodayState
}

func NewAttendanceStateRepository() attendance.StateStore {
	return &attendanceStateRepositoryImpl{
		states: make(map[string]attendance.TodayState),
	}
}

func (r *attendanceStateRepositoryImpl) Get(ctx context.Context, userID string) (attendance.TodayState, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.states[userID]
	return state, ok, nil
}

func (r *attendanceStateRepositoryImpl) Set(ctx context.Context, userID string, state attendance.TodayState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[userID] = state
	return nil
}

func (r *attendanceStateRepositoryImpl) SetIfNewer(ctx context.Context, userID string, state attendance.TodayState) (attendance.TodayState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.states[userID]; ok && current.UpdatedAt.After(state.UpdatedAt) {
		return current, nil
	}
	r.states[userID] = state
	return state, nil
}

func (r *attendanceStateRepositoryImpl) Delete(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, userID)
	return nil
}

// PruneBefore relies on YYYY-MM-DD dates ordering lexically.
func (r *attendanceStateRepositoryImpl) PruneBefore(ctx context.Context, date string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pruned := 0
	for userID, state := range r.states {
		if state.Date < date {
			delete(r.states, userID)
			pruned++
		}
	}
	return pruned, nil
}
