package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/database"
	"github.com/google/uuid"
)

type punchAuditRepository struct {
	db *database.DB
}

func NewPunchAuditRepository(db *database.DB) attendance.AuditRepository {
	return &punchAuditRepository{db: db}
}

// Create implements attendance.AuditRepository.
func (r *punchAuditRepository) Create(ctx context.Context, audit attendance.PunchAudit) error {
	q := GetQuerier(ctx, r.db)

	if audit.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate audit id: %w", err)
		}
		audit.ID = id.String()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO punch_audits (
			id, user_id, platform, strategy, action, outcome,
			reason, image_fingerprint, duration_ms, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := q.Exec(ctx, query,
		audit.ID,
		audit.UserID,
		audit.Platform,
		audit.Strategy,
		string(audit.Action),
		string(audit.Outcome),
		audit.Reason,
		audit.ImageFingerprint,
		audit.DurationMs,
		audit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create punch audit: %w", err)
	}
	return nil
}

// ListByUser implements attendance.AuditRepository.
func (r *punchAuditRepository) ListByUser(ctx context.Context, userID string, limit int) ([]attendance.PunchAudit, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, user_id, platform, strategy, action, outcome,
			   reason, image_fingerprint, duration_ms, created_at
		FROM punch_audits
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list punch audits: %w", err)
	}
	defer rows.Close()

	audits := make([]attendance.PunchAudit, 0)
	for rows.Next() {
		var a attendance.PunchAudit
		var action, outcome string
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Platform, &a.Strategy, &action, &outcome,
			&a.Reason, &a.ImageFingerprint, &a.DurationMs, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan punch audit: %w", err)
		}
		a.Action = attendance.NextAction(action)
		a.Outcome = attendance.PunchOutcome(outcome)
		audits = append(audits, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate punch audits: %w", err)
	}

	return audits, nil
}

// DeleteBefore implements attendance.AuditRepository.
func (r *punchAuditRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	var deleted int64
	err := WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		// Large backlogs must not hold the table for long.
		if _, err := q.Exec(ctx, `SET LOCAL statement_timeout = '60s'`); err != nil {
			return fmt.Errorf("failed to set statement timeout: %w", err)
		}

		tag, err := q.Exec(ctx, `DELETE FROM punch_audits WHERE created_at < $1`, before)
		if err != nil {
			return fmt.Errorf("failed to delete punch audits: %w", err)
		}
		deleted = tag.RowsAffected()
		return nil
	})
	return deleted, err
}
