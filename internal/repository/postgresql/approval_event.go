package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type approvalEventRepository struct {
	db *database.DB
}

func NewApprovalEventRepository(db *database.DB) timesheet.ApprovalEventRepository {
	return &approvalEventRepository{db: db}
}

// Append implements timesheet.ApprovalEventRepository.
func (r *approvalEventRepository) Append(ctx context.Context, events []timesheet.ApprovalEvent) error {
	if len(events) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO timesheet_approval_events (
			id, timesheet_id, action, stage, actor_id, notes, from_status, to_status, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	batch := &pgx.Batch{}
	for _, e := range events {
		if e.ID == "" {
			id, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("failed to generate approval event id: %w", err)
			}
			e.ID = id.String()
		}
		batch.Queue(query, e.ID, e.TimesheetID, e.Action, e.Stage, e.ActorID, e.Notes, e.FromStatus, e.ToStatus, e.OccurredAt)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	for range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert approval event: %w", err)
		}
	}

	return nil
}

// ListByTimesheet implements timesheet.ApprovalEventRepository.
func (r *approvalEventRepository) ListByTimesheet(ctx context.Context, timesheetID string, companyID string) ([]timesheet.ApprovalEvent, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT e.id, e.timesheet_id, e.action, e.stage, e.actor_id, e.notes,
			   e.from_status, e.to_status, e.occurred_at
		FROM timesheet_approval_events e
		JOIN timesheets t ON t.id = e.timesheet_id
		WHERE e.timesheet_id = $1 AND t.company_id = $2
		ORDER BY e.occurred_at, e.id
	`

	rows, err := q.Query(ctx, query, timesheetID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query approval events: %w", err)
	}
	defer rows.Close()

	var events []timesheet.ApprovalEvent
	for rows.Next() {
		var e timesheet.ApprovalEvent
		if err := rows.Scan(
			&e.ID, &e.TimesheetID, &e.Action, &e.Stage, &e.ActorID, &e.Notes,
			&e.FromStatus, &e.ToStatus, &e.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan approval event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate approval events: %w", err)
	}

	return events, nil
}
