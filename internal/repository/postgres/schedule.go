package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/pkg/errors"
)

const scheduleColumns = `id, doctor_id, day_of_week, start_time, end_time, is_available, created_at, updated_at`

func (r *scheduleRepository) Create(ctx context.Context, window *model.WeeklyAvailabilityWindow) error {
	return insertWindow(ctx, r.db, window)
}

func insertWindow(ctx context.Context, q sqlx.QueryerContext, window *model.WeeklyAvailabilityWindow) error {
	query := `
		INSERT INTO schedules (
			doctor_id, day_of_week, start_time, end_time, is_available, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	now := time.Now().UTC()
	window.CreatedAt = now
	window.UpdatedAt = now

	err := sqlx.GetContext(ctx, q, &window.ID, query,
		window.DoctorID,
		int(window.DayOfWeek),
		window.StartTime,
		window.EndTime,
		window.IsAvailable,
		window.CreatedAt,
		window.UpdatedAt,
	)
	return translate(err, "doctor", "create schedule")
}

func (r *scheduleRepository) Get(ctx context.Context, id int64) (*model.WeeklyAvailabilityWindow, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`

	var window model.WeeklyAvailabilityWindow
	if err := r.db.GetContext(ctx, &window, query, id); err != nil {
		return nil, translate(err, "schedule", "get schedule")
	}
	return &window, nil
}

func (r *scheduleRepository) Update(ctx context.Context, window *model.WeeklyAvailabilityWindow) error {
	query := `
		UPDATE schedules
		SET day_of_week = $1, start_time = $2, end_time = $3, is_available = $4, updated_at = $5
		WHERE id = $6
	`
	window.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		int(window.DayOfWeek),
		window.StartTime,
		window.EndTime,
		window.IsAvailable,
		window.UpdatedAt,
		window.ID,
	)
	if err != nil {
		return translate(err, "schedule", "update schedule")
	}
	return expectRow(result, "schedule")
}

func (r *scheduleRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return expectRow(result, "schedule")
}

func (r *scheduleRepository) ListByDoctor(ctx context.Context, doctorID int64) ([]*model.WeeklyAvailabilityWindow, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE doctor_id = $1
		ORDER BY day_of_week, start_time
	`
	windows := []*model.WeeklyAvailabilityWindow{}
	if err := r.db.SelectContext(ctx, &windows, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return windows, nil
}

func (r *scheduleRepository) DeleteByDoctor(ctx context.Context, doctorID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE doctor_id = $1`, doctorID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete schedules: %w", err)
	}
	return result.RowsAffected()
}

func (r *scheduleRepository) ReplaceForDoctor(ctx context.Context, doctorID int64, windows []*model.WeeklyAvailabilityWindow) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM schedules WHERE doctor_id = $1`, doctorID); err != nil {
			return fmt.Errorf("failed to clear schedules: %w", err)
		}
		for _, w := range windows {
			w.DoctorID = doctorID
			if err := insertWindow(ctx, tx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// expectRow turns a zero-row write into NotFound.
func expectRow(result interface{ RowsAffected() (int64, error) }, resource string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NotFound(resource, nil)
	}
	return nil
}
