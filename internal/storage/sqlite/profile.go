package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
	apperrors "github.com/shanky101/habit-tracker-mobile-sub000/internal/errors"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
)

// ProfileRepo stores the singleton user profile and the vacation intervals.
type ProfileRepo struct {
	s *Store
}

func (r *ProfileRepo) Get(ctx context.Context) (*models.UserProfile, error) {
	p, err := queryProfile(ctx, r.s.db)
	if err != nil {
		return nil, apperrors.E(apperrors.KindQuery, "profile.get", err)
	}
	return p, nil
}

// Save upserts the singleton row. The id is always forced to the singleton key.
func (r *ProfileRepo) Save(ctx context.Context, profile models.UserProfile) error {
	return r.s.withTx(ctx, "profile.save", func(tx *sql.Tx) error {
		return upsertProfile(ctx, tx, profile)
	})
}

func (r *ProfileRepo) GetVacationIntervals(ctx context.Context) ([]models.VacationInterval, error) {
	intervals, err := queryVacation(ctx, r.s.db)
	if err != nil {
		return nil, apperrors.E(apperrors.KindQuery, "profile.getVacationIntervals", err)
	}
	return intervals, nil
}

// SyncVacationIntervals replaces all intervals. A second open interval violates a unique
// index and rolls the whole sync back.
func (r *ProfileRepo) SyncVacationIntervals(ctx context.Context, intervals []models.VacationInterval) error {
	return r.s.withTx(ctx, "profile.syncVacationIntervals", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM vacation_intervals"); err != nil {
			return fmt.Errorf("failed to clear vacation intervals: %w", err)
		}
		return insertVacation(ctx, tx, intervals)
	})
}

func (r *ProfileRepo) DeleteAll(ctx context.Context) error {
	return r.s.withTx(ctx, "profile.deleteAll", func(tx *sql.Tx) error {
		for _, table := range []string{"vacation_intervals", "user_profile"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

func upsertProfile(ctx context.Context, q querier, p models.UserProfile) error {
	_, err := q.ExecContext(ctx, `INSERT INTO user_profile (id, display_name, timezone, week_start, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			timezone = excluded.timezone,
			week_start = excluded.week_start,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		constants.DefaultUserProfileID, p.DisplayName, p.Timezone, p.WeekStart, formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save user profile: %w", err)
	}
	return nil
}

func queryProfile(ctx context.Context, q querier) (*models.UserProfile, error) {
	var p models.UserProfile
	var createdAt, updatedAt string
	err := q.QueryRowContext(ctx, `SELECT id, display_name, timezone, week_start, created_at, updated_at
		FROM user_profile WHERE id = ?`, constants.DefaultUserProfileID).
		Scan(&p.ID, &p.DisplayName, &p.Timezone, &p.WeekStart, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func insertVacation(ctx context.Context, q querier, intervals []models.VacationInterval) error {
	for i, v := range intervals {
		_, err := q.ExecContext(ctx, `INSERT INTO vacation_intervals (id, start_date, end_date, position)
			VALUES (?, ?, ?, ?)`, v.ID, v.StartDate, nullString(v.EndDate), i)
		if err != nil {
			return fmt.Errorf("failed to insert vacation interval %s: %w", v.ID, err)
		}
	}
	return nil
}

func queryVacation(ctx context.Context, q querier) ([]models.VacationInterval, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, start_date, end_date FROM vacation_intervals ORDER BY position, start_date")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	intervals := []models.VacationInterval{}
	for rows.Next() {
		var v models.VacationInterval
		var end sql.NullString
		if err := rows.Scan(&v.ID, &v.StartDate, &end); err != nil {
			return nil, err
		}
		v.EndDate = stringPtr(end)
		intervals = append(intervals, v)
	}
	return intervals, rows.Err()
}
