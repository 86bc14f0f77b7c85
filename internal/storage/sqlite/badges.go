package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/shanky101/habit-tracker-mobile-sub000/internal/errors"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
)

// BadgeRepo stores badge progress counters and unlocks. Both read back ordered by badge id.
type BadgeRepo struct {
	s *Store
}

func (r *BadgeRepo) GetProgress(ctx context.Context) ([]models.BadgeProgress, error) {
	progress, err := queryBadgeProgress(ctx, r.s.db)
	if err != nil {
		return nil, apperrors.E(apperrors.KindQuery, "badges.getProgress", err)
	}
	return progress, nil
}

func (r *BadgeRepo) GetUnlocked(ctx context.Context) ([]models.UnlockedBadge, error) {
	unlocked, err := queryUnlockedBadges(ctx, r.s.db)
	if err != nil {
		return nil, apperrors.E(apperrors.KindQuery, "badges.getUnlocked", err)
	}
	return unlocked, nil
}

func (r *BadgeRepo) SyncAll(ctx context.Context, progress []models.BadgeProgress, unlocked []models.UnlockedBadge) error {
	return r.s.withTx(ctx, "badges.syncAll", func(tx *sql.Tx) error {
		if err := deleteBadgeTables(ctx, tx); err != nil {
			return err
		}
		if err := insertBadgeProgress(ctx, tx, progress); err != nil {
			return err
		}
		return insertUnlockedBadges(ctx, tx, unlocked)
	})
}

func (r *BadgeRepo) IncrementProgress(ctx context.Context, badgeID string, delta int, metadata json.RawMessage) (int, error) {
	var next int
	err := r.s.withTx(ctx, "badges.incrementProgress", func(tx *sql.Tx) error {
		var current int
		var existing sql.NullString
		err := tx.QueryRowContext(ctx, "SELECT progress, metadata FROM badge_progress WHERE badge_id = ?", badgeID).
			Scan(&current, &existing)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to read progress for %s: %w", badgeID, err)
		}

		next = models.AdvanceProgress(current, delta)
		meta := existing
		if metadata != nil {
			meta = sql.NullString{String: string(metadata), Valid: true}
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO badge_progress (badge_id, progress, metadata, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(badge_id) DO UPDATE SET
				progress = MAX(badge_progress.progress, excluded.progress),
				metadata = excluded.metadata,
				updated_at = excluded.updated_at`,
			badgeID, next, meta, formatTime(time.Now()),
		)
		if err != nil {
			return fmt.Errorf("failed to write progress for %s: %w", badgeID, err)
		}
		return nil
	})
	return next, err
}

func (r *BadgeRepo) Unlock(ctx context.Context, badgeID string, at time.Time) (bool, error) {
	res, err := r.s.exec(ctx, "badges.unlock",
		"INSERT OR IGNORE INTO user_badges (badge_id, unlocked_at, seen) VALUES (?, ?, 0)",
		badgeID, formatTime(at))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.E(apperrors.KindQuery, "badges.unlock", err)
	}
	return n > 0, nil
}

func (r *BadgeRepo) MarkSeen(ctx context.Context, badgeID string) error {
	_, err := r.s.exec(ctx, "badges.markSeen", "UPDATE user_badges SET seen = 1 WHERE badge_id = ?", badgeID)
	return err
}

func (r *BadgeRepo) DeleteAll(ctx context.Context) error {
	return r.s.withTx(ctx, "badges.deleteAll", func(tx *sql.Tx) error {
		return deleteBadgeTables(ctx, tx)
	})
}

func deleteBadgeTables(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"user_badges", "badge_progress"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func insertBadgeProgress(ctx context.Context, q querier, progress []models.BadgeProgress) error {
	for _, p := range progress {
		var meta sql.NullString
		if p.Metadata != nil {
			meta = sql.NullString{String: string(p.Metadata), Valid: true}
		}
		_, err := q.ExecContext(ctx, "INSERT INTO badge_progress (badge_id, progress, metadata, updated_at) VALUES (?, ?, ?, ?)",
			p.BadgeID, p.Progress, meta, formatTime(p.UpdatedAt))
		if err != nil {
			return fmt.Errorf("failed to insert progress for %s: %w", p.BadgeID, err)
		}
	}
	return nil
}

func insertUnlockedBadges(ctx context.Context, q querier, unlocked []models.UnlockedBadge) error {
	for _, u := range unlocked {
		_, err := q.ExecContext(ctx, "INSERT INTO user_badges (badge_id, unlocked_at, seen) VALUES (?, ?, ?)",
			u.BadgeID, formatTime(u.UnlockedAt), boolToInt(u.Seen))
		if err != nil {
			return fmt.Errorf("failed to insert unlocked badge %s: %w", u.BadgeID, err)
		}
	}
	return nil
}

func queryBadgeProgress(ctx context.Context, q querier) ([]models.BadgeProgress, error) {
	rows, err := q.QueryContext(ctx, "SELECT badge_id, progress, metadata, updated_at FROM badge_progress ORDER BY badge_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	progress := []models.BadgeProgress{}
	for rows.Next() {
		var p models.BadgeProgress
		var meta sql.NullString
		var updatedAt string
		if err := rows.Scan(&p.BadgeID, &p.Progress, &meta, &updatedAt); err != nil {
			return nil, err
		}
		if meta.Valid {
			p.Metadata = json.RawMessage(meta.String)
		}
		if p.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
			return nil, err
		}
		progress = append(progress, p)
	}
	return progress, rows.Err()
}

func queryUnlockedBadges(ctx context.Context, q querier) ([]models.UnlockedBadge, error) {
	rows, err := q.QueryContext(ctx, "SELECT badge_id, unlocked_at, seen FROM user_badges ORDER BY badge_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	unlocked := []models.UnlockedBadge{}
	for rows.Next() {
		var u models.UnlockedBadge
		var unlockedAt string
		var seen int
		if err := rows.Scan(&u.BadgeID, &unlockedAt, &seen); err != nil {
			return nil, err
		}
		u.Seen = seen == 1
		if u.UnlockedAt, err = parseTime("unlocked_at", unlockedAt); err != nil {
			return nil, err
		}
		unlocked = append(unlocked, u)
	}
	return unlocked, rows.Err()
}
