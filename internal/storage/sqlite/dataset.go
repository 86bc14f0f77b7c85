package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
)

// ReplaceDataset clears every data table and writes ds in one transaction. Parents are
// written before children and singletons are upserted last. Any failure rolls back the
// whole replacement.
//
// Keys under "device." describe this installation, not the data, so the local values
// survive the replacement. The habit seed sentinel is re-asserted so restored data is
// never topped up with defaults on the next start.
func (s *Store) ReplaceDataset(ctx context.Context, ds *models.Dataset) (models.RestoreCounts, error) {
	var counts models.RestoreCounts
	if ds == nil {
		return counts, fmt.Errorf("nil dataset")
	}

	err := s.withTx(ctx, "sqlite.replaceDataset", func(tx *sql.Tx) error {
		local, err := deviceScopedMetadata(ctx, tx)
		if err != nil {
			return err
		}

		for _, table := range persistedTables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		habits := make([]models.Habit, len(ds.Habits))
		for i, h := range ds.Habits {
			h.Completions = nil
			habits[i] = h
		}
		if err := insertHabitRows(ctx, tx, habits, ds.Completions, ds.Entries); err != nil {
			return err
		}
		counts.Habits = len(habits)
		counts.Completions = len(ds.Completions)
		counts.Entries = len(ds.Entries)

		// Positions are counted per group so defaults and user templates each keep their order.
		positions := map[bool]int{}
		for _, t := range ds.Templates {
			if err := insertTemplate(ctx, tx, t, positions[t.IsDefault], false); err != nil {
				return err
			}
			positions[t.IsDefault]++
		}
		counts.Templates = len(ds.Templates)

		if err := insertVacation(ctx, tx, ds.Vacation); err != nil {
			return err
		}
		counts.Vacation = len(ds.Vacation)

		if err := insertBadgeProgress(ctx, tx, ds.BadgeProgress); err != nil {
			return err
		}
		if err := insertUnlockedBadges(ctx, tx, ds.UnlockedBadges); err != nil {
			return err
		}
		counts.BadgeProgress = len(ds.BadgeProgress)
		counts.UnlockedBadges = len(ds.UnlockedBadges)

		if ds.UserProfile != nil {
			if err := upsertProfile(ctx, tx, *ds.UserProfile); err != nil {
				return err
			}
			counts.Profile = true
		}
		if ds.Mascot != nil {
			if err := upsertMascot(ctx, tx, *ds.Mascot); err != nil {
				return err
			}
			counts.Mascot = true
		}

		for _, key := range sortedKeys(ds.Settings) {
			if err := s.settings.setTx(ctx, tx, key, ds.Settings[key]); err != nil {
				return err
			}
		}
		counts.Settings = len(ds.Settings)

		for _, key := range sortedKeys(ds.Metadata) {
			if isDeviceScoped(key) || key == constants.MetaSeedDefaultHabits {
				continue
			}
			if err := s.metadata.setTx(ctx, tx, key, ds.Metadata[key]); err != nil {
				return err
			}
			counts.Metadata++
		}
		for _, key := range sortedKeys(local) {
			if err := s.metadata.setTx(ctx, tx, key, local[key]); err != nil {
				return err
			}
		}
		return s.metadata.setTx(ctx, tx, constants.MetaSeedDefaultHabits, json.RawMessage("true"))
	})
	if err != nil {
		return models.RestoreCounts{}, err
	}
	return counts, nil
}

func isDeviceScoped(key string) bool {
	return strings.HasPrefix(key, "device.")
}

func deviceScopedMetadata(ctx context.Context, tx *sql.Tx) (map[string]json.RawMessage, error) {
	rows, err := tx.QueryContext(ctx, "SELECT key, value FROM app_metadata WHERE key LIKE 'device.%'")
	if err != nil {
		return nil, fmt.Errorf("failed to read device metadata: %w", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return out, nil
}
