package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "github.com/shanky101/habit-tracker-mobile-sub000/internal/errors"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/jsoncol"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
)

type TemplateRepo struct {
	s *Store
}

const templateColumns = `id, name, description, category, emoji, habits, benefits, outcomes, timeline, is_default, created_at`

func (r *TemplateRepo) GetAll(ctx context.Context, includeDefaults bool) ([]models.HabitTemplate, error) {
	query := "SELECT " + templateColumns + " FROM habit_templates"
	if !includeDefaults {
		query += " WHERE is_default = 0"
	}
	query += " ORDER BY is_default DESC, position, id"

	templates, err := queryTemplates(ctx, r.s.db, query)
	if err != nil {
		return nil, apperrors.E(apperrors.KindQuery, "templates.getAll", err)
	}
	return templates, nil
}

func (r *TemplateRepo) GetByID(ctx context.Context, id string) (*models.HabitTemplate, error) {
	templates, err := queryTemplates(ctx, r.s.db, "SELECT "+templateColumns+" FROM habit_templates WHERE id = ?", id)
	if err != nil {
		return nil, apperrors.E(apperrors.KindQuery, "templates.getByID", err)
	}
	if len(templates) == 0 {
		return nil, nil
	}
	return &templates[0], nil
}

// SyncAll replaces user templates. Default rows are neither deleted nor overwritten;
// a user template reusing a default id is ignored.
func (r *TemplateRepo) SyncAll(ctx context.Context, templates []models.HabitTemplate) error {
	return r.s.withTx(ctx, "templates.syncAll", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM habit_templates WHERE is_default = 0"); err != nil {
			return fmt.Errorf("failed to clear user templates: %w", err)
		}
		position := 0
		for _, t := range templates {
			if t.IsDefault {
				continue
			}
			if err := insertTemplate(ctx, tx, t, position, true); err != nil {
				return err
			}
			position++
		}
		return nil
	})
}

func (r *TemplateRepo) DeleteAll(ctx context.Context) error {
	_, err := r.s.exec(ctx, "templates.deleteAll", "DELETE FROM habit_templates WHERE is_default = 0")
	return err
}

func insertTemplate(ctx context.Context, q querier, t models.HabitTemplate, position int, orIgnore bool) error {
	habits, err := jsoncol.Encode(t.Habits)
	if err != nil {
		return err
	}
	benefits, err := jsoncol.Encode(t.Benefits)
	if err != nil {
		return err
	}
	outcomes, err := jsoncol.Encode(t.Outcomes)
	if err != nil {
		return err
	}
	timeline, err := jsoncol.Encode(t.Timeline)
	if err != nil {
		return err
	}

	verb := "INSERT"
	if orIgnore {
		verb = "INSERT OR IGNORE"
	}
	_, err = q.ExecContext(ctx, verb+` INTO habit_templates (`+templateColumns+`, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Description, t.Category, t.Emoji, habits, benefits, outcomes, timeline,
		boolToInt(t.IsDefault), formatTime(t.CreatedAt), position,
	)
	if err != nil {
		return fmt.Errorf("failed to insert template %s: %w", t.ID, err)
	}
	return nil
}

func queryTemplates(ctx context.Context, q querier, query string, args ...any) ([]models.HabitTemplate, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []models.HabitTemplate{}
	for rows.Next() {
		var t models.HabitTemplate
		var habits, benefits, outcomes, timeline, createdAt string
		var isDefault int
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Category, &t.Emoji,
			&habits, &benefits, &outcomes, &timeline, &isDefault, &createdAt); err != nil {
			return nil, err
		}
		t.Habits = jsoncol.Decode[[]models.TemplateHabit](habits).OrLog("habit_templates.habits", []models.TemplateHabit{})
		t.Benefits = jsoncol.Decode[[]string](benefits).OrLog("habit_templates.benefits", []string{})
		t.Outcomes = jsoncol.Decode[[]string](outcomes).OrLog("habit_templates.outcomes", []string{})
		t.Timeline = jsoncol.Decode[[]models.TimelineStep](timeline).OrLog("habit_templates.timeline", []models.TimelineStep{})
		t.IsDefault = isDefault == 1
		if t.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}
