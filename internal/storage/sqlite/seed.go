package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/logger"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
)

//go:embed seed/defaults.yaml
var defaultsYAML []byte

type seedHabit struct {
	ID                   string `yaml:"id"`
	models.TemplateHabit `yaml:",inline"`
}

type seedFile struct {
	Habits    []seedHabit            `yaml:"habits"`
	Templates []models.HabitTemplate `yaml:"templates"`
}

func loadDefaults() (seedFile, error) {
	var f seedFile
	if err := yaml.Unmarshal(defaultsYAML, &f); err != nil {
		return f, fmt.Errorf("failed to parse embedded defaults: %w", err)
	}
	return f, nil
}

// DefaultTemplates returns the templates shipped with the app.
func DefaultTemplates() ([]models.HabitTemplate, error) {
	f, err := loadDefaults()
	if err != nil {
		return nil, err
	}
	for i := range f.Templates {
		f.Templates[i].IsDefault = true
	}
	return f.Templates, nil
}

// seedDefaults installs default templates on every start and default habits once.
// The habit seed is guarded by a sentinel; when the sentinel cannot be read the seed is
// attempted anyway and INSERT OR IGNORE keeps fixed ids from duplicating.
func (s *Store) seedDefaults(ctx context.Context) error {
	defaults, err := loadDefaults()
	if err != nil {
		return err
	}

	seedHabits := true
	var seeded bool
	found, err := s.metadata.Get(ctx, constants.MetaSeedDefaultHabits, &seeded)
	if err != nil {
		logger.Warn("Seed sentinel unreadable, seeding anyway", "error", err)
	} else if found && seeded {
		seedHabits = false
	}

	now := time.Now().UTC()
	return s.withTx(ctx, "sqlite.seed", func(tx *sql.Tx) error {
		for i, t := range defaults.Templates {
			t.IsDefault = true
			t.CreatedAt = now
			if err := insertTemplate(ctx, tx, t, i, true); err != nil {
				return err
			}
		}
		if !seedHabits {
			return nil
		}
		for i, h := range defaults.Habits {
			habit := h.Instantiate(h.ID, i, now)
			if err := insertHabit(ctx, tx, habit, i, true); err != nil {
				return err
			}
		}
		logger.Info("Seeded default habits", "count", len(defaults.Habits))
		return s.metadata.setTx(ctx, tx, constants.MetaSeedDefaultHabits, json.RawMessage("true"))
	})
}
