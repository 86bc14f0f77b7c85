package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
	apperrors "github.com/shanky101/habit-tracker-mobile-sub000/internal/errors"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/jsoncol"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
)

type MascotRepo struct {
	s *Store
}

func (r *MascotRepo) Get(ctx context.Context) (*models.MascotCustomization, error) {
	m, err := queryMascot(ctx, r.s.db)
	if err != nil {
		return nil, apperrors.E(apperrors.KindQuery, "mascot.get", err)
	}
	return m, nil
}

func (r *MascotRepo) Save(ctx context.Context, mascot models.MascotCustomization) error {
	return r.s.withTx(ctx, "mascot.save", func(tx *sql.Tx) error {
		return upsertMascot(ctx, tx, mascot)
	})
}

func (r *MascotRepo) DeleteAll(ctx context.Context) error {
	_, err := r.s.exec(ctx, "mascot.deleteAll", "DELETE FROM mascot_customization")
	return err
}

func upsertMascot(ctx context.Context, q querier, m models.MascotCustomization) error {
	attributes, err := jsoncol.Encode(m.Attributes)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `INSERT INTO mascot_customization (id, name, attributes, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			attributes = excluded.attributes,
			updated_at = excluded.updated_at`,
		constants.DefaultMascotID, m.Name, attributes, formatTime(m.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save mascot customization: %w", err)
	}
	return nil
}

func queryMascot(ctx context.Context, q querier) (*models.MascotCustomization, error) {
	var m models.MascotCustomization
	var attributes sql.NullString
	var updatedAt string
	err := q.QueryRowContext(ctx, "SELECT id, name, attributes, updated_at FROM mascot_customization WHERE id = ?",
		constants.DefaultMascotID).Scan(&m.ID, &m.Name, &attributes, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.Attributes = jsoncol.DecodeNull[map[string]string](attributes).OrLog("mascot_customization.attributes", map[string]string{})
	if m.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}
