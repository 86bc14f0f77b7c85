package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	apperrors "github.com/shanky101/habit-tracker-mobile-sub000/internal/errors"
)

// KeyValueRepo backs app_metadata and settings. Values are stored as JSON text.
type KeyValueRepo struct {
	s     *Store
	table string
	// stamped tables carry an updated_at column.
	stamped bool
}

func (r *KeyValueRepo) Get(ctx context.Context, key string, dest any) (bool, error) {
	var raw string
	err := r.s.db.QueryRowContext(ctx, "SELECT value FROM "+r.table+" WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.E(apperrors.KindQuery, r.table+".get", err)
	}
	if dest == nil {
		return true, nil
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return true, apperrors.E(apperrors.KindParse, r.table+".get", fmt.Errorf("key %s: %w", key, err))
	}
	return true, nil
}

func (r *KeyValueRepo) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	_, err = r.s.exec(ctx, r.table+".set", r.upsertSQL(), r.upsertArgs(key, raw)...)
	return err
}

func (r *KeyValueRepo) Delete(ctx context.Context, key string) error {
	_, err := r.s.exec(ctx, r.table+".delete", "DELETE FROM "+r.table+" WHERE key = ?", key)
	return err
}

func (r *KeyValueRepo) All(ctx context.Context) (map[string]json.RawMessage, error) {
	return r.all(ctx, r.s.db)
}

func (r *KeyValueRepo) all(ctx context.Context, q querier) (map[string]json.RawMessage, error) {
	rows, err := q.QueryContext(ctx, "SELECT key, value FROM "+r.table)
	if err != nil {
		return nil, apperrors.E(apperrors.KindQuery, r.table+".all", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, apperrors.E(apperrors.KindQuery, r.table+".all", err)
		}
		out[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.E(apperrors.KindQuery, r.table+".all", err)
	}
	return out, nil
}

func (r *KeyValueRepo) upsertSQL() string {
	if r.stamped {
		return "INSERT INTO " + r.table + ` (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	}
	return "INSERT INTO " + r.table + ` (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
}

func (r *KeyValueRepo) upsertArgs(key string, raw []byte) []any {
	if r.stamped {
		return []any{key, string(raw), formatTime(time.Now())}
	}
	return []any{key, string(raw)}
}

// setTx upserts a raw value inside an open transaction.
func (r *KeyValueRepo) setTx(ctx context.Context, tx *sql.Tx, key string, raw json.RawMessage) error {
	if !json.Valid(raw) {
		return fmt.Errorf("%s value for %s is not valid JSON", r.table, key)
	}
	if _, err := tx.ExecContext(ctx, r.upsertSQL(), r.upsertArgs(key, raw)...); err != nil {
		return fmt.Errorf("failed to write %s key %s: %w", r.table, key, err)
	}
	return nil
}

// sortedKeys gives map writes a stable order.
func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
