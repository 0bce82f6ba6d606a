package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/linkmark-service/internal/entity"
)

// settingsChannel is the NOTIFY channel fired after every Save.
const settingsChannel = "settings_changed"

const schema = `
	CREATE TABLE IF NOT EXISTS sync_settings (
		key        TEXT PRIMARY KEY,
		value      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
`

// SettingsRepoImpl is the synced store: one row per settings key.
type SettingsRepoImpl struct {
	db *pgxpool.Pool
}

// NewSettingsRepo creates a new instance of SettingsRepoImpl.
func NewSettingsRepo(db *pgxpool.Pool) *SettingsRepoImpl {
	return &SettingsRepoImpl{db: db}
}

// EnsureSchema creates the settings table when it does not exist.
func (r *SettingsRepoImpl) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, schema)
	return err
}

// Load reads every stored key over the defaults.
func (r *SettingsRepoImpl) Load(ctx context.Context) (entity.Settings, error) {
	rows, err := r.db.Query(ctx, `SELECT key, value FROM sync_settings;`)
	if err != nil {
		return entity.DefaultSettings(), err
	}
	defer rows.Close()

	stored := make(map[string]json.RawMessage)
	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return entity.DefaultSettings(), err
		}
		stored[key] = value
	}
	if err := rows.Err(); err != nil {
		return entity.DefaultSettings(), err
	}
	return decodeSettings(stored), nil
}

// Save upserts every key and notifies listeners in the same transaction.
func (r *SettingsRepoImpl) Save(ctx context.Context, s entity.Settings) error {
	values, err := encodeSettings(s)
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for key, value := range values {
			batch.Queue(`
				INSERT INTO sync_settings (key, value, updated_at)
				VALUES ($1, $2, now())
				ON CONFLICT (key) DO UPDATE SET
					value = EXCLUDED.value,
					updated_at = EXCLUDED.updated_at;
			`, key, []byte(value))
		}
		batch.Queue(`SELECT pg_notify($1, '');`, settingsChannel)
		return tx.SendBatch(ctx, batch).Close()
	})
}

// Watch holds one pooled connection in LISTEN mode and emits the reloaded
// settings after each notification.
func (r *SettingsRepoImpl) Watch(ctx context.Context) (<-chan entity.Settings, error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(ctx, "LISTEN "+settingsChannel); err != nil {
		conn.Release()
		return nil, err
	}

	ch := make(chan entity.Settings, 1)
	go func() {
		defer close(ch)
		defer func() {
			_, _ = conn.Exec(context.Background(), "UNLISTEN *")
			conn.Release()
		}()
		for {
			if _, err := conn.Conn().WaitForNotification(ctx); err != nil {
				return
			}
			s, err := r.Load(ctx)
			if err != nil {
				continue
			}
			select {
			case ch <- s:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// encodeSettings splits s into its stored keys.
func encodeSettings(s entity.Settings) (map[string]json.RawMessage, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	var values map[string]json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return values, nil
}

// decodeSettings overlays stored keys on the defaults one at a time, so a
// missing or malformed key only loses its own value.
func decodeSettings(stored map[string]json.RawMessage) entity.Settings {
	s := entity.DefaultSettings()
	for key, value := range stored {
		one, err := json.Marshal(map[string]json.RawMessage{key: value})
		if err != nil {
			continue
		}
		next := s
		if err := json.Unmarshal(one, &next); err != nil {
			continue
		}
		s = next
	}
	if s.ExcludeSites == nil {
		s.ExcludeSites = []string{}
	}
	return s
}
