package postgres

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/linkmark-service/internal/entity"
)

func TestDecodeSettings_MissingKeysUseDefaults(t *testing.T) {
	assert.Equal(t, entity.DefaultSettings(), decodeSettings(nil))

	got := decodeSettings(map[string]json.RawMessage{
		"markStyle":    json.RawMessage(`"underline"`),
		"excludeSites": json.RawMessage(`["a.test"]`),
	})
	want := entity.DefaultSettings()
	want.MarkStyle = entity.StyleUnderline
	want.ExcludeSites = []string{"a.test"}
	assert.Equal(t, want, got)
}

func TestDecodeSettings_MalformedKeyKeepsDefault(t *testing.T) {
	got := decodeSettings(map[string]json.RawMessage{
		"enabled":             json.RawMessage(`"yes"`),
		"customRetentionTime": json.RawMessage(`14`),
		"unknownKey":          json.RawMessage(`{}`),
	})
	assert.True(t, got.Enabled)
	assert.Equal(t, 14, got.CustomRetentionTime)
}

func TestEncodeSettings_OneValuePerKey(t *testing.T) {
	values, err := encodeSettings(entity.DefaultSettings())
	require.NoError(t, err)
	assert.Len(t, values, 11)
	assert.JSONEq(t, `"border"`, string(values["markStyle"]))
	assert.Equal(t, entity.DefaultSettings(), decodeSettings(values))
}

// TestSettingsRepo_Postgres runs against a real database when
// POSTGRES_TEST_URL is set.
func TestSettingsRepo_Postgres(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_URL")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewSettingsRepo(pool)
	require.NoError(t, repo.EnsureSchema(ctx))
	_, err = pool.Exec(ctx, `DELETE FROM sync_settings;`)
	require.NoError(t, err)

	ch, err := repo.Watch(ctx)
	require.NoError(t, err)

	s := entity.DefaultSettings()
	s.HistoryMode = entity.HistoryCustom
	s.ExcludeSites = []string{"a.test"}
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	select {
	case notified := <-ch:
		assert.Equal(t, s, notified)
	case <-ctx.Done():
		t.Fatal("no settings notification")
	}
}
