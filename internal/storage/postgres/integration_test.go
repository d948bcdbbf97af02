package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/smartfox/smartfox/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Запускается только при заданном SMARTFOX_TEST_PG_DSN.
func TestStorage_Postgres(t *testing.T) {
	dsn := os.Getenv("SMARTFOX_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("SMARTFOX_TEST_PG_DSN is not set")
	}

	ctx := context.Background()

	st, err := NewStorage(ctx, dsn, "test-"+t.Name())
	require.NoError(t, err)
	defer st.Close()

	defer func() {
		for _, key := range storage.SessionKeys {
			_ = st.Remove(ctx, key)
		}
	}()

	require.NoError(t, st.Set(ctx, storage.KeyToken, "a"))
	require.NoError(t, st.Set(ctx, storage.KeyToken, "b"))

	value, err := st.Get(ctx, storage.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "b", value)

	require.NoError(t, st.Remove(ctx, storage.KeyToken))
	_, err = st.Get(ctx, storage.KeyToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
