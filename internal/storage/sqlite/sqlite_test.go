package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/smartfox/smartfox/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	st, err := Open(ctx, path)
	require.NoError(t, err)

	require.NoError(t, st.Set(ctx, storage.KeyToken, "tok-1"))
	require.NoError(t, st.Set(ctx, storage.KeyRole, "student"))
	require.NoError(t, st.Set(ctx, storage.KeyToken, "tok-2"))
	require.NoError(t, st.Close())

	// Открываем заново, значения должны сохраниться
	st, err = Open(ctx, path)
	require.NoError(t, err)
	defer st.Close()

	value, err := st.Get(ctx, storage.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", value)

	require.NoError(t, st.Remove(ctx, storage.KeyToken))
	_, err = st.Get(ctx, storage.KeyToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	value, err = st.Get(ctx, storage.KeyRole)
	require.NoError(t, err)
	assert.Equal(t, "student", value)
}

func TestStorage_InMemory(t *testing.T) {
	ctx := context.Background()

	st, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Get(ctx, storage.KeyUserID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, st.Set(ctx, storage.KeyUserID, "7"))
	value, err := st.Get(ctx, storage.KeyUserID)
	require.NoError(t, err)
	assert.Equal(t, "7", value)
}
