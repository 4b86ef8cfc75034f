package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowbuilder/internal/db/file"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "storage.json")

	s, err := file.NewStore(path)
	require.NoError(t, err)

	_, ok, err := s.Get(ctx, "flow")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "flow", `{"nodes":[],"edges":[]}`))
	require.NoError(t, s.Set(ctx, "other", "x"))

	reopened, err := file.NewStore(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, "flow")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"nodes":[],"edges":[]}`, v)

	require.NoError(t, reopened.Delete(ctx, "flow"))
	_, ok, err = reopened.Get(ctx, "flow")
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, _ = reopened.Get(ctx, "other")
	assert.True(t, ok)
	assert.Equal(t, "x", v)
}

func TestStoreTreatsGarbageFileAsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	s, err := file.NewStore(path)
	require.NoError(t, err)

	_, ok, err := s.Get(ctx, "flow")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "flow", "v"))
	v, ok, err := s.Get(ctx, "flow")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestNewStoreRequiresPath(t *testing.T) {
	_, err := file.NewStore("")
	assert.Error(t, err)
}
