package editor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowbuilder/internal/db/memory"
	types "flowbuilder/internal/domain/flow/model"
	"flowbuilder/internal/domain/flow/port"
)

func TestCloseIfIdleSparesSessionActiveSinceScan(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager(port.NewGateway(memory.NewStore(), ""), nil)
	m.SetClock(func() time.Time { return now })

	s, _, err := m.Open(context.Background())
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	cutoff := now.Add(-time.Hour)
	require.True(t, s.LastActive().Before(cutoff), "session looks idle when picked")

	// 挑选之后、关闭之前又有一次手势
	_, _, err = s.Drop(types.NodeTypeText, types.Position{}, nil)
	require.NoError(t, err)

	assert.False(t, m.closeIfIdle(s.ID(), cutoff))
	_, err = m.Get(s.ID())
	assert.NoError(t, err)

	now = now.Add(2 * time.Hour)
	assert.True(t, m.closeIfIdle(s.ID(), now.Add(-time.Hour)))
	assert.False(t, m.closeIfIdle(s.ID(), now.Add(-time.Hour)), "already closed")
	assert.Equal(t, 0, m.Len())
}
