package editor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"flowbuilder/internal/domain/flow/port"
	applog "flowbuilder/internal/platform/log"
)

// Manager 管理打开的编辑器会话。每个会话相当于一次页面加载：独立的图和 ID 序列，
// 打开时从同一个存储槽位载入
type Manager struct {
	gateway  *port.Gateway
	observer Observer
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager 创建会话管理器，observer 可为 nil
func NewManager(gateway *port.Gateway, observer Observer) *Manager {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Manager{
		gateway:  gateway,
		observer: observer,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// SetClock 替换时间来源（测试用）
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Open 创建新会话并载入已保存的流程。存储不可用时仍然返回空会话和错误，
// 调用方可以选择继续使用
func (m *Manager) Open(ctx context.Context) (*Session, port.LoadResult, error) {
	id := uuid.NewString()
	s := NewSession(id, m.gateway, WithObserver(m.observer), WithClock(m.now))

	result, err := s.Reload(ctx)
	if err != nil {
		applog.Warn("[Editor] Could not load saved flow, session starts empty", "session_id", id, "error", err)
	}

	m.mu.Lock()
	m.sessions[id] = s
	n := len(m.sessions)
	m.mu.Unlock()
	m.observer.SessionsChanged(n)

	applog.Info("[Editor] Session opened",
		"session_id", id,
		"nodes", len(result.Flow.Nodes),
		"edges", len(result.Flow.Edges),
		"corrupt", result.Corrupt,
	)
	return s, result, err
}

// Get 查找会话
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close 关闭会话，未保存的修改会丢失
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	if _, ok := m.sessions[id]; !ok {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	m.observer.SessionsChanged(n)
	applog.Info("[Editor] Session closed", "session_id", id)
	return nil
}

// Len 当前会话数
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep 关闭超过 idle 未活动的会话，返回关闭数量
func (m *Manager) Sweep(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	cutoff := m.now().Add(-idle)

	m.mu.RLock()
	var stale []string
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	closed := 0
	for _, id := range stale {
		if m.closeIfIdle(id, cutoff) {
			closed++
		}
	}
	if closed > 0 {
		applog.Info("[Editor] Idle sessions evicted", "count", closed, "idle", idle.String())
	}
	return closed
}

// closeIfIdle 在写锁内重新检查活动时间，挑选之后又有手势的会话不会被关闭
func (m *Manager) closeIfIdle(id string, cutoff time.Time) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || !s.LastActive().Before(cutoff) {
		m.mu.Unlock()
		return false
	}
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	m.observer.SessionsChanged(n)
	applog.Info("[Editor] Session closed", "session_id", id, "reason", "idle")
	return true
}

// RunJanitor 定期清理空闲会话，ctx 取消后返回
func (m *Manager) RunJanitor(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 || idle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(idle)
		}
	}
}
