package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"flowbuilder/internal/domain/flow/graph"
	types "flowbuilder/internal/domain/flow/model"
	"flowbuilder/internal/domain/flow/port"
	"flowbuilder/internal/domain/flow/validate"
	applog "flowbuilder/internal/platform/log"
)

// View 会话对外的只读视图
type View struct {
	ID          string      `json:"id"`
	Flow        types.Flow  `json:"flow"`
	Selected    *types.Node `json:"selected,omitempty"`
	Saved       bool        `json:"saved"`
	SavedAt     *time.Time  `json:"saved_at,omitempty"`
	LoadWarning string      `json:"load_warning,omitempty"`
}

// Session 一个编辑器实例：持有自己的图、当前选中节点和保存提示。
// 所有手势在会话锁内串行执行，读者总是看到完整应用后的状态
type Session struct {
	id string

	mu          sync.Mutex
	graph       *graph.Graph
	selected    string
	indicator   SaveIndicator
	loadWarning string
	lastActive  time.Time

	validator *validate.Validator
	gateway   *port.Gateway
	observer  Observer
	now       func() time.Time
	log       *slog.Logger
}

// SessionOption 会话构造选项
type SessionOption func(*Session)

// WithObserver 设置编辑事件统计
func WithObserver(o Observer) SessionOption {
	return func(s *Session) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock 替换时间来源（测试用）
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession 创建空会话，不读取存储
func NewSession(id string, gateway *port.Gateway, opts ...SessionOption) *Session {
	s := &Session{
		id:        id,
		graph:     graph.New(),
		validator: validate.New(),
		gateway:   gateway,
		observer:  nopObserver{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = applog.Component("editor").With("session_id", id)
	s.lastActive = s.now()
	return s
}

// ID 会话 ID
func (s *Session) ID() string { return s.id }

// LastActive 最近一次手势的时间
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Drop 在屏幕坐标处放下一个节点。nodeType 为空时忽略（ok=false, err=nil）；
// vp 为 nil 时 pos 直接视为画布坐标
func (s *Session) Drop(nodeType types.NodeType, pos types.Position, vp *Viewport) (node types.Node, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if nodeType == "" {
		return types.Node{}, false, nil
	}
	if !paletteEnabled(nodeType) {
		return types.Node{}, false, fmt.Errorf("%w: %q", graph.ErrUnsupportedNodeType, nodeType)
	}

	if vp != nil {
		pos = vp.ScreenToCanvas(pos)
	}

	n, err := s.graph.AddNode(nodeType, pos)
	if err != nil {
		return types.Node{}, false, err
	}

	s.observer.NodeCreated()
	s.log.Debug("[Editor] Node dropped", "node_id", n.ID, "type", n.Type, "x", pos.X, "y", pos.Y)
	return n, true, nil
}

// Connect 尝试连线。被拒绝时返回 *graph.ConstraintViolation，图不变
func (s *Session) Connect(conn graph.Connection) (types.Edge, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	e, added, err := s.graph.TryAddEdge(conn)
	if err != nil {
		var violation *graph.ConstraintViolation
		if errors.As(err, &violation) {
			s.observer.ConnectionRejected(string(violation.Kind))
			s.log.Info("[Editor] Connection rejected",
				"source", conn.Source,
				"target", conn.Target,
				"reason", violation.Reason,
			)
		}
		return types.Edge{}, false, err
	}

	if added {
		s.observer.EdgeCreated()
		s.log.Debug("[Editor] Connection added", "edge_id", e.ID)
	}
	return e, added, nil
}

// Select 选中节点，侧栏切换为编辑器
func (s *Session) Select(nodeID string) (types.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	n, ok := s.graph.Node(nodeID)
	if !ok {
		return types.Node{}, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, nodeID)
	}
	s.selected = nodeID
	return n, nil
}

// ClearSelection 取消选中（点击空白画布、连线或返回按钮）
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.selected = ""
}

// EditSelected 修改选中节点的内容。没有选中节点或节点已不存在时为空操作
func (s *Session) EditSelected(value string) (types.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.selected == "" {
		return types.Node{}, false
	}
	if err := s.graph.UpdateNodeContent(s.selected, value); err != nil {
		s.log.Debug("[Editor] Selected node vanished, edit ignored", "node_id", s.selected)
		s.selected = ""
		return types.Node{}, false
	}
	n, _ := s.graph.Node(s.selected)
	return n, true
}

// UpdateContent 按 ID 修改节点内容，节点不存在时返回 graph.ErrNodeNotFound
func (s *Session) UpdateContent(nodeID, value string) (types.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.graph.UpdateNodeContent(nodeID, value); err != nil {
		return types.Node{}, err
	}
	n, _ := s.graph.Node(nodeID)
	return n, nil
}

// Move 拖动节点
func (s *Session) Move(nodeID string, pos types.Position) (types.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.graph.MoveNode(nodeID, pos); err != nil {
		return types.Node{}, err
	}
	n, _ := s.graph.Node(nodeID)
	return n, nil
}

// RemoveNode 删除节点及其连线
func (s *Session) RemoveNode(nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	before := s.graph.EdgeCount()
	if err := s.graph.RemoveNode(nodeID); err != nil {
		return err
	}
	if s.selected == nodeID {
		s.selected = ""
	}

	s.observer.NodeRemoved()
	for i := s.graph.EdgeCount(); i < before; i++ {
		s.observer.EdgeRemoved()
	}
	return nil
}

// RemoveEdge 删除连线
func (s *Session) RemoveEdge(edgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.graph.RemoveEdge(edgeID); err != nil {
		return err
	}
	s.observer.EdgeRemoved()
	return nil
}

// Validate 只做校验，不保存
func (s *Session) Validate() (*validate.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	report, err := s.validator.Validate(s.graph.Snapshot())
	s.observer.ObserveValidation(report.Valid)
	return report, err
}

// Save 校验通过后写入存储。校验失败时返回 *validate.ValidationFailure，不写存储
func (s *Session) Save(ctx context.Context) (*validate.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	flow := s.graph.Snapshot()
	report, err := s.validator.Validate(flow)
	s.observer.ObserveValidation(report.Valid)
	if err != nil {
		s.log.Info("[Editor] Save rejected by validation", "disconnected", report.Disconnected)
		return report, err
	}

	if err := s.gateway.Save(ctx, flow); err != nil {
		return report, err
	}
	s.indicator.Mark(s.now())
	return report, nil
}

// Reload 从存储读取并替换当前图。内容损坏或不满足图的约束时以空图启动并记录警告；
// 存储本身出错时保留当前图并返回错误
func (s *Session) Reload(ctx context.Context) (port.LoadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	result, err := s.gateway.Load(ctx)
	if err != nil {
		return result, err
	}

	s.loadWarning = ""
	if result.Corrupt {
		s.loadWarning = result.CorruptErr.Error()
	}

	if err := s.graph.Restore(result.Flow); err != nil {
		s.log.Warn("[Editor] Stored flow violates graph constraints, starting empty", "error", err)
		result = port.LoadResult{
			Flow:       types.EmptyFlow(),
			Found:      true,
			Corrupt:    true,
			CorruptErr: fmt.Errorf("%w: %v", port.ErrCorruptFlow, err),
		}
		s.loadWarning = result.CorruptErr.Error()
		_ = s.graph.Restore(result.Flow)
	}
	s.selected = ""
	return result, nil
}

// View 返回当前状态快照
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:          s.id,
		Flow:        s.graph.Snapshot(),
		Saved:       s.indicator.Saved(s.now()),
		LoadWarning: s.loadWarning,
	}
	if s.selected != "" {
		if n, ok := s.graph.Node(s.selected); ok {
			v.Selected = &n
		}
	}
	if at := s.indicator.SavedAt(); !at.IsZero() {
		v.SavedAt = &at
	}
	return v
}

// Snapshot 当前图的拷贝
func (s *Session) Snapshot() types.Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Snapshot()
}

func (s *Session) touch() {
	s.lastActive = s.now()
}
