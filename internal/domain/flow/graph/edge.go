package graph

import (
	"strings"

	types "flowbuilder/internal/domain/flow/model"
)

const edgeIDPrefix = "reactflow__edge-"

// Connection 一次连线尝试（来自画布的 connect 事件）
type Connection struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// EdgeID 由 (source, sourceHandle, target, targetHandle) 确定性地生成连线 ID，
// 格式与画布库一致
func (c Connection) EdgeID() string {
	var b strings.Builder
	b.Grow(len(edgeIDPrefix) + len(c.Source) + len(c.SourceHandle) + len(c.Target) + len(c.TargetHandle) + 1)
	b.WriteString(edgeIDPrefix)
	b.WriteString(c.Source)
	b.WriteString(c.SourceHandle)
	b.WriteByte('-')
	b.WriteString(c.Target)
	b.WriteString(c.TargetHandle)
	return b.String()
}

// Edge 根据连线尝试构造 Edge
func (c Connection) Edge() types.Edge {
	return types.Edge{
		ID:           c.EdgeID(),
		Source:       c.Source,
		Target:       c.Target,
		SourceHandle: c.SourceHandle,
		TargetHandle: c.TargetHandle,
		Type:         types.EdgeTypeCustom,
	}
}

// Matches 判断已有连线是否连接同一对端点与句柄
func (c Connection) Matches(e types.Edge) bool {
	return e.Source == c.Source &&
		e.Target == c.Target &&
		e.SourceHandle == c.SourceHandle &&
		e.TargetHandle == c.TargetHandle
}

// ConnectionOf 从已有连线还原连线尝试
func ConnectionOf(e types.Edge) Connection {
	return Connection{
		Source:       e.Source,
		Target:       e.Target,
		SourceHandle: e.SourceHandle,
		TargetHandle: e.TargetHandle,
	}
}
