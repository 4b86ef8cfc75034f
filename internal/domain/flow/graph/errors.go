package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound 节点不存在
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound 连线不存在
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrUnsupportedNodeType 节点类型不可创建
	ErrUnsupportedNodeType = errors.New("unsupported node type")

	// ErrSourceAlreadyConnected 源节点已有一条出边
	ErrSourceAlreadyConnected = errors.New("source node is already connected to another node")

	// ErrInvalidFlow 载入的数据不满足图的不变量
	ErrInvalidFlow = errors.New("invalid flow")
)

// ViolationKind 连线约束违规类型
type ViolationKind string

const (
	ViolationSourceAlreadyConnected ViolationKind = "source_already_connected"
)

// ConstraintViolation 连线被约束策略拒绝，图保持不变
type ConstraintViolation struct {
	Kind   ViolationKind `json:"kind"`
	Source string        `json:"source"`
	Target string        `json:"target"`
	// Existing 已占用该源节点出口的连线 ID
	Existing string `json:"existing,omitempty"`
	Reason   string `json:"reason"`
}

func (v *ConstraintViolation) Error() string {
	return fmt.Sprintf("connection %s -> %s rejected: %s", v.Source, v.Target, v.Reason)
}

func (v *ConstraintViolation) Unwrap() error {
	switch v.Kind {
	case ViolationSourceAlreadyConnected:
		return ErrSourceAlreadyConnected
	default:
		return nil
	}
}
