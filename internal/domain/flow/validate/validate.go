// Package validate 保存前的结构校验。
//
// 校验只看每个节点是否至少接触一条连线，不做从起点出发的可达性分析：
// 两个各自连通、彼此隔离的子图可以通过校验。
package validate

import (
	"errors"
	"fmt"
	"strings"

	types "flowbuilder/internal/domain/flow/model"
)

// MaxDisconnected 允许存在的孤立节点上限
const MaxDisconnected = 1

// ErrMultipleDisconnectedNodes 存在多个孤立节点
var ErrMultipleDisconnectedNodes = errors.New("there are multiple disconnected nodes in the flow")

// FailureKind 校验失败类型
type FailureKind string

const (
	FailureMultipleDisconnectedNodes FailureKind = "multiple_disconnected_nodes"
)

// ValidationFailure 校验未通过，保存应被中止
type ValidationFailure struct {
	Kind    FailureKind `json:"kind"`
	Count   int         `json:"count"`
	NodeIDs []string    `json:"node_ids"`
}

func (f *ValidationFailure) Error() string {
	return fmt.Sprintf("%s (%d: %s)", ErrMultipleDisconnectedNodes.Error(), f.Count, strings.Join(f.NodeIDs, ", "))
}

func (f *ValidationFailure) Unwrap() error {
	if f.Kind == FailureMultipleDisconnectedNodes {
		return ErrMultipleDisconnectedNodes
	}
	return nil
}

// Report 校验结果
type Report struct {
	NodeCount    int      `json:"node_count"`
	EdgeCount    int      `json:"edge_count"`
	Disconnected []string `json:"disconnected"`
	Valid        bool     `json:"valid"`
}

// Validator 结构校验器
type Validator struct {
	maxDisconnected int
}

// New 创建默认校验器（至多 1 个孤立节点）
func New() *Validator {
	return &Validator{maxDisconnected: MaxDisconnected}
}

// Disconnected 返回既不是任何连线的源也不是任何连线的目标的节点 ID，保持节点顺序
func Disconnected(flow types.Flow) []string {
	touched := make(map[string]struct{}, len(flow.Edges)*2)
	for _, e := range flow.Edges {
		touched[e.Source] = struct{}{}
		touched[e.Target] = struct{}{}
	}

	result := make([]string, 0)
	for _, n := range flow.Nodes {
		if _, ok := touched[n.ID]; !ok {
			result = append(result, n.ID)
		}
	}
	return result
}

// Validate 检查 flow。Report 总是返回；孤立节点超过上限时同时返回 *ValidationFailure
func (v *Validator) Validate(flow types.Flow) (*Report, error) {
	disconnected := Disconnected(flow)
	report := &Report{
		NodeCount:    len(flow.Nodes),
		EdgeCount:    len(flow.Edges),
		Disconnected: disconnected,
		Valid:        len(disconnected) <= v.maxDisconnected,
	}

	if !report.Valid {
		return report, &ValidationFailure{
			Kind:    FailureMultipleDisconnectedNodes,
			Count:   len(disconnected),
			NodeIDs: disconnected,
		}
	}
	return report, nil
}
