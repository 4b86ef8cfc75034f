package graph

import (
	types "flowbuilder/internal/domain/flow/model"
)

// Decision 约束策略对一次连线尝试的结论
type Decision int

const (
	// DecisionAccept 可以添加
	DecisionAccept Decision = iota
	// DecisionDuplicate 完全相同的连线已存在，幂等忽略
	DecisionDuplicate
)

// ConnectionPolicy 判断一条新连线能否加入当前连线集合
type ConnectionPolicy interface {
	Evaluate(edges []types.Edge, conn Connection) (Decision, error)
}

// SingleOutgoingPolicy 每个源节点至多一条出边，目标节点入边不限
type SingleOutgoingPolicy struct{}

// Evaluate 先做重复检测，再检查源节点出度。
// 重复按 (source, sourceHandle, target, targetHandle) 判断，与连线 ID 无关
func (SingleOutgoingPolicy) Evaluate(edges []types.Edge, conn Connection) (Decision, error) {
	for _, e := range edges {
		if conn.Matches(e) {
			return DecisionDuplicate, nil
		}
	}

	for _, e := range edges {
		if e.Source == conn.Source {
			return DecisionAccept, &ConstraintViolation{
				Kind:     ViolationSourceAlreadyConnected,
				Source:   conn.Source,
				Target:   conn.Target,
				Existing: e.ID,
				Reason:   "Source node is already connected to another node",
			}
		}
	}

	return DecisionAccept, nil
}
