package graph

import (
	"fmt"
	"strconv"

	types "flowbuilder/internal/domain/flow/model"
)

// Graph 对话流图：节点与连线的唯一权威来源。
// 非并发安全，调用方负责串行化（见 editor.Session）。
type Graph struct {
	nodes     []types.Node
	nodeIndex map[string]int // node_id -> nodes 下标

	edges     []types.Edge
	edgeIndex map[string]int    // edge_id -> edges 下标
	outEdge   map[string]string // source node_id -> edge_id

	ids    IDAllocator
	policy ConnectionPolicy
}

// Option 图的构造选项
type Option func(*Graph)

// WithIDAllocator 使用指定的 ID 分配器
func WithIDAllocator(a IDAllocator) Option {
	return func(g *Graph) { g.ids = a }
}

// WithPolicy 使用指定的连线约束策略
func WithPolicy(p ConnectionPolicy) Option {
	return func(g *Graph) { g.policy = p }
}

// New 创建空图
func New(opts ...Option) *Graph {
	g := &Graph{
		nodeIndex: make(map[string]int),
		edgeIndex: make(map[string]int),
		outEdge:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.ids == nil {
		g.ids = NewSequenceAllocator()
	}
	if g.policy == nil {
		g.policy = SingleOutgoingPolicy{}
	}
	return g
}

// AddNode 分配新 ID 并在指定位置创建节点，内容默认为 "<type> <id>"
func (g *Graph) AddNode(nodeType types.NodeType, pos types.Position) (types.Node, error) {
	if !nodeType.IsSupported() {
		return types.Node{}, fmt.Errorf("%w: %q", ErrUnsupportedNodeType, nodeType)
	}

	id := g.ids.Next()
	for g.hasNode(id) {
		id = g.ids.Next()
	}

	n := types.Node{
		ID:             id,
		Type:           nodeType,
		Position:       pos,
		SourcePosition: types.HandleRight,
		TargetPosition: types.HandleLeft,
		Data:           types.NodeData{Value: nodeType.DefaultContent(id)},
	}
	g.nodeIndex[id] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	return n, nil
}

// UpdateNodeContent 替换节点内容，空字符串是合法内容
func (g *Graph) UpdateNodeContent(nodeID, content string) error {
	i, ok := g.nodeIndex[nodeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	g.nodes[i].Data.Value = content
	return nil
}

// MoveNode 更新节点在画布上的位置
func (g *Graph) MoveNode(nodeID string, pos types.Position) error {
	i, ok := g.nodeIndex[nodeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	g.nodes[i].Position = pos
	return nil
}

// TryAddEdge 经约束策略判断后添加连线。
// 返回值 added 为 false 表示相同连线已存在（幂等，不是错误）；
// 被拒绝时返回 *ConstraintViolation，图保持不变。
func (g *Graph) TryAddEdge(conn Connection) (edge types.Edge, added bool, err error) {
	if !g.hasNode(conn.Source) {
		return types.Edge{}, false, fmt.Errorf("%w: source %s", ErrNodeNotFound, conn.Source)
	}
	if !g.hasNode(conn.Target) {
		return types.Edge{}, false, fmt.Errorf("%w: target %s", ErrNodeNotFound, conn.Target)
	}

	decision, err := g.policy.Evaluate(g.edges, conn)
	if err != nil {
		return types.Edge{}, false, err
	}

	if decision == DecisionDuplicate {
		for _, e := range g.edges {
			if conn.Matches(e) {
				return e, false, nil
			}
		}
	}

	e := conn.Edge()
	e.ID = g.uniqueEdgeID(e.ID)
	g.appendEdge(e)
	return e, true, nil
}

// uniqueEdgeID 派生 ID 可能与不同端点的连线重合（如 "1"+句柄"2" 与 "12"），
// 重合时追加序号
func (g *Graph) uniqueEdgeID(id string) string {
	if _, taken := g.edgeIndex[id]; !taken {
		return id
	}
	for n := 2; ; n++ {
		candidate := id + "~" + strconv.Itoa(n)
		if _, taken := g.edgeIndex[candidate]; !taken {
			return candidate
		}
	}
}

// RemoveEdge 删除连线
func (g *Graph) RemoveEdge(edgeID string) error {
	if _, ok := g.edgeIndex[edgeID]; !ok {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, edgeID)
	}
	g.filterEdges(func(e types.Edge) bool { return e.ID != edgeID })
	return nil
}

// RemoveNode 删除节点及所有与之相连的连线
func (g *Graph) RemoveNode(nodeID string) error {
	i, ok := g.nodeIndex[nodeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
	g.reindexNodes()
	g.filterEdges(func(e types.Edge) bool {
		return e.Source != nodeID && e.Target != nodeID
	})
	return nil
}

// Restore 用载入的 Flow 整体替换当前内容。
// 不满足 ID 唯一、引用完整、出度 ≤ 1 的数据会被拒绝，图保持不变。
func (g *Graph) Restore(flow types.Flow) error {
	nodeIndex := make(map[string]int, len(flow.Nodes))
	for i, n := range flow.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node at index %d has empty id", ErrInvalidFlow, i)
		}
		if _, dup := nodeIndex[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %s", ErrInvalidFlow, n.ID)
		}
		nodeIndex[n.ID] = i
	}

	edges := make([]types.Edge, 0, len(flow.Edges))
	edgeIndex := make(map[string]int, len(flow.Edges))
	outEdge := make(map[string]string, len(flow.Edges))
	for _, e := range flow.Edges {
		if e.ID == "" {
			e.ID = ConnectionOf(e).EdgeID()
		}
		if _, ok := nodeIndex[e.Source]; !ok {
			return fmt.Errorf("%w: edge %s references missing source %s", ErrInvalidFlow, e.ID, e.Source)
		}
		if _, ok := nodeIndex[e.Target]; !ok {
			return fmt.Errorf("%w: edge %s references missing target %s", ErrInvalidFlow, e.ID, e.Target)
		}
		if _, dup := edgeIndex[e.ID]; dup {
			return fmt.Errorf("%w: duplicate edge id %s", ErrInvalidFlow, e.ID)
		}
		if prev, taken := outEdge[e.Source]; taken {
			return fmt.Errorf("%w: node %s has more than one outgoing edge (%s, %s)", ErrInvalidFlow, e.Source, prev, e.ID)
		}
		edgeIndex[e.ID] = len(edges)
		outEdge[e.Source] = e.ID
		edges = append(edges, e)
	}

	nodes := make([]types.Node, len(flow.Nodes))
	copy(nodes, flow.Nodes)
	for _, n := range nodes {
		g.ids.Observe(n.ID)
	}

	g.nodes = nodes
	g.nodeIndex = nodeIndex
	g.edges = edges
	g.edgeIndex = edgeIndex
	g.outEdge = outEdge
	return nil
}

// Snapshot 返回当前图的拷贝，调用方修改不会影响图本身
func (g *Graph) Snapshot() types.Flow {
	return types.Flow{Nodes: g.nodes, Edges: g.edges}.Clone()
}

// Node 按 ID 查询节点
func (g *Graph) Node(id string) (types.Node, bool) {
	i, ok := g.nodeIndex[id]
	if !ok {
		return types.Node{}, false
	}
	return g.nodes[i], true
}

// OutgoingEdge 返回节点唯一的出边
func (g *Graph) OutgoingEdge(nodeID string) (types.Edge, bool) {
	id, ok := g.outEdge[nodeID]
	if !ok {
		return types.Edge{}, false
	}
	return g.edges[g.edgeIndex[id]], true
}

// IncomingEdges 返回节点的所有入边
func (g *Graph) IncomingEdges(nodeID string) []types.Edge {
	var result []types.Edge
	for _, e := range g.edges {
		if e.Target == nodeID {
			result = append(result, e)
		}
	}
	return result
}

// Len 节点数
func (g *Graph) Len() int { return len(g.nodes) }

// EdgeCount 连线数
func (g *Graph) EdgeCount() int { return len(g.edges) }

func (g *Graph) hasNode(id string) bool {
	_, ok := g.nodeIndex[id]
	return ok
}

func (g *Graph) appendEdge(e types.Edge) {
	g.edgeIndex[e.ID] = len(g.edges)
	g.outEdge[e.Source] = e.ID
	g.edges = append(g.edges, e)
}

func (g *Graph) reindexNodes() {
	g.nodeIndex = make(map[string]int, len(g.nodes))
	for i, n := range g.nodes {
		g.nodeIndex[n.ID] = i
	}
}

// filterEdges 保留 keep 返回 true 的连线并重建索引
func (g *Graph) filterEdges(keep func(types.Edge) bool) {
	kept := g.edges[:0]
	for _, e := range g.edges {
		if keep(e) {
			kept = append(kept, e)
		}
	}
	g.edges = kept
	g.edgeIndex = make(map[string]int, len(kept))
	g.outEdge = make(map[string]string, len(kept))
	for i, e := range kept {
		g.edgeIndex[e.ID] = i
		g.outEdge[e.Source] = e.ID
	}
}
