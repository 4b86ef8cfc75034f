package types

// Flow 一个完整的对话流：节点与连线，按插入顺序排列
type Flow struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Position 画布坐标
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData 节点内容
type NodeData struct {
	Value string `json:"value"`
}

// Node 一个消息块
type Node struct {
	ID             string         `json:"id"`
	Type           NodeType       `json:"type"`
	Position       Position       `json:"position"`
	SourcePosition HandlePosition `json:"sourcePosition,omitempty"`
	TargetPosition HandlePosition `json:"targetPosition,omitempty"`
	Data           NodeData       `json:"data"`
}

// Edge 从 Source 的输出到 Target 的输入的有向连线
type Edge struct {
	ID           string   `json:"id"`
	Source       string   `json:"source"`
	Target       string   `json:"target"`
	SourceHandle string   `json:"sourceHandle,omitempty"`
	TargetHandle string   `json:"targetHandle,omitempty"`
	Type         EdgeType `json:"type,omitempty"`
}

// EmptyFlow 返回一个空的 Flow（nodes/edges 序列化为 [] 而不是 null）
func EmptyFlow() Flow {
	return Flow{Nodes: []Node{}, Edges: []Edge{}}
}

// Clone 深拷贝
func (f Flow) Clone() Flow {
	out := Flow{
		Nodes: make([]Node, len(f.Nodes)),
		Edges: make([]Edge, len(f.Edges)),
	}
	copy(out.Nodes, f.Nodes)
	copy(out.Edges, f.Edges)
	return out
}

// IsEmpty 判断是否没有任何节点和连线
func (f Flow) IsEmpty() bool {
	return len(f.Nodes) == 0 && len(f.Edges) == 0
}
