package types

import "fmt"

// NodeType 节点类型
type NodeType string

const (
	NodeTypeText NodeType = "text"
	// NodeTypeImage 节点选择器中的占位类型，尚未启用
	NodeTypeImage NodeType = "image"
)

// IsSupported 判断节点类型当前是否可以创建
func (nt NodeType) IsSupported() bool {
	return nt == NodeTypeText
}

// DefaultContent 新建节点的占位内容，如 "text 3"
func (nt NodeType) DefaultContent(id string) string {
	return fmt.Sprintf("%s %s", nt, id)
}

// HandlePosition 连接点在节点上的方位
type HandlePosition string

const (
	HandleLeft   HandlePosition = "left"
	HandleRight  HandlePosition = "right"
	HandleTop    HandlePosition = "top"
	HandleBottom HandlePosition = "bottom"
)

// EdgeType 渲染层使用的连线样式
type EdgeType string

const (
	EdgeTypeCustom EdgeType = "custom-edge"
)
