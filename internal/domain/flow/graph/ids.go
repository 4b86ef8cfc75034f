package graph

import "strconv"

// IDAllocator 节点 ID 分配器，生命周期与所属图一致
type IDAllocator interface {
	// Next 返回下一个未使用的 ID
	Next() string
	// Observe 告知分配器某个 ID 已被占用（例如从存储中载入）
	Observe(id string)
}

// SequenceAllocator 从 1 开始递增的十进制 ID
type SequenceAllocator struct {
	next uint64
}

// NewSequenceAllocator 创建从 1 开始的分配器
func NewSequenceAllocator() *SequenceAllocator {
	return &SequenceAllocator{next: 1}
}

func (a *SequenceAllocator) Next() string {
	id := strconv.FormatUint(a.next, 10)
	a.next++
	return id
}

// Observe 非数字 ID 不影响序列
func (a *SequenceAllocator) Observe(id string) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return
	}
	if n >= a.next {
		a.next = n + 1
	}
}
