package port

import "context"

// DefaultFlowKey 保存对话流的固定槽位名
const DefaultFlowKey = "flow"

// KVStore 键值存储。Get 在 key 不存在时返回 ok=false 且 err=nil
type KVStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
