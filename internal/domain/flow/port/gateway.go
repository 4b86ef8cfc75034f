package port

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	types "flowbuilder/internal/domain/flow/model"
	applog "flowbuilder/internal/platform/log"
)

// ErrCorruptFlow 槽位中的内容无法解析为 Flow
var ErrCorruptFlow = errors.New("stored flow is corrupt")

// LoadResult 读取结果。Corrupt 为 true 时 Flow 为空，CorruptErr 记录原因
type LoadResult struct {
	Flow       types.Flow
	Found      bool
	Corrupt    bool
	CorruptErr error
}

// Recorder 保存/读取结果的统计接口（可选）
type Recorder interface {
	ObserveSave(ok bool)
	ObserveLoad(outcome string)
}

// Gateway 将 Flow 序列化到单个键值槽位
type Gateway struct {
	store    KVStore
	key      string
	recorder Recorder
}

// NewGateway 创建网关，key 为空时使用 DefaultFlowKey
func NewGateway(store KVStore, key string) *Gateway {
	if key == "" {
		key = DefaultFlowKey
	}
	return &Gateway{store: store, key: key}
}

// WithRecorder 设置统计
func (g *Gateway) WithRecorder(r Recorder) *Gateway {
	g.recorder = r
	return g
}

// Key 返回槽位名
func (g *Gateway) Key() string { return g.key }

// Save 覆盖写入槽位
func (g *Gateway) Save(ctx context.Context, flow types.Flow) error {
	data, err := Encode(flow)
	if err != nil {
		g.observeSave(false)
		return err
	}

	if err := g.store.Set(ctx, g.key, string(data)); err != nil {
		applog.Error("[Flow/Gateway] Save failed", "key", g.key, "error", err)
		g.observeSave(false)
		return fmt.Errorf("save flow %q: %w", g.key, err)
	}

	applog.Info("[Flow/Gateway] Flow saved",
		"key", g.key,
		"nodes", len(flow.Nodes),
		"edges", len(flow.Edges),
	)
	g.observeSave(true)
	return nil
}

// Load 读取槽位。不存在时返回空 Flow；内容损坏时返回空 Flow 并标记 Corrupt，
// 只有存储本身出错才返回 error
func (g *Gateway) Load(ctx context.Context) (LoadResult, error) {
	raw, ok, err := g.store.Get(ctx, g.key)
	if err != nil {
		applog.Error("[Flow/Gateway] Load failed", "key", g.key, "error", err)
		g.observeLoad("error")
		return LoadResult{Flow: types.EmptyFlow()}, fmt.Errorf("load flow %q: %w", g.key, err)
	}
	if !ok {
		applog.Debug("[Flow/Gateway] No saved flow, starting empty", "key", g.key)
		g.observeLoad("absent")
		return LoadResult{Flow: types.EmptyFlow()}, nil
	}

	flow, err := Decode([]byte(raw))
	if err != nil {
		applog.Warn("[Flow/Gateway] Stored flow is corrupt, starting empty", "key", g.key, "error", err)
		g.observeLoad("corrupt")
		return LoadResult{Flow: types.EmptyFlow(), Found: true, Corrupt: true, CorruptErr: err}, nil
	}

	applog.Info("[Flow/Gateway] Flow loaded",
		"key", g.key,
		"nodes", len(flow.Nodes),
		"edges", len(flow.Edges),
	)
	g.observeLoad("ok")
	return LoadResult{Flow: flow, Found: true}, nil
}

// Clear 删除槽位
func (g *Gateway) Clear(ctx context.Context) error {
	if err := g.store.Delete(ctx, g.key); err != nil {
		return fmt.Errorf("clear flow %q: %w", g.key, err)
	}
	return nil
}

// Encode 序列化为 {"nodes": [...], "edges": [...]}
func Encode(flow types.Flow) ([]byte, error) {
	if flow.Nodes == nil {
		flow.Nodes = []types.Node{}
	}
	if flow.Edges == nil {
		flow.Edges = []types.Edge{}
	}
	data, err := json.Marshal(flow)
	if err != nil {
		return nil, fmt.Errorf("encode flow: %w", err)
	}
	return data, nil
}

// Decode 解析存储内容，任何格式问题都包装为 ErrCorruptFlow
func Decode(data []byte) (types.Flow, error) {
	var flow types.Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return types.EmptyFlow(), fmt.Errorf("%w: %v", ErrCorruptFlow, err)
	}
	if flow.Nodes == nil {
		flow.Nodes = []types.Node{}
	}
	if flow.Edges == nil {
		flow.Edges = []types.Edge{}
	}
	return flow, nil
}

func (g *Gateway) observeSave(ok bool) {
	if g.recorder != nil {
		g.recorder.ObserveSave(ok)
	}
}

func (g *Gateway) observeLoad(outcome string) {
	if g.recorder != nil {
		g.recorder.ObserveLoad(outcome)
	}
}
