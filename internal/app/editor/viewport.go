package editor

import types "flowbuilder/internal/domain/flow/model"

// Viewport 画布的平移与缩放。X/Y 为画布原点在屏幕上的偏移（已包含容器偏移）
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// ScreenToCanvas 屏幕坐标转换为画布坐标，Zoom 非正时按 1 处理
func (v Viewport) ScreenToCanvas(p types.Position) types.Position {
	zoom := v.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	return types.Position{
		X: (p.X - v.X) / zoom,
		Y: (p.Y - v.Y) / zoom,
	}
}
