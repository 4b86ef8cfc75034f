package editor

import types "flowbuilder/internal/domain/flow/model"

// PaletteEntry 节点选择器中的一项
type PaletteEntry struct {
	Type    types.NodeType `json:"type"`
	Label   string         `json:"label"`
	Enabled bool           `json:"enabled"`
}

var palette = []PaletteEntry{
	{Type: types.NodeTypeText, Label: "Message", Enabled: true},
	{Type: types.NodeTypeImage, Label: "Image", Enabled: false},
}

// Palette 返回可拖入画布的节点类型
func Palette() []PaletteEntry {
	out := make([]PaletteEntry, len(palette))
	copy(out, palette)
	return out
}

func paletteEnabled(t types.NodeType) bool {
	for _, e := range palette {
		if e.Type == t {
			return e.Enabled
		}
	}
	return false
}
