package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"flowbuilder/internal/app/editor"
	types "flowbuilder/internal/domain/flow/model"
	"flowbuilder/internal/domain/flow/port"
	applog "flowbuilder/internal/platform/log"
)

// FlowHandler 节点选择器与存储槽位的只读接口
type FlowHandler struct {
	gateway *port.Gateway
}

// NewFlowHandler 创建处理器
func NewFlowHandler(gateway *port.Gateway) *FlowHandler {
	return &FlowHandler{gateway: gateway}
}

// RegisterRoutes 注册路由
func (h *FlowHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/palette", h.GetPalette)
	r.Get("/api/v1/flow", h.GetStoredFlow)
}

func (h *FlowHandler) GetPalette(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, editor.Palette())
}

type storedFlowResponse struct {
	Key     string     `json:"key"`
	Flow    types.Flow `json:"flow"`
	Found   bool       `json:"found"`
	Corrupt bool       `json:"corrupt"`
	Warning string     `json:"warning,omitempty"`
}

func (h *FlowHandler) GetStoredFlow(w http.ResponseWriter, r *http.Request) {
	result, err := h.gateway.Load(r.Context())
	if err != nil {
		applog.Error("[API] Failed to load stored flow", "key", h.gateway.Key(), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load flow")
		return
	}

	resp := storedFlowResponse{
		Key:     h.gateway.Key(),
		Flow:    result.Flow,
		Found:   result.Found,
		Corrupt: result.Corrupt,
	}
	if result.CorruptErr != nil {
		resp.Warning = result.CorruptErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
