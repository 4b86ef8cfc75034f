package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"flowbuilder/internal/app/editor"
	types "flowbuilder/internal/domain/flow/model"
	"flowbuilder/internal/domain/flow/validate"
	applog "flowbuilder/internal/platform/log"
)

// SessionHandler 编辑器会话 API 处理器，每个路由对应画布上的一个手势
type SessionHandler struct {
	manager *editor.Manager
}

// NewSessionHandler 创建处理器
func NewSessionHandler(manager *editor.Manager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

// RegisterRoutes 注册路由
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/", h.OpenSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.CloseSession)

			r.Post("/nodes", h.DropNode)
			r.Patch("/nodes/{nodeID}", h.PatchNode)
			r.Delete("/nodes/{nodeID}", h.RemoveNode)

			r.Post("/edges", h.Connect)
			r.Delete("/edges/{edgeID}", h.RemoveEdge)

			r.Put("/selection", h.Select)
			r.Delete("/selection", h.ClearSelection)
			r.Put("/selection/content", h.EditSelected)

			r.Post("/validate", h.Validate)
			r.Post("/save", h.Save)
			r.Post("/reload", h.Reload)
		})
	})
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*editor.Session, bool) {
	s, err := h.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return nil, false
	}
	return s, true
}

// --- Session lifecycle ---

type openSessionResponse struct {
	editor.View
	Found        bool   `json:"found"`
	Corrupt      bool   `json:"corrupt"`
	StorageError string `json:"storage_error,omitempty"`
}

func (h *SessionHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	s, result, err := h.manager.Open(r.Context())
	resp := openSessionResponse{
		View:    s.View(),
		Found:   result.Found,
		Corrupt: result.Corrupt,
	}
	if err != nil {
		resp.StorageError = err.Error()
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Close(chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Nodes ---

func (h *SessionHandler) DropNode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req dropNodeRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	node, created, err := s.Drop(req.Type, *req.Position, req.Viewport)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !created {
		// 拖拽没有携带节点类型，忽略
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

func (h *SessionHandler) PatchNode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req patchNodeRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	nodeID := chi.URLParam(r, "nodeID")
	var node types.Node
	var err error
	if req.Value != nil {
		if node, err = s.UpdateContent(nodeID, *req.Value); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	if req.Position != nil {
		if node, err = s.Move(nodeID, *req.Position); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, node)
}

func (h *SessionHandler) RemoveNode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.RemoveNode(chi.URLParam(r, "nodeID")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Edges ---

func (h *SessionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req connectRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	edge, added, err := s.Connect(req.connection())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !added {
		writeJSON(w, http.StatusOK, edge)
		return
	}
	writeJSON(w, http.StatusCreated, edge)
}

func (h *SessionHandler) RemoveEdge(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.RemoveEdge(chi.URLParam(r, "edgeID")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Selection / sidebar ---

func (h *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req selectRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	node, err := s.Select(req.NodeID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (h *SessionHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

type editResponse struct {
	Applied bool        `json:"applied"`
	Node    *types.Node `json:"node,omitempty"`
}

func (h *SessionHandler) EditSelected(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req contentRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	node, applied := s.EditSelected(*req.Value)
	resp := editResponse{Applied: applied}
	if applied {
		resp.Node = &node
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Validation / persistence ---

func (h *SessionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	report, _ := s.Validate()
	writeJSON(w, http.StatusOK, report)
}

func (h *SessionHandler) Save(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	report, err := s.Save(r.Context())
	if err != nil {
		var failure *validate.ValidationFailure
		if errors.As(err, &failure) {
			writeErrorData(w, http.StatusUnprocessableEntity, "Cannot save flow: "+validate.ErrMultipleDisconnectedNodes.Error(), report)
			return
		}
		applog.Error("[API] Save failed", "session_id", s.ID(), "subject", subjectOf(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save flow")
		return
	}
	applog.Info("[API] Flow saved",
		"session_id", s.ID(),
		"subject", subjectOf(r.Context()),
		"nodes", report.NodeCount,
		"edges", report.EdgeCount,
	)
	writeJSON(w, http.StatusOK, s.View())
}

func (h *SessionHandler) Reload(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	result, err := s.Reload(r.Context())
	if err != nil {
		applog.Error("[API] Reload failed", "session_id", s.ID(), "subject", subjectOf(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load flow")
		return
	}
	applog.Info("[API] Flow reloaded",
		"session_id", s.ID(),
		"subject", subjectOf(r.Context()),
		"found", result.Found,
		"corrupt", result.Corrupt,
	)
	writeJSON(w, http.StatusOK, s.View())
}
