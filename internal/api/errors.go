package api

import (
	"errors"
	"net/http"

	"flowbuilder/internal/app/editor"
	"flowbuilder/internal/domain/flow/graph"
	"flowbuilder/internal/domain/flow/validate"
	applog "flowbuilder/internal/platform/log"
)

// writeDomainError 把领域错误映射为 HTTP 状态码
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var violation *graph.ConstraintViolation
	var failure *validate.ValidationFailure

	switch {
	case errors.As(err, &violation):
		writeErrorData(w, http.StatusConflict, violation.Reason, violation)
	case errors.As(err, &failure):
		writeErrorData(w, http.StatusUnprocessableEntity, failure.Error(), failure)
	case errors.Is(err, editor.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, graph.ErrNodeNotFound), errors.Is(err, graph.ErrEdgeNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, graph.ErrUnsupportedNodeType):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		applog.Error("[API] Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
