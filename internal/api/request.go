package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"flowbuilder/internal/app/editor"
	"flowbuilder/internal/domain/flow/graph"
	types "flowbuilder/internal/domain/flow/model"
)

var structValidator = validator.New()

// maxBodyBytes 单个请求体上限
const maxBodyBytes = 1 << 20

type dropNodeRequest struct {
	Type     types.NodeType   `json:"type"`
	Position *types.Position  `json:"position" validate:"required"`
	Viewport *editor.Viewport `json:"viewport,omitempty"`
}

type patchNodeRequest struct {
	Value    *string         `json:"value,omitempty" validate:"required_without=Position"`
	Position *types.Position `json:"position,omitempty"`
}

type connectRequest struct {
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

func (c connectRequest) connection() graph.Connection {
	return graph.Connection{
		Source:       c.Source,
		Target:       c.Target,
		SourceHandle: c.SourceHandle,
		TargetHandle: c.TargetHandle,
	}
}

type selectRequest struct {
	NodeID string `json:"node_id" validate:"required"`
}

// contentRequest value 可以是空字符串，但必须出现
type contentRequest struct {
	Value *string `json:"value" validate:"required"`
}

// decodeRequest 解析 JSON 请求体并按 validate 标签校验
func decodeRequest(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("invalid JSON: %v", err)
	}
	if err := structValidator.Struct(dst); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := jsonFieldName(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "required_without":
			msgs = append(msgs, fmt.Sprintf("%s or %s is required", field, jsonFieldName(e.Param())))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func jsonFieldName(field string) string {
	switch field {
	case "NodeID":
		return "node_id"
	default:
		return strings.ToLower(field)
	}
}
