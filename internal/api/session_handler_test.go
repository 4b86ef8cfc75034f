package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "flowbuilder/internal/domain/flow/model"
	"flowbuilder/internal/domain/flow/port"
	"flowbuilder/internal/domain/flow/validate"
)

func openSession(t *testing.T, ts *testServer) string {
	t.Helper()
	rr, env := ts.do(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func dropNode(t *testing.T, ts *testServer, sid string, x, y float64) types.Node {
	t.Helper()
	rr, env := ts.do(t, http.MethodPost, "/api/v1/sessions/"+sid+"/nodes", map[string]interface{}{
		"type":     "text",
		"position": map[string]float64{"x": x, "y": y},
	})
	require.Equal(t, http.StatusCreated, rr.Code, env.Message)
	var n types.Node
	require.NoError(t, json.Unmarshal(env.Data, &n))
	return n
}

func connect(t *testing.T, ts *testServer, sid, source, target string) (int, envelope) {
	t.Helper()
	rr, env := ts.do(t, http.MethodPost, "/api/v1/sessions/"+sid+"/edges", map[string]string{
		"source": source,
		"target": target,
	})
	return rr.Code, env
}

func TestSessionBuildConnectAndSave(t *testing.T) {
	ts := newTestServer(t, nil)
	sid := openSession(t, ts)

	a := dropNode(t, ts, sid, 0, 0)
	b := dropNode(t, ts, sid, 100, 0)
	assert.Equal(t, "1", a.ID)
	assert.Equal(t, "2", b.ID)
	assert.Equal(t, "text 1", a.Data.Value)

	code, env := connect(t, ts, sid, a.ID, b.ID)
	require.Equal(t, http.StatusCreated, code)
	var edge types.Edge
	require.NoError(t, json.Unmarshal(env.Data, &edge))
	assert.Equal(t, "reactflow__edge-1-2", edge.ID)

	code, _ = connect(t, ts, sid, a.ID, b.ID)
	assert.Equal(t, http.StatusOK, code, "duplicate connection is idempotent")

	c := dropNode(t, ts, sid, 200, 0)
	code, env = connect(t, ts, sid, a.ID, c.ID)
	require.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Source node is already connected to another node", env.Message)
	assert.Contains(t, string(env.Data), `"kind":"source_already_connected"`)

	rr, _ := ts.do(t, http.MethodPost, "/api/v1/sessions/"+sid+"/save", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr, env = ts.do(t, http.MethodGet, "/api/v1/flow", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var stored struct {
		Key   string     `json:"key"`
		Flow  types.Flow `json:"flow"`
		Found bool       `json:"found"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stored))
	assert.True(t, stored.Found)
	assert.Equal(t, port.DefaultFlowKey, stored.Key)
	assert.Len(t, stored.Flow.Nodes, 3)
	assert.Len(t, stored.Flow.Edges, 1)

	other := openSession(t, ts)
	rr, env = ts.do(t, http.MethodGet, "/api/v1/sessions/"+other, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, string(env.Data), `"id":"reactflow__edge-1-2"`)
}

func TestSaveRejectsMultipleDisconnectedNodes(t *testing.T) {
	ts := newTestServer(t, nil)
	sid := openSession(t, ts)
	dropNode(t, ts, sid, 0, 0)
	dropNode(t, ts, sid, 10, 0)
	dropNode(t, ts, sid, 20, 0)

	rr, env := ts.do(t, http.MethodPost, "/api/v1/sessions/"+sid+"/validate", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var report validate.Report
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.False(t, report.Valid)

	rr, env = ts.do(t, http.MethodPost, "/api/v1/sessions/"+sid+"/save", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, []string{"1", "2", "3"}, report.Disconnected)

	_, found, err := ts.store.Get(context.Background(), port.DefaultFlowKey)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDropNodeRequests(t *testing.T) {
	ts := newTestServer(t, nil)
	sid := openSession(t, ts)
	path := "/api/v1/sessions/" + sid + "/nodes"

	rr, _ := ts.do(t, http.MethodPost, path, `{"type":"","position":{"x":1,"y":1}}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr, _ = ts.do(t, http.MethodPost, path, `{"type":"image","position":{"x":1,"y":1}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, env := ts.do(t, http.MethodPost, path, `{"type":"text"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "position is required", env.Message)

	rr, _ = ts.do(t, http.MethodPost, path, `{"type":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, env = ts.do(t, http.MethodPost, path,
		`{"type":"text","position":{"x":300,"y":250},"viewport":{"x":100,"y":50,"zoom":2}}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var n types.Node
	require.NoError(t, json.Unmarshal(env.Data, &n))
	assert.Equal(t, "1", n.ID, "ignored and rejected drops do not consume ids")
	assert.Equal(t, types.Position{X: 100, Y: 100}, n.Position)
}

func TestPatchAndRemoveNode(t *testing.T) {
	ts := newTestServer(t, nil)
	sid := openSession(t, ts)
	a := dropNode(t, ts, sid, 0, 0)
	b := dropNode(t, ts, sid, 0, 0)
	code, _ := connect(t, ts, sid, a.ID, b.ID)
	require.Equal(t, http.StatusCreated, code)

	nodePath := "/api/v1/sessions/" + sid + "/nodes/"

	rr, env := ts.do(t, http.MethodPatch, nodePath+a.ID, `{"value":"Hello","position":{"x":5,"y":6}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var n types.Node
	require.NoError(t, json.Unmarshal(env.Data, &n))
	assert.Equal(t, "Hello", n.Data.Value)
	assert.Equal(t, types.Position{X: 5, Y: 6}, n.Position)

	rr, _ = ts.do(t, http.MethodPatch, nodePath+a.ID, `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = ts.do(t, http.MethodPatch, nodePath+"404", `{"value":"x"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, _ = ts.do(t, http.MethodDelete, nodePath+b.ID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr, env = ts.do(t, http.MethodGet, "/api/v1/sessions/"+sid, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var view struct {
		Flow types.Flow `json:"flow"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Len(t, view.Flow.Nodes, 1)
	assert.Empty(t, view.Flow.Edges)

	rr, _ = ts.do(t, http.MethodDelete, "/api/v1/sessions/"+sid+"/edges/reactflow__edge-1-2", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRemoveEdgeFreesSource(t *testing.T) {
	ts := newTestServer(t, nil)
	sid := openSession(t, ts)
	a := dropNode(t, ts, sid, 0, 0)
	b := dropNode(t, ts, sid, 0, 0)
	c := dropNode(t, ts, sid, 0, 0)

	code, _ := connect(t, ts, sid, a.ID, b.ID)
	require.Equal(t, http.StatusCreated, code)

	rr, _ := ts.do(t, http.MethodDelete, "/api/v1/sessions/"+sid+"/edges/reactflow__edge-1-2", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	code, _ = connect(t, ts, sid, a.ID, c.ID)
	assert.Equal(t, http.StatusCreated, code)
}

func TestSidebarEditing(t *testing.T) {
	ts := newTestServer(t, nil)
	sid := openSession(t, ts)
	a := dropNode(t, ts, sid, 0, 0)
	base := "/api/v1/sessions/" + sid + "/selection"

	rr, env := ts.do(t, http.MethodPut, base+"/content", `{"value":"ignored"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"applied":false}`, string(env.Data))

	rr, _ = ts.do(t, http.MethodPut, base, `{"node_id":"404"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, _ = ts.do(t, http.MethodPut, base, `{"node_id":"`+a.ID+`"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr, _ = ts.do(t, http.MethodPut, base+"/content", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, env = ts.do(t, http.MethodPut, base+"/content", `{"value":""}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var edit struct {
		Applied bool       `json:"applied"`
		Node    types.Node `json:"node"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &edit))
	assert.True(t, edit.Applied)
	assert.Equal(t, "", edit.Node.Data.Value)

	rr, _ = ts.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr, env = ts.do(t, http.MethodGet, "/api/v1/sessions/"+sid, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, string(env.Data), `"selected"`)
}

func TestReloadAndCorruptSlot(t *testing.T) {
	ts := newTestServer(t, nil)
	require.NoError(t, ts.store.Set(context.Background(), port.DefaultFlowKey, "not json"))

	rr, env := ts.do(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	var opened struct {
		ID          string `json:"id"`
		Corrupt     bool   `json:"corrupt"`
		LoadWarning string `json:"load_warning"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &opened))
	assert.True(t, opened.Corrupt)
	assert.NotEmpty(t, opened.LoadWarning)

	dropNode(t, ts, opened.ID, 0, 0)
	rr, env = ts.do(t, http.MethodPost, "/api/v1/sessions/"+opened.ID+"/reload", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var view struct {
		Flow types.Flow `json:"flow"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Empty(t, view.Flow.Nodes)
}

func TestUnknownAndClosedSessions(t *testing.T) {
	ts := newTestServer(t, nil)

	rr, env := ts.do(t, http.MethodGet, "/api/v1/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "session not found", env.Message)

	sid := openSession(t, ts)
	rr, _ = ts.do(t, http.MethodDelete, "/api/v1/sessions/"+sid, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr, _ = ts.do(t, http.MethodPost, "/api/v1/sessions/"+sid+"/nodes", `{"type":"text","position":{"x":0,"y":0}}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
