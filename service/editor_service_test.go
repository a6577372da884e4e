package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/flowcanvas/catalog"
	"github.com/c360/flowcanvas/config"
	"github.com/c360/flowcanvas/errors"
	"github.com/c360/flowcanvas/flowstore"
)

// memoryFlowStore is an in-memory FlowStore for handler tests
type memoryFlowStore struct {
	mu    sync.Mutex
	flows map[string]*flowstore.Flow
}

func newMemoryFlowStore() *memoryFlowStore {
	return &memoryFlowStore{flows: make(map[string]*flowstore.Flow)}
}

func (m *memoryFlowStore) Create(_ context.Context, flow *flowstore.Flow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.flows[flow.ID]; ok {
		return errors.ErrFlowExists
	}
	flow.Version = 1
	m.flows[flow.ID] = flow.Clone()
	return nil
}

func (m *memoryFlowStore) Get(_ context.Context, id string) (*flowstore.Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	flow, ok := m.flows[id]
	if !ok {
		return nil, errors.ErrFlowNotFound
	}
	return flow.Clone(), nil
}

func (m *memoryFlowStore) Update(_ context.Context, flow *flowstore.Flow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.flows[flow.ID]
	if !ok {
		return errors.ErrFlowNotFound
	}
	if current.Version != flow.Version {
		return errors.ErrVersionConflict
	}
	flow.Version++
	m.flows[flow.ID] = flow.Clone()
	return nil
}

func (m *memoryFlowStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.flows[id]; !ok {
		return errors.ErrFlowNotFound
	}
	delete(m.flows, id)
	return nil
}

func (m *memoryFlowStore) List(_ context.Context) ([]*flowstore.Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	flows := make([]*flowstore.Flow, 0, len(m.flows))
	for _, f := range m.flows {
		flows = append(flows, f.Clone())
	}
	return flows, nil
}

func storedFlow() *flowstore.Flow {
	return &flowstore.Flow{
		ID:   "flow-1",
		Name: "Test Flow",
		Nodes: []flowstore.FlowNode{
			{ID: "a", Type: "trigger", Position: flowstore.Position{X: 10, Y: 10}, Data: flowstore.NodeData{Label: "Start"}},
			{ID: "b", Type: "action", Position: flowstore.Position{X: 200, Y: 10}, Data: flowstore.NodeData{Label: "Work"}},
		},
		Edges: []flowstore.FlowEdge{
			{ID: "e1", SourceNodeID: "a", TargetNodeID: "b"},
		},
	}
}

func newTestService(t *testing.T) (*EditorService, *memoryFlowStore, *httptest.Server) {
	t.Helper()

	store := newMemoryFlowStore()
	require.NoError(t, store.Create(context.Background(), storedFlow()))

	svc, err := NewEditorService(store, catalog.NewRegistry(), config.EditorConfig{
		LayoutStrategy: "layered",
		HistoryLimit:   10,
	})
	require.NoError(t, err)

	mux := http.NewServeMux()
	svc.RegisterHTTPHandlers("/api/v1/", mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	t.Cleanup(func() { _ = svc.Stop(time.Second) })

	return svc, store, server
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeView(t *testing.T, resp *http.Response) GraphView {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var view GraphView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	return view
}

func openTestSession(t *testing.T, server *httptest.Server) GraphView {
	t.Helper()

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/sessions", map[string]string{"flow_id": "flow-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeView(t, resp)
}

func TestNewEditorServiceRequiresStore(t *testing.T) {
	_, err := NewEditorService(nil, nil, config.EditorConfig{})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestOpenSession(t *testing.T) {
	_, _, server := newTestService(t)

	view := openTestSession(t, server)

	assert.NotEmpty(t, view.SessionID)
	assert.Equal(t, "flow-1", view.FlowID)
	assert.Len(t, view.Nodes, 2)
	assert.Len(t, view.Edges, 1)
	assert.False(t, view.CanUndo)
}

func TestOpenSessionUnknownFlow(t *testing.T) {
	_, _, server := newTestService(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/sessions", map[string]string{"flow_id": "nope"})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionNotFound(t *testing.T) {
	_, _, server := newTestService(t)

	for _, ep := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/sessions/ghost"},
		{http.MethodDelete, "/api/v1/sessions/ghost"},
		{http.MethodPost, "/api/v1/sessions/ghost/nodes"},
		{http.MethodPost, "/api/v1/sessions/ghost/undo"},
		{http.MethodPost, "/api/v1/sessions/ghost/save"},
	} {
		resp := doJSON(t, ep.method, server.URL+ep.path, map[string]string{"type": "action"})
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, "%s %s", ep.method, ep.path)
	}
}

func TestAddNodeEndpoint(t *testing.T) {
	_, _, server := newTestService(t)
	sess := openTestSession(t, server)

	resp := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/v1/sessions/%s/nodes", server.URL, sess.SessionID),
		map[string]string{"type": "condition"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	view := decodeView(t, resp)
	require.Len(t, view.Nodes, 3)
	assert.Equal(t, "condition", string(view.Nodes[2].Type))
	assert.True(t, view.CanUndo)
}

func TestDeleteSelectedNodeEndpoint(t *testing.T) {
	_, _, server := newTestService(t)
	sess := openTestSession(t, server)
	base := fmt.Sprintf("%s/api/v1/sessions/%s", server.URL, sess.SessionID)

	resp := doJSON(t, http.MethodPut, base+"/selection", map[string]string{"node_id": "a"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeView(t, resp)
	require.NotNil(t, view.SelectedNode)
	assert.Equal(t, "a", view.SelectedNode.ID)

	resp = doJSON(t, http.MethodDelete, base+"/nodes/selected", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decodeView(t, resp)

	require.Len(t, view.Nodes, 1)
	assert.Equal(t, "b", view.Nodes[0].ID)
	assert.Empty(t, view.Edges, "edge cascade-deleted with its endpoint")
	assert.Nil(t, view.SelectedNode)
}

func TestConnectEndpoint(t *testing.T) {
	_, _, server := newTestService(t)
	sess := openTestSession(t, server)

	resp := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/v1/sessions/%s/edges", server.URL, sess.SessionID),
		map[string]string{"source": "b", "target": "a"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	view := decodeView(t, resp)
	require.Len(t, view.Edges, 2)
	assert.Equal(t, "b", view.Edges[1].Source)
	assert.Equal(t, "a", view.Edges[1].Target)
}

func TestSearchEndpoint(t *testing.T) {
	_, _, server := newTestService(t)
	sess := openTestSession(t, server)

	resp := doJSON(t, http.MethodPut,
		fmt.Sprintf("%s/api/v1/sessions/%s/search", server.URL, sess.SessionID),
		map[string]string{"query": "start"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	view := decodeView(t, resp)
	require.Len(t, view.Nodes, 1)
	assert.Equal(t, "a", view.Nodes[0].ID)
	assert.Equal(t, "start", view.SearchQuery)

	// The canonical set is untouched: the unfiltered view still has both
	resp = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/v1/sessions/%s", server.URL, sess.SessionID), nil)
	view = decodeView(t, resp)
	assert.Len(t, view.Nodes, 2)
}

func TestUndoRedoEndpoints(t *testing.T) {
	_, _, server := newTestService(t)
	sess := openTestSession(t, server)
	base := fmt.Sprintf("%s/api/v1/sessions/%s", server.URL, sess.SessionID)

	resp := doJSON(t, http.MethodPost, base+"/nodes", map[string]string{"type": "action"})
	view := decodeView(t, resp)
	require.Len(t, view.Nodes, 3)

	resp = doJSON(t, http.MethodPost, base+"/undo", nil)
	view = decodeView(t, resp)
	assert.Len(t, view.Nodes, 2)
	assert.True(t, view.CanRedo)

	resp = doJSON(t, http.MethodPost, base+"/redo", nil)
	view = decodeView(t, resp)
	assert.Len(t, view.Nodes, 3)
	assert.False(t, view.CanRedo)
}

func TestSaveEndpoint(t *testing.T) {
	_, store, server := newTestService(t)
	sess := openTestSession(t, server)
	base := fmt.Sprintf("%s/api/v1/sessions/%s", server.URL, sess.SessionID)

	resp := doJSON(t, http.MethodPost, base+"/nodes", map[string]string{"type": "delay"})
	_ = resp.Body.Close()

	resp = doJSON(t, http.MethodPost, base+"/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	saved, err := store.Get(context.Background(), "flow-1")
	require.NoError(t, err)
	assert.Len(t, saved.Nodes, 3)
	assert.Equal(t, int64(2), saved.Version)

	// A second save must not conflict with itself
	resp = doJSON(t, http.MethodPost, base+"/save", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestCloseSession(t *testing.T) {
	_, _, server := newTestService(t)
	sess := openTestSession(t, server)
	base := fmt.Sprintf("%s/api/v1/sessions/%s", server.URL, sess.SessionID)

	resp := doJSON(t, http.MethodDelete, base, nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, base, nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFlowCRUDEndpoints(t *testing.T) {
	_, _, server := newTestService(t)
	base := server.URL + "/api/v1/flows"

	newFlow := map[string]any{
		"name":  "Created Flow",
		"nodes": []map[string]any{{"id": "x", "type": "trigger", "position": map[string]float64{"x": 0, "y": 0}}},
		"edges": []any{},
	}
	resp := doJSON(t, http.MethodPost, base, newFlow)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created flowstore.Flow
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	_ = resp.Body.Close()
	assert.NotEmpty(t, created.ID)

	resp = doJSON(t, http.MethodGet, base+"/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Flows []flowstore.Flow `json:"flows"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	_ = resp.Body.Close()
	assert.Len(t, list.Flows, 2)

	resp = doJSON(t, http.MethodDelete, base+"/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, http.MethodGet, base+"/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestCreateFlowRejectsInvalidDocument(t *testing.T) {
	_, _, server := newTestService(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/flows", map[string]any{
		"nodes": []any{},
	})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNodeTypesEndpoint(t *testing.T) {
	_, _, server := newTestService(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/v1/node-types", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer func() { _ = resp.Body.Close() }()

	var body struct {
		NodeTypes []catalog.Definition `json:"node_types"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.NodeTypes, 6)
}

func TestEventStreamReceivesNotifications(t *testing.T) {
	_, _, server := newTestService(t)
	sess := openTestSession(t, server)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") +
		"/api/v1/sessions/" + sess.SessionID + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	// Give the server goroutine time to register the subscriber
	time.Sleep(100 * time.Millisecond)

	httpResp := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/v1/sessions/%s/nodes", server.URL, sess.SessionID),
		map[string]string{"type": "action"})
	_ = httpResp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var n Notification
	require.NoError(t, conn.ReadJSON(&n))
	assert.Equal(t, "Node added", n.Title)
	assert.Contains(t, n.Description, "Action")
}
