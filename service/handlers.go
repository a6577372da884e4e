package service

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/c360/flowcanvas/catalog"
	"github.com/c360/flowcanvas/editor"
	"github.com/c360/flowcanvas/errors"
	"github.com/c360/flowcanvas/flowstore"
	"github.com/c360/flowcanvas/history"
)

// handleListFlows returns all stored flows
func (es *EditorService) handleListFlows(w http.ResponseWriter, r *http.Request) {
	flows, err := es.flowStore.List(r.Context())
	if err != nil {
		es.logger.Error("Failed to list flows", "error", err)
		es.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	es.writeJSON(w, map[string]any{"flows": flows})
}

// handleCreateFlow creates a new flow
func (es *EditorService) handleCreateFlow(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		es.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := flowstore.ValidateDocument(body); err != nil {
		es.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var flow flowstore.Flow
	if err := json.Unmarshal(body, &flow); err != nil {
		es.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if flow.ID == "" {
		flow.ID = uuid.New().String()
	}

	if err := es.flowStore.Create(r.Context(), &flow); err != nil {
		if errors.Is(err, errors.ErrFlowExists) {
			es.writeJSONError(w, "Flow already exists", http.StatusConflict)
			return
		}
		if errors.IsInvalid(err) {
			es.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		es.logger.Error("Failed to create flow", "error", err)
		es.writeJSONError(w, "Failed to create flow", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(flow); err != nil {
		es.logger.Error("Failed to encode flow response", "error", err)
	}
}

// handleGetFlow returns a single flow by ID
func (es *EditorService) handleGetFlow(w http.ResponseWriter, r *http.Request) {
	flow, err := es.flowStore.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, errors.ErrFlowNotFound) {
			es.writeJSONError(w, "Flow not found", http.StatusNotFound)
			return
		}
		es.logger.Error("Failed to get flow", "error", err)
		es.writeJSONError(w, "Failed to get flow", http.StatusInternalServerError)
		return
	}

	es.writeJSON(w, flow)
}

// handleUpdateFlow updates a stored flow with optimistic concurrency
func (es *EditorService) handleUpdateFlow(w http.ResponseWriter, r *http.Request) {
	flowID := r.PathValue("id")

	var flow flowstore.Flow
	if err := json.NewDecoder(r.Body).Decode(&flow); err != nil {
		es.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if flow.ID != flowID {
		es.writeJSONError(w, "ID mismatch", http.StatusBadRequest)
		return
	}

	if err := es.flowStore.Update(r.Context(), &flow); err != nil {
		switch {
		case errors.Is(err, errors.ErrFlowNotFound):
			es.writeJSONError(w, "Flow not found", http.StatusNotFound)
		case errors.Is(err, errors.ErrVersionConflict):
			es.writeJSONError(w, err.Error(), http.StatusConflict)
		case errors.IsInvalid(err):
			es.writeJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			es.logger.Error("Failed to update flow", "error", err)
			es.writeJSONError(w, "Failed to update flow", http.StatusInternalServerError)
		}
		return
	}

	es.writeJSON(w, flow)
}

// handleDeleteFlow deletes a flow
func (es *EditorService) handleDeleteFlow(w http.ResponseWriter, r *http.Request) {
	if err := es.flowStore.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, errors.ErrFlowNotFound) {
			es.writeJSONError(w, "Flow not found", http.StatusNotFound)
			return
		}
		es.logger.Error("Failed to delete flow", "error", err)
		es.writeJSONError(w, "Failed to delete flow", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleListNodeTypes returns the node-type catalog
func (es *EditorService) handleListNodeTypes(w http.ResponseWriter, _ *http.Request) {
	es.writeJSON(w, map[string]any{"node_types": es.catalog.Definitions()})
}

// handleOpenSession opens an editing session over a stored flow
func (es *EditorService) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FlowID string `json:"flow_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FlowID == "" {
		es.writeJSONError(w, "flow_id is required", http.StatusBadRequest)
		return
	}

	sess, err := es.openSession(r.Context(), req.FlowID)
	if err != nil {
		if errors.Is(err, errors.ErrFlowNotFound) {
			es.writeJSONError(w, "Flow not found", http.StatusNotFound)
			return
		}
		es.logger.Error("Failed to open session", "error", err, "flow_id", req.FlowID)
		es.writeJSONError(w, "Failed to open session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(sess.view(false)); err != nil {
		es.logger.Error("Failed to encode session response", "error", err)
	}
}

// handleGetSession returns the session graph view. A ?q= parameter sets
// the session search query and returns the filtered view.
func (es *EditorService) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := es.session(r.PathValue("id"))
	if !ok {
		es.writeJSONError(w, "Session not found", http.StatusNotFound)
		return
	}

	filtered := false
	if r.URL.Query().Has("q") {
		filtered = true
		sess.Do(func(state *editor.State, _ *history.Stack) {
			state.SetSearchQuery(r.URL.Query().Get("q"))
		})
	}

	es.writeJSON(w, sess.view(filtered))
}

// handleCloseSession closes a session
func (es *EditorService) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if !es.closeSession(r.PathValue("id")) {
		es.writeJSONError(w, "Session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAddNode adds a node of the requested type at the canvas center
func (es *EditorService) handleAddNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := es.session(r.PathValue("id"))
	if !ok {
		es.writeJSONError(w, "Session not found", http.StatusNotFound)
		return
	}

	var req struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Type == "" {
		es.writeJSONError(w, "type is required", http.StatusBadRequest)
		return
	}

	sess.Do(func(state *editor.State, _ *history.Stack) {
		state.AddNode(catalog.NodeType(req.Type))
	})
	es.recordOperation(sess, "add_node")

	es.writeJSON(w, sess.view(false))
}

// handleDuplicateNode duplicates the selected node
func (es *EditorService) handleDuplicateNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := es.session(r.PathValue("id"))
	if !ok {
		es.writeJSONError(w, "Session not found", http.StatusNotFound)
		return
	}

	sess.Do(func(state *editor.State, _ *history.Stack) {
		state.DuplicateSelectedNode()
	})
	es.recordOperation(sess, "duplicate_node")

	es.writeJSON(w, sess.view(false))
}

// handleDeleteSelectedNode deletes the selected node and its edges
func (es *EditorService) handleDeleteSelectedNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := es.session(r.PathValue("id"))
	if !ok {
		es.writeJSONError(w, "Session not found", http.StatusNotFound)
		return
	}

	sess.Do(func(state *editor.State, _ *history.Stack) {
		state.DeleteSelectedNode()
	})
	es.recordOperation(sess, "delete_node")

	es.writeJSON(w, sess.view(false))
}

// handleSelect sets or clears the node selection
func (es *EditorService) handleSelect(w http.ResponseWriter, r *http.Request) {
	sess, ok := es.session(r.PathValue("id"))
	if !ok {
		es.writeJSONError(w, "Session not found", http.StatusNotFound)
		return
	}

	var req struct {
		NodeID string `json:"node_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		es.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sess.Do(func(state *editor.State, _ *history.Stack) {
		state.Select(req.NodeID)
	})

	es.writeJSON(w, sess.view(false))
}

// handleConnect adds an edge between two nodes
func (es *EditorService) handleConnect(w http.ResponseWriter, r *http.Request) {
	sess, ok := es.session(r.PathValue("id"))
	if !ok {
		es.writeJSONError(w, "Session not found", http.StatusNotFound)
		return
	}

	var req struct {
		Source       string `json:"source"`
		Target       string `json:"target"`
		SourceHandle string `json:"source_handle"`
		TargetHandle string `json:"target_handle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Source == "" || req.Target == "" {
		es.writeJSONError(w, "source and target are required", http.StatusBadRequest)
		return
	}

	sess.Do(func(state *editor.State, _ *history.Stack) {
		state.Connect(req.Source, req.Target, req.SourceHandle, req.TargetHandle)
	})
	es.recordOperation(sess, "connect")

	es.writeJSON(w, sess.view(false))
}

// handleOrganizeLayout reassigns node positions with the requested strategy
func (es *EditorService) handleOrganizeLayout(w http.ResponseWriter, r *http.Request) {
	sess, ok := es.session(r.PathValue("id"))
	if !ok {
		es.writeJSONError(w, "Session not found", http.StatusNotFound)
		return
	}

	var req struct {
		Strategy string `json:"strategy"`
	}
	// An empty body keeps the session's current strategy
	_ = json.NewDecoder(r.Body).Decode(&req)

	var layout editor.LayoutStrategy
	if req.Strategy != "" {
		var err error
		layout, err = editor.StrategyByName(req.Strategy)
		if err != nil {
			es.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	sess.Do(func(state *editor.State, _ *history.Stack) {
		if layout != nil {
			state.SetLayout(layout)
		}
		state.OrganizeLayout()
	})
	es.recordOperation(sess, "organize_layout")

	es.writeJSON(w, sess.view(false))
}

// handleSearch sets the session search query
func (es *EditorService) handleSearch(w http.ResponseWriter, r *http.Request) {
	sess, ok := es.session(r.PathValue("id"))
	if !ok {
		es.writeJSONError(w, "Session not found", http.StatusNotFound)
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		es.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sess.Do(func(state *editor.State, _ *history.Stack) {
		state.SetSearchQuery(req.Query)
	})

	es.writeJSON(w, sess.view(true))
}

// handleUndo restores the previous checkpoint
func (es *EditorService) handleUndo(w http.ResponseWriter, r *http.Request) {
	sess, ok := es.session(r.PathValue("id"))
	if !ok {
		es.writeJSONError(w, "Session not found", http.StatusNotFound)
		return
	}

	sess.Do(func(state *editor.State, hist *history.Stack) {
		if snap, ok := hist.Undo(state.Snapshot()); ok {
			state.Restore(snap)
		}
	})
	es.recordOperation(sess, "undo")

	es.writeJSON(w, sess.view(false))
}

// handleRedo re-applies the most recently undone checkpoint
func (es *EditorService) handleRedo(w http.ResponseWriter, r *http.Request) {
	sess, ok := es.session(r.PathValue("id"))
	if !ok {
		es.writeJSONError(w, "Session not found", http.StatusNotFound)
		return
	}

	sess.Do(func(state *editor.State, hist *history.Stack) {
		if snap, ok := hist.Redo(state.Snapshot()); ok {
			state.Restore(snap)
		}
	})
	es.recordOperation(sess, "redo")

	es.writeJSON(w, sess.view(false))
}

// handleSave writes the session's working copy back to the flow store
func (es *EditorService) handleSave(w http.ResponseWriter, r *http.Request) {
	sess, ok := es.session(r.PathValue("id"))
	if !ok {
		es.writeJSONError(w, "Session not found", http.StatusNotFound)
		return
	}

	var flow *flowstore.Flow
	sess.Do(func(state *editor.State, _ *history.Stack) {
		flow = state.Flow(sess.FlowID, sess.FlowName, sess.FlowDescription)
		flow.Version = sess.FlowVersion
	})

	if err := es.flowStore.Update(r.Context(), flow); err != nil {
		switch {
		case errors.Is(err, errors.ErrVersionConflict):
			es.writeJSONError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, errors.ErrFlowNotFound):
			es.writeJSONError(w, "Flow not found", http.StatusNotFound)
		case errors.IsInvalid(err):
			es.writeJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			es.logger.Error("Failed to save flow", "error", err, "flow_id", sess.FlowID)
			es.writeJSONError(w, "Failed to save flow", http.StatusInternalServerError)
		}
		return
	}

	sess.mu.Lock()
	sess.FlowVersion = flow.Version
	sess.mu.Unlock()

	es.recordOperation(sess, "save")
	es.writeJSON(w, flow)
}

// writeJSON writes a JSON response and logs encoding errors
func (es *EditorService) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		es.logger.Error("Failed to encode JSON response", "error", err)
	}
}

// writeJSONError writes an error response in JSON format
func (es *EditorService) writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		es.logger.Error("Failed to encode error response", "error", err, "message", message)
	}
}

func readBody(r *http.Request) ([]byte, error) {
	defer func() { _ = r.Body.Close() }()
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}

// maxBodyBytes bounds inbound request bodies
const maxBodyBytes = 4 << 20
