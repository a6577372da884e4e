package service

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/c360/flowcanvas/catalog"
	"github.com/c360/flowcanvas/config"
	"github.com/c360/flowcanvas/editor"
	"github.com/c360/flowcanvas/errors"
	"github.com/c360/flowcanvas/flowstore"
	"github.com/c360/flowcanvas/history"
	"github.com/c360/flowcanvas/metric"
)

// FlowStore is the flow persistence surface the editor service depends on.
// *flowstore.Store satisfies it.
type FlowStore interface {
	Create(ctx context.Context, flow *flowstore.Flow) error
	Get(ctx context.Context, id string) (*flowstore.Flow, error)
	Update(ctx context.Context, flow *flowstore.Flow) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*flowstore.Flow, error)
}

// notifyRate caps per-session notification throughput
var notifyRate = rate.Limit(20)

// EditorService exposes editor sessions and flow CRUD over HTTP. Each
// session wraps one editor state and one undo/redo stack.
type EditorService struct {
	*BaseService

	flowStore FlowStore
	catalog   *catalog.Registry
	editorCfg config.EditorConfig

	sessionsMu sync.RWMutex
	sessions   map[string]*Session
}

// NewEditorService creates the editor service. The flow store and catalog
// are required; the editor config supplies session defaults.
func NewEditorService(store FlowStore, registry *catalog.Registry, editorCfg config.EditorConfig, opts ...Option) (*EditorService, error) {
	if store == nil {
		return nil, errors.WrapInvalid(
			errors.New("flow store cannot be nil"),
			"service", "NewEditorService", "validate dependencies")
	}
	if registry == nil {
		registry = catalog.NewRegistry()
	}
	if editorCfg.HistoryLimit <= 0 {
		editorCfg.HistoryLimit = config.DefaultHistoryLimit
	}

	base := NewBaseService("flow-editor", opts...)

	return &EditorService{
		BaseService: base,
		flowStore:   store,
		catalog:     registry,
		editorCfg:   editorCfg,
		sessions:    make(map[string]*Session),
	}, nil
}

// Start starts the editor service
func (es *EditorService) Start(ctx context.Context) error {
	if err := es.BaseService.Start(ctx); err != nil {
		return err
	}
	es.logger.Info("Editor service started")
	return nil
}

// Stop closes all sessions and stops the service
func (es *EditorService) Stop(timeout time.Duration) error {
	es.sessionsMu.Lock()
	for id, sess := range es.sessions {
		sess.hub.close()
		delete(es.sessions, id)
	}
	es.sessionsMu.Unlock()

	es.logger.Info("Editor service stopped")
	return es.BaseService.Stop(timeout)
}

// RegisterHTTPHandlers registers the service endpoints on the mux
func (es *EditorService) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}

	// Flow CRUD
	mux.HandleFunc("GET "+prefix+"flows", es.handleListFlows)
	mux.HandleFunc("POST "+prefix+"flows", es.handleCreateFlow)
	mux.HandleFunc("GET "+prefix+"flows/{id}", es.handleGetFlow)
	mux.HandleFunc("PUT "+prefix+"flows/{id}", es.handleUpdateFlow)
	mux.HandleFunc("DELETE "+prefix+"flows/{id}", es.handleDeleteFlow)

	// Node-type catalog
	mux.HandleFunc("GET "+prefix+"node-types", es.handleListNodeTypes)

	// Editor sessions
	mux.HandleFunc("POST "+prefix+"sessions", es.handleOpenSession)
	mux.HandleFunc("GET "+prefix+"sessions/{id}", es.handleGetSession)
	mux.HandleFunc("DELETE "+prefix+"sessions/{id}", es.handleCloseSession)
	mux.HandleFunc("POST "+prefix+"sessions/{id}/nodes", es.handleAddNode)
	mux.HandleFunc("POST "+prefix+"sessions/{id}/nodes/duplicate", es.handleDuplicateNode)
	mux.HandleFunc("DELETE "+prefix+"sessions/{id}/nodes/selected", es.handleDeleteSelectedNode)
	mux.HandleFunc("PUT "+prefix+"sessions/{id}/selection", es.handleSelect)
	mux.HandleFunc("POST "+prefix+"sessions/{id}/edges", es.handleConnect)
	mux.HandleFunc("POST "+prefix+"sessions/{id}/layout", es.handleOrganizeLayout)
	mux.HandleFunc("PUT "+prefix+"sessions/{id}/search", es.handleSearch)
	mux.HandleFunc("POST "+prefix+"sessions/{id}/undo", es.handleUndo)
	mux.HandleFunc("POST "+prefix+"sessions/{id}/redo", es.handleRedo)
	mux.HandleFunc("POST "+prefix+"sessions/{id}/save", es.handleSave)
	mux.HandleFunc("GET "+prefix+"sessions/{id}/events", es.handleEvents)

	es.logger.Info("Editor service HTTP handlers registered", "prefix", prefix)
}

// openSession loads a flow and wires a new session around it
func (es *EditorService) openSession(ctx context.Context, flowID string) (*Session, error) {
	flow, err := es.flowStore.Get(ctx, flowID)
	if err != nil {
		return nil, err
	}

	layout, err := editor.StrategyByName(es.editorCfg.LayoutStrategy)
	if err != nil {
		layout = editor.NewLayeredLayout()
	}

	coreMetrics := es.coreMetrics()
	hub := newNotificationHub(rate.NewLimiter(notifyRate, int(notifyRate)), coreMetrics)
	hist := history.NewStack(es.editorCfg.HistoryLimit)

	var state *editor.State
	state = editor.NewState(flow,
		editor.WithCatalog(es.catalog),
		editor.WithCanvas(&sessionCanvas{}),
		editor.WithNotifier(hub),
		editor.WithLayout(layout),
		editor.WithLayoutCheckpoint(es.editorCfg.LayoutCheckpoint),
		editor.WithLogger(es.logger),
		editor.WithCheckpointer(func() {
			hist.Push(state.Snapshot())
		}),
	)

	sess := &Session{
		ID:              uuid.New().String(),
		FlowID:          flow.ID,
		FlowName:        flow.Name,
		FlowDescription: flow.Description,
		FlowVersion:     flow.Version,
		state:           state,
		hist:            hist,
		hub:             hub,
	}

	es.sessionsMu.Lock()
	es.sessions[sess.ID] = sess
	open := len(es.sessions)
	es.sessionsMu.Unlock()

	if coreMetrics != nil {
		coreMetrics.OpenSessions.Set(float64(open))
	}

	es.logger.Info("Editor session opened", "session_id", sess.ID, "flow_id", flow.ID)
	return sess, nil
}

// session looks up an open session by id
func (es *EditorService) session(id string) (*Session, bool) {
	es.sessionsMu.RLock()
	defer es.sessionsMu.RUnlock()
	sess, ok := es.sessions[id]
	return sess, ok
}

// closeSession removes a session and drops its subscribers
func (es *EditorService) closeSession(id string) bool {
	es.sessionsMu.Lock()
	sess, ok := es.sessions[id]
	if ok {
		delete(es.sessions, id)
	}
	open := len(es.sessions)
	es.sessionsMu.Unlock()

	if !ok {
		return false
	}

	sess.hub.close()
	if m := es.coreMetrics(); m != nil {
		m.OpenSessions.Set(float64(open))
	}
	es.logger.Info("Editor session closed", "session_id", id)
	return true
}

// recordOperation bumps the editor operation counter and history depth
func (es *EditorService) recordOperation(sess *Session, op string) {
	m := es.coreMetrics()
	if m == nil {
		return
	}
	m.RecordOperation(op)

	sess.mu.Lock()
	depth := sess.hist.Len()
	sess.mu.Unlock()
	m.HistoryDepth.WithLabelValues(sess.ID).Set(float64(depth))
}

func (es *EditorService) coreMetrics() *metric.Metrics {
	if es.metricsRegistry == nil {
		return nil
	}
	return es.metricsRegistry.CoreMetrics()
}

// sessionCanvas is the server-side rendering surface stand-in. It has no
// viewport of its own, so the editor falls back to the default center; the
// layout notification tells connected clients to refit.
type sessionCanvas struct{}

func (c *sessionCanvas) Center() (editor.Position, bool) { return editor.Position{}, false }
func (c *sessionCanvas) FitView()                        {}
