package service

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/c360/flowcanvas/editor"
	"github.com/c360/flowcanvas/history"
	"github.com/c360/flowcanvas/metric"
)

// Notification is a user-facing message emitted by editor operations
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// notificationBuffer bounds each subscriber's pending notifications
const notificationBuffer = 32

// notificationHub fans editor notifications out to WebSocket subscribers.
// Delivery is best-effort: when a subscriber's buffer is full or nobody is
// listening, the notification is dropped.
type notificationHub struct {
	mu          sync.Mutex
	subscribers map[chan Notification]struct{}
	limiter     *rate.Limiter
	metrics     *metric.Metrics
}

func newNotificationHub(limiter *rate.Limiter, metrics *metric.Metrics) *notificationHub {
	return &notificationHub{
		subscribers: make(map[chan Notification]struct{}),
		limiter:     limiter,
		metrics:     metrics,
	}
}

// Notify implements editor.Notifier
func (h *notificationHub) Notify(title, description string) {
	if h.limiter != nil && !h.limiter.Allow() {
		if h.metrics != nil {
			h.metrics.NotificationsDropped.Inc()
		}
		return
	}

	n := Notification{Title: title, Description: description}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- n:
			if h.metrics != nil {
				h.metrics.NotificationsSent.Inc()
			}
		default:
			if h.metrics != nil {
				h.metrics.NotificationsDropped.Inc()
			}
		}
	}
}

// subscribe registers a new subscriber channel
func (h *notificationHub) subscribe() chan Notification {
	ch := make(chan Notification, notificationBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[ch] = struct{}{}
	return ch
}

// unsubscribe removes a subscriber channel
func (h *notificationHub) unsubscribe(ch chan Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, ch)
}

// close drops all subscribers, closing their channels
func (h *notificationHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, ch)
	}
}

// Session is one editing session over a stored flow: an editor state, its
// undo/redo stack, and a notification hub. The mutex serializes all editor
// operations, preserving the single-owner mutation model.
type Session struct {
	ID              string
	FlowID          string
	FlowName        string
	FlowDescription string
	FlowVersion     int64

	mu    sync.Mutex
	state *editor.State
	hist  *history.Stack
	hub   *notificationHub
}

// Do runs fn with exclusive access to the session's editor state
func (s *Session) Do(fn func(state *editor.State, hist *history.Stack)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state, s.hist)
}

// GraphView is the JSON representation of a session's graph
type GraphView struct {
	SessionID    string        `json:"session_id"`
	FlowID       string        `json:"flow_id"`
	Nodes        []editor.Node `json:"nodes"`
	Edges        []editor.Edge `json:"edges"`
	SelectedNode *editor.Node  `json:"selected_node,omitempty"`
	SearchQuery  string        `json:"search_query,omitempty"`
	CanUndo      bool          `json:"can_undo"`
	CanRedo      bool          `json:"can_redo"`
}

// view builds the graph view, applying the search filter when filtered is
// true.
func (s *Session) view(filtered bool) GraphView {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := s.state.Nodes()
	if filtered {
		nodes = s.state.FilteredNodes()
	}

	return GraphView{
		SessionID:    s.ID,
		FlowID:       s.FlowID,
		Nodes:        nodes,
		Edges:        s.state.Edges(),
		SelectedNode: s.state.SelectedNode(),
		SearchQuery:  s.state.SearchQuery(),
		CanUndo:      s.hist.CanUndo(),
		CanRedo:      s.hist.CanRedo(),
	}
}
