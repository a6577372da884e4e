// Package editor implements the in-memory graph editor state: a directed
// node-and-edge graph with selection, free-text filtering, pluggable layout,
// and history-checkpoint plumbing. All operations are synchronous and degrade
// to silent no-ops on precondition misses. The state is owned by a single
// editor session and is not safe for concurrent use.
package editor

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/c360/flowcanvas/catalog"
	"github.com/c360/flowcanvas/flowstore"
)

// Position is a point on the canvas
type Position = flowstore.Position

// defaultCenter is used when the canvas cannot supply a center point
var defaultCenter = Position{X: 400, Y: 300}

// duplicateOffset keeps a duplicated node from landing on top of the original
const duplicateOffset = 50

// Node is a node instance in the working graph
type Node struct {
	ID       string           `json:"id"`
	Type     catalog.NodeType `json:"type"`
	Position Position         `json:"position"`
	Data     NodeData         `json:"data"`
}

// NodeData holds the display payload of a node
type NodeData struct {
	Label       string         `json:"label"`
	Description string         `json:"description,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
}

// Edge is a directed connection between two nodes
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"source_handle,omitempty"`
	TargetHandle string `json:"target_handle,omitempty"`
	Label        string `json:"label,omitempty"`
	Kind         string `json:"kind,omitempty"`
}

// Notifier receives user-facing notifications emitted by editor operations
type Notifier interface {
	Notify(title, description string)
}

// Canvas abstracts the rendering surface. Center reports the current
// viewport center; the second return is false when the surface cannot
// supply one. FitView asks the surface to refit its viewport to the
// graph bounds.
type Canvas interface {
	Center() (Position, bool)
	FitView()
}

// Checkpointer records a snapshot of the state just before a structural
// mutation. The editor only guarantees when it is called; the undo stack
// itself belongs to the caller.
type Checkpointer func()

// State is the graph editor state container. It holds a working copy of a
// flow's nodes and edges; the authoritative flow lives in the store.
type State struct {
	nodes    []Node
	edges    []Edge
	selected string
	query    string

	catalog          *catalog.Registry
	canvas           Canvas
	notifier         Notifier
	checkpoint       Checkpointer
	layout           LayoutStrategy
	layoutCheckpoint bool
	logger           *slog.Logger
}

// Option configures a State
type Option func(*State)

// WithCanvas attaches the rendering surface. AddNode is gated on a canvas
// being present.
func WithCanvas(c Canvas) Option {
	return func(s *State) { s.canvas = c }
}

// WithNotifier attaches the notification sink
func WithNotifier(n Notifier) Option {
	return func(s *State) { s.notifier = n }
}

// WithCheckpointer attaches the history checkpoint hook
func WithCheckpointer(fn Checkpointer) Option {
	return func(s *State) { s.checkpoint = fn }
}

// WithLayout sets the layout strategy used by OrganizeLayout
func WithLayout(l LayoutStrategy) Option {
	return func(s *State) { s.layout = l }
}

// WithLayoutCheckpoint controls whether OrganizeLayout records a history
// checkpoint. Off by default.
func WithLayoutCheckpoint(enabled bool) Option {
	return func(s *State) { s.layoutCheckpoint = enabled }
}

// WithCatalog sets the node-type catalog used for new-node defaults
func WithCatalog(r *catalog.Registry) Option {
	return func(s *State) { s.catalog = r }
}

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(s *State) { s.logger = l }
}

// NewState seeds an editor state from a flow. The flow is copied; later
// mutations never reach the input.
func NewState(flow *flowstore.Flow, opts ...Option) *State {
	s := &State{
		catalog: catalog.NewRegistry(),
		layout:  NewScatterLayout(0),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if flow != nil {
		s.nodes = make([]Node, 0, len(flow.Nodes))
		for _, n := range flow.Nodes {
			s.nodes = append(s.nodes, Node{
				ID:       n.ID,
				Type:     catalog.NodeType(n.Type),
				Position: n.Position,
				Data: NodeData{
					Label:       n.Data.Label,
					Description: n.Data.Description,
					Config:      copyConfig(n.Data.Config),
				},
			})
		}
		s.edges = make([]Edge, 0, len(flow.Edges))
		for _, e := range flow.Edges {
			s.edges = append(s.edges, Edge{
				ID:           e.ID,
				Source:       e.SourceNodeID,
				Target:       e.TargetNodeID,
				SourceHandle: e.SourceHandle,
				TargetHandle: e.TargetHandle,
				Label:        e.Label,
				Kind:         e.Kind,
			})
		}
	}

	return s
}

// AddNode places a new node of the given type at the canvas center. Without
// a canvas the call is a no-op. The node gets a fresh id and the catalog's
// default data for its type.
func (s *State) AddNode(nodeType catalog.NodeType) {
	if s.canvas == nil {
		s.logger.Debug("add node skipped, no canvas attached", "type", nodeType)
		return
	}

	center, ok := s.canvas.Center()
	if !ok {
		center = defaultCenter
	}

	s.doCheckpoint()

	def := s.catalog.Get(nodeType)
	node := Node{
		ID:       uuid.New().String(),
		Type:     nodeType,
		Position: center,
		Data: NodeData{
			Label:       def.Label,
			Description: def.Description,
			Config:      copyConfig(def.DefaultConfig),
		},
	}
	s.nodes = append(s.nodes, node)

	s.notify("Node added", "Added "+def.Label+" node to the canvas")
}

// DeleteSelectedNode removes the selected node and every edge touching it.
// No selection is a no-op.
func (s *State) DeleteSelectedNode() {
	node, ok := s.findNode(s.selected)
	if !ok {
		return
	}

	s.doCheckpoint()

	kept := s.edges[:0]
	for _, e := range s.edges {
		if e.Source != node.ID && e.Target != node.ID {
			kept = append(kept, e)
		}
	}
	s.edges = kept

	for i, n := range s.nodes {
		if n.ID == node.ID {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			break
		}
	}
	s.selected = ""

	s.notify("Node deleted", "Removed "+string(node.Type)+" node and its connections")
}

// DuplicateSelectedNode copies the selected node to a new id at a fixed
// offset. Selection is unchanged. No selection is a no-op.
func (s *State) DuplicateSelectedNode() {
	node, ok := s.findNode(s.selected)
	if !ok {
		return
	}

	s.doCheckpoint()

	dup := Node{
		ID:   uuid.New().String(),
		Type: node.Type,
		Position: Position{
			X: node.Position.X + duplicateOffset,
			Y: node.Position.Y + duplicateOffset,
		},
		Data: NodeData{
			Label:       node.Data.Label,
			Description: node.Data.Description,
			Config:      copyConfig(node.Data.Config),
		},
	}
	s.nodes = append(s.nodes, dup)

	s.notify("Node duplicated", "Duplicated "+string(node.Type)+" node")
}

// Connect adds a directed edge between two existing nodes. Missing endpoints
// and already-equivalent edges are no-ops. Edge label and kind derive from
// the source node's type; cycles and self-loops are allowed.
func (s *State) Connect(source, target, sourceHandle, targetHandle string) {
	src, ok := s.findNode(source)
	if !ok {
		return
	}
	if _, ok := s.findNode(target); !ok {
		return
	}

	for _, e := range s.edges {
		if e.Source == source && e.Target == target &&
			e.SourceHandle == sourceHandle && e.TargetHandle == targetHandle {
			return
		}
	}

	s.doCheckpoint()

	s.edges = append(s.edges, Edge{
		ID:           uuid.New().String(),
		Source:       source,
		Target:       target,
		SourceHandle: sourceHandle,
		TargetHandle: targetHandle,
		Label:        edgeLabel(src.Type, sourceHandle),
		Kind:         edgeKind(src.Type),
	})
}

// OrganizeLayout reassigns every node position using the configured layout
// strategy and asks the canvas to refit its viewport. Records a checkpoint
// only when layout checkpointing is enabled.
func (s *State) OrganizeLayout() {
	if s.layout == nil || len(s.nodes) == 0 {
		return
	}

	if s.layoutCheckpoint {
		s.doCheckpoint()
	}

	positions := s.layout.Arrange(s.nodes, s.edges)
	for i := range s.nodes {
		if i < len(positions) {
			s.nodes[i].Position = positions[i]
		}
	}

	if s.canvas != nil {
		s.canvas.FitView()
	}

	s.notify("Layout organized", "Rearranged "+s.layout.Name()+" layout")
}

// SetLayout replaces the layout strategy used by OrganizeLayout. A nil
// strategy is ignored.
func (s *State) SetLayout(l LayoutStrategy) {
	if l != nil {
		s.layout = l
	}
}

// Select sets the selection to the node with the given id. An empty or
// unknown id clears the selection.
func (s *State) Select(id string) {
	if _, ok := s.findNode(id); ok {
		s.selected = id
		return
	}
	s.selected = ""
}

// SetSearchQuery stores the raw filter query. The canonical node set is
// never mutated by filtering.
func (s *State) SetSearchQuery(q string) {
	s.query = q
}

// SearchQuery returns the current filter query
func (s *State) SearchQuery() string {
	return s.query
}

// Nodes returns a copy of the node list
func (s *State) Nodes() []Node {
	out := make([]Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Edges returns a copy of the edge list
func (s *State) Edges() []Edge {
	out := make([]Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// SelectedNode returns the selected node, or nil when nothing is selected
func (s *State) SelectedNode() *Node {
	if node, ok := s.findNode(s.selected); ok {
		n := node
		return &n
	}
	return nil
}

// FilteredNodes returns the nodes matching the search query. An empty query
// returns all nodes in order. Matching is a case-insensitive substring test
// on label and description; missing fields count as empty strings.
func (s *State) FilteredNodes() []Node {
	if s.query == "" {
		return s.Nodes()
	}

	q := strings.ToLower(s.query)
	out := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		if strings.Contains(strings.ToLower(n.Data.Label), q) ||
			strings.Contains(strings.ToLower(n.Data.Description), q) {
			out = append(out, n)
		}
	}
	return out
}

// Snapshot captures a deep copy of the graph for the history collaborator
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Nodes: make([]Node, len(s.nodes)),
		Edges: make([]Edge, len(s.edges)),
	}
	for i, n := range s.nodes {
		snap.Nodes[i] = n
		snap.Nodes[i].Data.Config = copyConfig(n.Data.Config)
	}
	copy(snap.Edges, s.edges)
	return snap
}

// Restore replaces the graph with a previously captured snapshot. Selection
// is cleared if the selected node is gone.
func (s *State) Restore(snap Snapshot) {
	s.nodes = make([]Node, len(snap.Nodes))
	for i, n := range snap.Nodes {
		s.nodes[i] = n
		s.nodes[i].Data.Config = copyConfig(n.Data.Config)
	}
	s.edges = make([]Edge, len(snap.Edges))
	copy(s.edges, snap.Edges)

	if _, ok := s.findNode(s.selected); !ok {
		s.selected = ""
	}
}

// Snapshot is a point-in-time copy of the graph used for undo/redo
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Flow exports the working copy back to a flow for persistence
func (s *State) Flow(id, name, description string) *flowstore.Flow {
	flow := &flowstore.Flow{
		ID:          id,
		Name:        name,
		Description: description,
		Nodes:       make([]flowstore.FlowNode, 0, len(s.nodes)),
		Edges:       make([]flowstore.FlowEdge, 0, len(s.edges)),
	}
	for _, n := range s.nodes {
		flow.Nodes = append(flow.Nodes, flowstore.FlowNode{
			ID:       n.ID,
			Type:     string(n.Type),
			Position: n.Position,
			Data: flowstore.NodeData{
				Label:       n.Data.Label,
				Description: n.Data.Description,
				Config:      copyConfig(n.Data.Config),
			},
		})
	}
	for _, e := range s.edges {
		flow.Edges = append(flow.Edges, flowstore.FlowEdge{
			ID:           e.ID,
			SourceNodeID: e.Source,
			SourceHandle: e.SourceHandle,
			TargetNodeID: e.Target,
			TargetHandle: e.TargetHandle,
			Label:        e.Label,
			Kind:         e.Kind,
		})
	}
	return flow
}

func (s *State) findNode(id string) (Node, bool) {
	if id == "" {
		return Node{}, false
	}
	for _, n := range s.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

func (s *State) doCheckpoint() {
	if s.checkpoint != nil {
		s.checkpoint()
	}
}

func (s *State) notify(title, description string) {
	if s.notifier != nil {
		s.notifier.Notify(title, description)
	}
}

// edgeLabel derives the edge label from the source node type. Condition
// nodes label their branches by outgoing handle.
func edgeLabel(sourceType catalog.NodeType, sourceHandle string) string {
	if sourceType != catalog.TypeCondition {
		return ""
	}
	switch sourceHandle {
	case "false":
		return "false"
	default:
		return "true"
	}
}

// edgeKind derives the visual edge kind from the source node type
func edgeKind(sourceType catalog.NodeType) string {
	switch sourceType {
	case catalog.TypeCondition:
		return "branch"
	case catalog.TypeLoop:
		return "loop"
	default:
		return "default"
	}
}

func copyConfig(cfg map[string]any) map[string]any {
	if cfg == nil {
		return nil
	}
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = v
	}
	return out
}
