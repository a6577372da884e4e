package flowstore

import (
	"fmt"
	"time"

	"github.com/c360/flowcanvas/errors"
)

// Flow represents a visual flow definition with metadata and canvas layout
type Flow struct {
	// Identity
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Version for optimistic concurrency control
	Version int64 `json:"version"`

	// Canvas layout
	Nodes []FlowNode `json:"nodes"`
	Edges []FlowEdge `json:"edges"`

	// Audit
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`
}

// FlowNode represents a node instance on the canvas
type FlowNode struct {
	ID       string   `json:"id"`       // Unique instance ID
	Type     string   `json:"type"`     // Node kind from the catalog (e.g. "trigger", "condition")
	Position Position `json:"position"` // Canvas coordinates
	Data     NodeData `json:"data"`     // Kind-specific payload
}

// NodeData holds the display payload and configuration of a node
type NodeData struct {
	Label       string         `json:"label"`
	Description string         `json:"description,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
}

// FlowEdge represents a directed connection between two node ports
type FlowEdge struct {
	ID           string `json:"id"`
	SourceNodeID string `json:"source_node_id"`
	SourceHandle string `json:"source_handle,omitempty"`
	TargetNodeID string `json:"target_node_id"`
	TargetHandle string `json:"target_handle,omitempty"`
	Label        string `json:"label,omitempty"` // e.g. "true"/"false" on condition branches
	Kind         string `json:"kind,omitempty"`  // visual edge kind derived from the source node type
}

// Position represents canvas coordinates for a node
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Validate checks if the flow is structurally valid
func (f *Flow) Validate() error {
	if f.ID == "" {
		return errors.WrapInvalid(fmt.Errorf("flow ID cannot be empty"), "flowstore", "Validate", "validation failed")
	}
	if f.Name == "" {
		return errors.WrapInvalid(fmt.Errorf("flow name cannot be empty"), "flowstore", "Validate", "validation failed")
	}

	// Node ids must be unique within the flow
	nodeIDs := make(map[string]bool)
	for i, node := range f.Nodes {
		if node.ID == "" {
			return errors.WrapInvalid(
				fmt.Errorf("node at index %d has empty ID", i),
				"flowstore", "Validate", "node ID validation failed")
		}
		if node.Type == "" {
			return errors.WrapInvalid(
				fmt.Errorf("node '%s' has empty type", node.ID),
				"flowstore", "Validate", "node type validation failed")
		}
		if nodeIDs[node.ID] {
			return errors.WrapInvalid(
				fmt.Errorf("duplicate node ID: %s", node.ID),
				"flowstore", "Validate", "duplicate node ID detected")
		}
		nodeIDs[node.ID] = true
	}

	// Every edge must reference existing nodes
	edgeIDs := make(map[string]bool)
	for i, edge := range f.Edges {
		if edge.ID == "" {
			return errors.WrapInvalid(
				fmt.Errorf("edge at index %d has empty ID", i),
				"flowstore", "Validate", "edge ID validation failed")
		}
		if edgeIDs[edge.ID] {
			return errors.WrapInvalid(
				fmt.Errorf("duplicate edge ID: %s", edge.ID),
				"flowstore", "Validate", "duplicate edge ID detected")
		}
		edgeIDs[edge.ID] = true

		if !nodeIDs[edge.SourceNodeID] {
			return errors.WrapInvalid(
				fmt.Errorf("edge '%s' references non-existent source node: %s", edge.ID, edge.SourceNodeID),
				"flowstore", "Validate", "edge source node validation failed")
		}
		if !nodeIDs[edge.TargetNodeID] {
			return errors.WrapInvalid(
				fmt.Errorf("edge '%s' references non-existent target node: %s", edge.ID, edge.TargetNodeID),
				"flowstore", "Validate", "edge target node validation failed")
		}
	}

	return nil
}

// Clone returns a deep copy of the flow
func (f *Flow) Clone() *Flow {
	clone := *f

	clone.Nodes = make([]FlowNode, len(f.Nodes))
	for i, node := range f.Nodes {
		clone.Nodes[i] = node
		if node.Data.Config != nil {
			cfg := make(map[string]any, len(node.Data.Config))
			for k, v := range node.Data.Config {
				cfg[k] = v
			}
			clone.Nodes[i].Data.Config = cfg
		}
	}

	clone.Edges = make([]FlowEdge, len(f.Edges))
	copy(clone.Edges, f.Edges)

	return &clone
}
