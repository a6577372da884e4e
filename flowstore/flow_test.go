package flowstore

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/c360/flowcanvas/errors"
)

func validFlow() Flow {
	return Flow{
		ID:          "flow-123",
		Name:        "Order Processing",
		Description: "Processes incoming orders",
		Version:     1,
		Nodes: []FlowNode{
			{
				ID:       "node-1",
				Type:     "trigger",
				Position: Position{X: 100, Y: 100},
				Data:     NodeData{Label: "New Order", Config: map[string]any{"trigger_type": "webhook"}},
			},
			{
				ID:       "node-2",
				Type:     "condition",
				Position: Position{X: 300, Y: 100},
				Data:     NodeData{Label: "In Stock?"},
			},
		},
		Edges: []FlowEdge{
			{
				ID:           "edge-1",
				SourceNodeID: "node-1",
				TargetNodeID: "node-2",
			},
		},
	}
}

func TestFlowValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Flow)
		wantError bool
	}{
		{
			name:      "valid flow",
			mutate:    func(*Flow) {},
			wantError: false,
		},
		{
			name:      "empty flow ID",
			mutate:    func(f *Flow) { f.ID = "" },
			wantError: true,
		},
		{
			name:      "empty name",
			mutate:    func(f *Flow) { f.Name = "" },
			wantError: true,
		},
		{
			name:      "node with empty ID",
			mutate:    func(f *Flow) { f.Nodes[0].ID = "" },
			wantError: true,
		},
		{
			name:      "node with empty type",
			mutate:    func(f *Flow) { f.Nodes[1].Type = "" },
			wantError: true,
		},
		{
			name:      "duplicate node IDs",
			mutate:    func(f *Flow) { f.Nodes[1].ID = f.Nodes[0].ID },
			wantError: true,
		},
		{
			name:      "edge with empty ID",
			mutate:    func(f *Flow) { f.Edges[0].ID = "" },
			wantError: true,
		},
		{
			name:      "edge with missing source node",
			mutate:    func(f *Flow) { f.Edges[0].SourceNodeID = "ghost" },
			wantError: true,
		},
		{
			name:      "edge with missing target node",
			mutate:    func(f *Flow) { f.Edges[0].TargetNodeID = "ghost" },
			wantError: true,
		},
		{
			name: "duplicate edge IDs",
			mutate: func(f *Flow) {
				f.Edges = append(f.Edges, FlowEdge{
					ID:           "edge-1",
					SourceNodeID: "node-2",
					TargetNodeID: "node-1",
				})
			},
			wantError: true,
		},
		{
			name: "self-loop edge is allowed",
			mutate: func(f *Flow) {
				f.Edges = append(f.Edges, FlowEdge{
					ID:           "edge-2",
					SourceNodeID: "node-1",
					TargetNodeID: "node-1",
				})
			},
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := validFlow()
			tt.mutate(&flow)

			err := flow.Validate()
			if tt.wantError {
				if err == nil {
					t.Fatal("Flow.Validate() expected error, got nil")
				}
				if !errors.IsInvalid(err) {
					t.Errorf("Flow.Validate() error should be Invalid, got: %v", err)
				}
			} else if err != nil {
				t.Errorf("Flow.Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestFlowClone(t *testing.T) {
	original := validFlow()
	clone := original.Clone()

	if diff := cmp.Diff(&original, clone); diff != "" {
		t.Fatalf("clone differs from original (-want +got):\n%s", diff)
	}

	// Mutating the clone must not reach the original
	clone.Nodes[0].Position = Position{X: 999, Y: 999}
	clone.Nodes[0].Data.Config["trigger_type"] = "manual"
	clone.Edges[0].Label = "changed"

	if original.Nodes[0].Position.X == 999 {
		t.Error("clone shares node slice with original")
	}
	if original.Nodes[0].Data.Config["trigger_type"] == "manual" {
		t.Error("clone shares node config map with original")
	}
	if original.Edges[0].Label == "changed" {
		t.Error("clone shares edge slice with original")
	}
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantError bool
	}{
		{
			name: "valid document",
			doc: `{
				"name": "Test Flow",
				"nodes": [{"id": "n1", "type": "trigger", "position": {"x": 1, "y": 2}}],
				"edges": []
			}`,
			wantError: false,
		},
		{
			name:      "missing name",
			doc:       `{"nodes": [], "edges": []}`,
			wantError: true,
		},
		{
			name:      "empty name",
			doc:       `{"name": ""}`,
			wantError: true,
		},
		{
			name: "node missing position",
			doc: `{
				"name": "Test",
				"nodes": [{"id": "n1", "type": "trigger"}]
			}`,
			wantError: true,
		},
		{
			name: "edge missing endpoints",
			doc: `{
				"name": "Test",
				"edges": [{"id": "e1"}]
			}`,
			wantError: true,
		},
		{
			name:      "malformed JSON",
			doc:       `{"name": `,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument([]byte(tt.doc))
			if tt.wantError {
				if err == nil {
					t.Fatal("ValidateDocument() expected error, got nil")
				}
				if !errors.IsInvalid(err) {
					t.Errorf("ValidateDocument() error should be Invalid, got: %v", err)
				}
			} else if err != nil {
				t.Errorf("ValidateDocument() unexpected error: %v", err)
			}
		})
	}
}
