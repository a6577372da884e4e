// Package catalog provides the node-type catalog for the flow editor.
// Each node type carries default data used when the editor places a new
// node on the canvas.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/c360/flowcanvas/errors"
)

// NodeType identifies a kind of node on the canvas
type NodeType string

// Built-in node types
const (
	TypeTrigger   NodeType = "trigger"
	TypeAction    NodeType = "action"
	TypeCondition NodeType = "condition"
	TypeLoop      NodeType = "loop"
	TypeTransform NodeType = "transform"
	TypeDelay     NodeType = "delay"
)

// Definition describes a node type and its defaults
type Definition struct {
	Type          NodeType       `json:"type"`
	Label         string         `json:"label"`
	Description   string         `json:"description"`
	DefaultConfig map[string]any `json:"default_config,omitempty"`
}

// Registry holds the available node-type definitions
type Registry struct {
	mu          sync.RWMutex
	definitions map[NodeType]Definition
}

// NewRegistry creates a registry seeded with the built-in node types
func NewRegistry() *Registry {
	r := &Registry{
		definitions: make(map[NodeType]Definition),
	}

	builtins := []Definition{
		{
			Type:        TypeTrigger,
			Label:       "Trigger",
			Description: "Starts the flow when an external event arrives",
			DefaultConfig: map[string]any{
				"trigger_type": "manual",
			},
		},
		{
			Type:        TypeAction,
			Label:       "Action",
			Description: "Performs a single step in the flow",
			DefaultConfig: map[string]any{
				"action_type": "http_request",
			},
		},
		{
			Type:        TypeCondition,
			Label:       "Condition",
			Description: "Branches the flow on a true/false decision",
			DefaultConfig: map[string]any{
				"expression": "",
			},
		},
		{
			Type:        TypeLoop,
			Label:       "Loop",
			Description: "Repeats downstream steps over a collection",
			DefaultConfig: map[string]any{
				"max_iterations": 100,
			},
		},
		{
			Type:        TypeTransform,
			Label:       "Transform",
			Description: "Reshapes data between steps",
		},
		{
			Type:        TypeDelay,
			Label:       "Delay",
			Description: "Pauses the flow for a configured duration",
			DefaultConfig: map[string]any{
				"duration_seconds": 60,
			},
		},
	}

	for _, def := range builtins {
		r.definitions[def.Type] = def
	}

	return r
}

// Register adds or replaces a node-type definition
func (r *Registry) Register(def Definition) error {
	if def.Type == "" {
		return errors.WrapInvalid(
			fmt.Errorf("definition type cannot be empty"),
			"catalog", "Register", "validate definition")
	}
	if def.Label == "" {
		return errors.WrapInvalid(
			fmt.Errorf("definition label cannot be empty"),
			"catalog", "Register", "validate definition")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[def.Type] = def
	return nil
}

// Get returns the definition for a node type. Unknown types receive a
// generic definition so the editor degrades instead of failing.
func (r *Registry) Get(t NodeType) Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if def, ok := r.definitions[t]; ok {
		return def
	}

	return Definition{
		Type:        t,
		Label:       string(t),
		Description: "",
	}
}

// Known reports whether the node type has a registered definition
func (r *Registry) Known(t NodeType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.definitions[t]
	return ok
}

// Types returns all registered node types in stable order
func (r *Registry) Types() []NodeType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]NodeType, 0, len(r.definitions))
	for t := range r.definitions {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Definitions returns all registered definitions in stable type order
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.definitions))
	for _, def := range r.definitions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Type < defs[j].Type })
	return defs
}
