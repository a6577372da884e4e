package editor

import (
	"fmt"
	"math/rand"
	"sort"
)

// LayoutStrategy assigns a canvas position to every node. Arrange returns
// one position per input node, in input order, and must not mutate its
// arguments.
type LayoutStrategy interface {
	Name() string
	Arrange(nodes []Node, edges []Edge) []Position
}

// Layout spacing constants shared by the strategies
const (
	layoutColumnGap = 250.0
	layoutRowGap    = 120.0
	layoutMarginX   = 100.0
	layoutMarginY   = 100.0
	scatterWidth    = 800.0
	scatterHeight   = 600.0
)

// ScatterLayout places nodes pseudo-randomly within a bounded region.
// A fixed seed gives reproducible placement. This is the baseline strategy;
// LayeredLayout is the structured alternative.
type ScatterLayout struct {
	seed int64
}

// NewScatterLayout creates a scatter layout with the given seed
func NewScatterLayout(seed int64) *ScatterLayout {
	return &ScatterLayout{seed: seed}
}

// Name returns the strategy name
func (l *ScatterLayout) Name() string { return "scatter" }

// Arrange places each node at a seeded random point inside the region
func (l *ScatterLayout) Arrange(nodes []Node, _ []Edge) []Position {
	rng := rand.New(rand.NewSource(l.seed))

	positions := make([]Position, len(nodes))
	for i := range nodes {
		positions[i] = Position{
			X: layoutMarginX + rng.Float64()*scatterWidth,
			Y: layoutMarginY + rng.Float64()*scatterHeight,
		}
	}
	return positions
}

// LayeredLayout arranges nodes in columns by graph depth: nodes with no
// incoming edges form column 0, their successors the next column, and so
// on. Back edges in cycles are ignored for depth purposes, so cyclic
// graphs still get a stable arrangement. Output is deterministic for a
// given graph.
type LayeredLayout struct{}

// NewLayeredLayout creates a layered layout
func NewLayeredLayout() *LayeredLayout {
	return &LayeredLayout{}
}

// Name returns the strategy name
func (l *LayeredLayout) Name() string { return "layered" }

// Arrange assigns columns via BFS from the roots, then stacks each
// column's nodes in a stable order.
func (l *LayeredLayout) Arrange(nodes []Node, edges []Edge) []Position {
	if len(nodes) == 0 {
		return nil
	}

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}

	indegree := make(map[string]int, len(nodes))
	successors := make(map[string][]string, len(nodes))
	for _, e := range edges {
		if _, ok := index[e.Source]; !ok {
			continue
		}
		if _, ok := index[e.Target]; !ok {
			continue
		}
		if e.Source == e.Target {
			continue
		}
		indegree[e.Target]++
		successors[e.Source] = append(successors[e.Source], e.Target)
	}

	// Roots are the nodes nothing points at. A fully cyclic graph has no
	// roots, so fall back to treating every node as a root.
	layer := make(map[string]int, len(nodes))
	queue := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if indegree[n.ID] == 0 {
			layer[n.ID] = 0
			queue = append(queue, n.ID)
		}
	}
	if len(queue) == 0 {
		for _, n := range nodes {
			layer[n.ID] = 0
			queue = append(queue, n.ID)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range successors[id] {
			if current, seen := layer[next]; !seen || layer[id]+1 > current {
				// Cap depth so a cycle cannot loop forever
				if layer[id]+1 > len(nodes) {
					continue
				}
				layer[next] = layer[id] + 1
				queue = append(queue, next)
			}
		}
	}

	// Unreachable nodes (only targeted from inside a cycle) land in column 0
	byLayer := make(map[int][]string)
	for _, n := range nodes {
		depth := layer[n.ID]
		byLayer[depth] = append(byLayer[depth], n.ID)
	}
	for _, ids := range byLayer {
		sort.Strings(ids)
	}

	positions := make([]Position, len(nodes))
	for depth, ids := range byLayer {
		for row, id := range ids {
			positions[index[id]] = Position{
				X: layoutMarginX + float64(depth)*layoutColumnGap,
				Y: layoutMarginY + float64(row)*layoutRowGap,
			}
		}
	}
	return positions
}

// StrategyByName resolves a layout strategy from its name
func StrategyByName(name string) (LayoutStrategy, error) {
	switch name {
	case "scatter", "":
		return NewScatterLayout(0), nil
	case "layered":
		return NewLayeredLayout(), nil
	default:
		return nil, fmt.Errorf("unknown layout strategy: %s", name)
	}
}
