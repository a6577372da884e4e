// Package history provides the undo/redo stack for editor sessions. It is a
// separate collaborator from the editor state: the editor only invokes a
// checkpoint hook, and the session owns when snapshots are pushed, undone,
// or redone.
package history

import "github.com/c360/flowcanvas/editor"

// DefaultCapacity bounds the undo stack when no limit is configured
const DefaultCapacity = 50

// Stack is a bounded linear undo/redo history of graph snapshots.
// Pushing a new snapshot discards the redo branch. When the undo stack is
// full the oldest entry is evicted. Not safe for concurrent use; the owning
// session serializes access.
type Stack struct {
	undo     []editor.Snapshot
	redo     []editor.Snapshot
	capacity int
}

// NewStack creates a history stack. Non-positive capacity falls back to
// DefaultCapacity.
func NewStack(capacity int) *Stack {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Stack{capacity: capacity}
}

// Push records a snapshot taken just before a structural mutation and
// clears any redo entries.
func (s *Stack) Push(snap editor.Snapshot) {
	if len(s.undo) >= s.capacity {
		s.undo = s.undo[1:]
	}
	s.undo = append(s.undo, snap)
	s.redo = s.redo[:0]
}

// Undo pops the most recent snapshot. The caller passes the current graph
// state, which becomes redoable. Returns false when there is nothing to
// undo.
func (s *Stack) Undo(current editor.Snapshot) (editor.Snapshot, bool) {
	if len(s.undo) == 0 {
		return editor.Snapshot{}, false
	}

	snap := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, current)
	return snap, true
}

// Redo re-applies the most recently undone snapshot. The caller passes the
// current graph state, which becomes undoable again. Returns false when
// there is nothing to redo.
func (s *Stack) Redo(current editor.Snapshot) (editor.Snapshot, bool) {
	if len(s.redo) == 0 {
		return editor.Snapshot{}, false
	}

	snap := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, current)
	return snap, true
}

// CanUndo reports whether an undo is available
func (s *Stack) CanUndo() bool { return len(s.undo) > 0 }

// CanRedo reports whether a redo is available
func (s *Stack) CanRedo() bool { return len(s.redo) > 0 }

// Len returns the number of undoable snapshots
func (s *Stack) Len() int { return len(s.undo) }
