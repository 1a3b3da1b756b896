package room

import (
	"encoding/json"

	"github.com/gammazero/deque"

	"realtime-core/internal/model"
)

// The whiteboard is a single shared per-room object: undo and redo act
// on the room's canvas globally, not per user. Draw and Clear exclude
// the sender from the broadcast (the sender already applied the op
// locally); Undo and Redo send the resulting full canvas to everyone,
// invoker included, so all clients converge on the same state.

// Draw pushes the pre-op snapshot onto the undo stack, applies the op,
// clears the redo stack and broadcasts the op to the other members.
func (reg *Registry) Draw(p *Participant, roomID string, op json.RawMessage) error {
	r, ok := reg.lookup(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isMemberLocked(p.ID) {
		return ErrNotInRoom
	}
	r.pushUndoLocked()
	canvas := make(model.Canvas, len(r.canvas), len(r.canvas)+1)
	copy(canvas, r.canvas)
	r.canvas = append(canvas, op)
	r.redo.Clear()
	r.fanout(r.othersLocked(p.ID), model.Outbound{
		Type:    model.TypeWhiteboardDraw,
		RoomID:  r.ID,
		Payload: model.DrawEvent{SenderID: p.ID, Op: op},
	})
	return nil
}

// ClearBoard empties the canvas with the same undo-stack and redo-clear
// discipline as Draw.
func (reg *Registry) ClearBoard(p *Participant, roomID string) error {
	r, ok := reg.lookup(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isMemberLocked(p.ID) {
		return ErrNotInRoom
	}
	r.pushUndoLocked()
	r.canvas = model.Canvas{}
	r.redo.Clear()
	r.fanout(r.othersLocked(p.ID), model.Outbound{
		Type:    model.TypeWhiteboardClear,
		RoomID:  r.ID,
		Payload: model.DrawEvent{SenderID: p.ID},
	})
	return nil
}

// Undo reverts the most recent operation and broadcasts the resulting
// full canvas to all members. An empty undo stack is a no-op.
func (reg *Registry) Undo(p *Participant, roomID string) error {
	r, ok := reg.lookup(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isMemberLocked(p.ID) {
		return ErrNotInRoom
	}
	if r.undo.Len() == 0 {
		return nil
	}
	r.pushBounded(&r.redo, r.canvas)
	r.canvas = r.undo.PopBack()
	r.fanout(r.allLocked(), model.Outbound{
		Type:    model.TypeWhiteboardState,
		RoomID:  r.ID,
		Payload: model.WhiteboardStatePayload{Canvas: r.canvas.Clone()},
	})
	return nil
}

// Redo is the symmetric inverse of Undo.
func (reg *Registry) Redo(p *Participant, roomID string) error {
	r, ok := reg.lookup(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isMemberLocked(p.ID) {
		return ErrNotInRoom
	}
	if r.redo.Len() == 0 {
		return nil
	}
	r.pushBounded(&r.undo, r.canvas)
	r.canvas = r.redo.PopBack()
	r.fanout(r.allLocked(), model.Outbound{
		Type:    model.TypeWhiteboardState,
		RoomID:  r.ID,
		Payload: model.WhiteboardStatePayload{Canvas: r.canvas.Clone()},
	})
	return nil
}

// Canvas snapshots the room's current canvas.
func (reg *Registry) Canvas(roomID string) model.Canvas {
	r, ok := reg.lookup(roomID)
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canvas.Clone()
}

// UndoDepth reports the current undo/redo stack depths.
func (reg *Registry) UndoDepth(roomID string) (undo, redo int) {
	r, ok := reg.lookup(roomID)
	if !ok {
		return 0, 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.undo.Len(), r.redo.Len()
}

func (r *Room) pushUndoLocked() {
	r.pushBounded(&r.undo, r.canvas)
}

// pushBounded appends a snapshot, evicting the oldest when the stack is
// at its depth limit.
func (r *Room) pushBounded(stack *deque.Deque[model.Canvas], snapshot model.Canvas) {
	if stack.Len() >= r.limits.UndoDepth {
		stack.PopFront()
	}
	stack.PushBack(snapshot.Clone())
}
