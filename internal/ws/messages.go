package ws

import "encoding/json"

// Envelope wraps every WS frame.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "content.delta"
	Body  json.RawMessage `json:"body,omitempty"` // arbitrary JSON object
}

// Reply is an optional response frame produced by an event handler. A nil
// Reply means the handler has nothing to say back; relays never reply.
type Reply struct {
	Event string
	Body  any
}

// ──────────────────────────── Request DTOs ───────────────────────────────

// AuthenticateBody is the body for "authenticate".
type AuthenticateBody struct {
	Token string `json:"token"`
}

// RoomBody is the body for "room.join" and "room.leave".
type RoomBody struct {
	DocumentID string `json:"documentId"`
}

// ContentDeltaBody carries an opaque editor delta. The payload is relayed
// untouched; the hub attaches identity, nothing else.
type ContentDeltaBody struct {
	DocumentID string          `json:"documentId"`
	Payload    json.RawMessage `json:"payload"`
}

// CursorMoveBody carries a cursor position in whatever shape the editor
// uses (offset, line/column object, ...).
type CursorMoveBody struct {
	DocumentID string          `json:"documentId"`
	Position   json.RawMessage `json:"position"`
}

// SelectionSetBody carries a selection range.
type SelectionSetBody struct {
	DocumentID string          `json:"documentId"`
	Start      json.RawMessage `json:"start"`
	End        json.RawMessage `json:"end"`
}

// TypingBody is the body for the typing indicator.
type TypingBody struct {
	DocumentID string `json:"documentId"`
	IsTyping   bool   `json:"isTyping"`
}

// PingBody is the (empty) body for "activity.ping".
type PingBody struct{}
