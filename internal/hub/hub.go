package hub

import (
	"sync"
	"time"
)

// Sender delivers one named event to one connection. Implementations are
// fire-and-forget from the hub's point of view: a failed send to a gone
// recipient never aborts a fan-out.
type Sender interface {
	Send(connID, event string, payload any) error
}

// conn is the hub's record of one authenticated transport session.
type conn struct {
	id          string
	userID      string
	displayName string
	color       string
	room        string // "" until the client joins a document
	lastActive  time.Time
}

// Eviction reports one connection removed by SweepIdle, so the transport
// layer can tear down the underlying session as well.
type Eviction struct {
	ConnID string
	Room   string
}

// Hub tracks connections and room membership and fans collaboration events
// out to room members. All state lives in the two maps below; a single
// mutex serializes every mutation. Outbound sends happen after the maps are
// fully updated, so recipients never observe a half-applied membership view.
type Hub struct {
	mu     sync.Mutex
	sender Sender

	conns map[string]*conn               // connID -> record
	rooms map[string]map[string]struct{} // documentID -> member connIDs

	nextColor int
}

func NewHub(sender Sender) *Hub {
	return &Hub{
		sender: sender,
		conns:  make(map[string]*conn),
		rooms:  make(map[string]map[string]struct{}),
	}
}

// Authenticate registers connID under the given identity and returns the
// assigned presence color. Multiple live connections per user are fine; each
// gets its own record. Re-authenticating an existing connection updates the
// identity but keeps the color stable.
func (h *Hub) Authenticate(connID, userID, displayName string) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.conns[connID]; ok {
		c.userID = userID
		c.displayName = displayName
		c.lastActive = time.Now()
		return c.color
	}

	color := palette[h.nextColor%len(palette)]
	h.nextColor++
	h.conns[connID] = &conn{
		id:          connID,
		userID:      userID,
		displayName: displayName,
		color:       color,
		lastActive:  time.Now(),
	}
	return color
}

// TouchActivity refreshes the connection's last-activity timestamp.
func (h *Hub) TouchActivity(connID string) {
	h.mu.Lock()
	if c, ok := h.conns[connID]; ok {
		c.lastActive = time.Now()
	}
	h.mu.Unlock()
}

// Join moves the connection into the room for documentID, leaving its
// previous room first if needed. The joiner alone receives a full roster
// snapshot; everyone already present receives member.joined. Unknown
// connections are ignored. Rejoining the current room only resends the
// snapshot. Returns the room left by the implicit leave, if any, so
// transport adapters can release per-room resources; prevRoom equals
// documentID on a rejoin.
func (h *Hub) Join(connID, documentID string) (prevRoom string, ok bool) {
	h.mu.Lock()
	c, exists := h.conns[connID]
	if !exists {
		h.mu.Unlock()
		return "", false
	}
	c.lastActive = time.Now()

	var leftNotify []notice
	rejoin := c.room == documentID
	if c.room != "" && !rejoin {
		prevRoom = c.room
		leftNotify = h.leaveLocked(c)
	}
	if rejoin {
		prevRoom = documentID
	}

	members, memExists := h.rooms[documentID]
	if !memExists {
		members = make(map[string]struct{})
		h.rooms[documentID] = members
	}
	members[connID] = struct{}{}
	c.room = documentID

	// Roster excludes the joiner itself.
	roster := make([]Member, 0, len(members)-1)
	var joined []notice
	for id := range members {
		if id == connID {
			continue
		}
		m := h.conns[id]
		roster = append(roster, Member{UserID: m.userID, DisplayName: m.displayName, Color: m.color})
		if rejoin {
			continue // members already saw this connection join
		}
		joined = append(joined, notice{
			connID:  id,
			event:   EvtMemberJoined,
			payload: Member{UserID: c.userID, DisplayName: c.displayName, Color: c.color},
		})
	}
	h.mu.Unlock()

	h.deliver(leftNotify)
	_ = h.sender.Send(connID, EvtRoomSnapshot, map[string]any{"members": roster})
	h.deliver(joined)
	return prevRoom, true
}

// Leave removes the connection from documentID's room and tells the
// remaining members. Leaving a room the connection is not in is a no-op.
func (h *Hub) Leave(connID, documentID string) bool {
	h.mu.Lock()
	c, ok := h.conns[connID]
	if !ok || c.room != documentID {
		h.mu.Unlock()
		return false
	}
	c.lastActive = time.Now()
	notify := h.leaveLocked(c)
	h.mu.Unlock()

	h.deliver(notify)
	return true
}

// Relay stamps the payload with the sender's authoritative identity and
// sends it to every other member of the sender's current room. Client-sent
// identity fields are overwritten, never trusted. Events from connections
// that are unknown or roomless are dropped silently. The stamped payload
// and room are returned so callers can republish (e.g. cross-instance).
func (h *Hub) Relay(connID, kind string, payload map[string]any) (room string, stamped map[string]any, ok bool) {
	h.mu.Lock()
	c, exists := h.conns[connID]
	if !exists || c.room == "" {
		h.mu.Unlock()
		return "", nil, false
	}
	c.lastActive = time.Now()

	if payload == nil {
		payload = make(map[string]any)
	}
	payload["userId"] = c.userID
	payload["displayName"] = c.displayName
	switch kind {
	case EvtCursorMove, EvtSelectionSet:
		payload["color"] = c.color
	default:
		delete(payload, "color")
	}

	room = c.room
	var notify []notice
	for id := range h.rooms[room] {
		if id == connID {
			continue
		}
		notify = append(notify, notice{connID: id, event: kind, payload: payload})
	}
	h.mu.Unlock()

	h.deliver(notify)
	return room, payload, true
}

// BroadcastRoom sends an already-stamped event to every current member of
// the room, with no exclusions. Used for events originating outside this
// instance.
func (h *Hub) BroadcastRoom(documentID, event string, payload any) {
	h.mu.Lock()
	var notify []notice
	for id := range h.rooms[documentID] {
		notify = append(notify, notice{connID: id, event: event, payload: payload})
	}
	h.mu.Unlock()

	h.deliver(notify)
}

// Disconnect performs leave side effects (if the connection was in a room)
// and deletes the record. Idempotent: a second call for the same connID is
// a no-op.
func (h *Hub) Disconnect(connID string) (room string, existed bool) {
	h.mu.Lock()
	c, ok := h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return "", false
	}
	room = c.room
	var notify []notice
	if c.room != "" {
		notify = h.leaveLocked(c)
	}
	delete(h.conns, connID)
	h.mu.Unlock()

	h.deliver(notify)
	return room, true
}

// SweepIdle evicts every connection whose last activity is older than
// threshold, with full disconnect side effects. It is invoked by an
// external scheduler; the hub never self-schedules.
func (h *Hub) SweepIdle(threshold time.Duration) []Eviction {
	cutoff := time.Now().Add(-threshold)

	h.mu.Lock()
	var evicted []Eviction
	var notify []notice
	for id, c := range h.conns {
		if c.lastActive.After(cutoff) {
			continue
		}
		ev := Eviction{ConnID: id, Room: c.room}
		if c.room != "" {
			notify = append(notify, h.leaveLocked(c)...)
		}
		delete(h.conns, id)
		evicted = append(evicted, ev)
	}
	h.mu.Unlock()

	h.deliver(notify)
	return evicted
}

// RoomSize reports the current member count of a room (0 if absent).
func (h *Hub) RoomSize(documentID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[documentID])
}

// notice is one pending outbound send, collected under the lock and
// delivered after it is released.
type notice struct {
	connID  string
	event   string
	payload any
}

func (h *Hub) deliver(ns []notice) {
	for _, n := range ns {
		_ = h.sender.Send(n.connID, n.event, n.payload)
	}
}

// leaveLocked detaches c from its room, drops the room entry when it
// empties, and returns the member.left notifications for the remaining
// members. Caller holds h.mu.
func (h *Hub) leaveLocked(c *conn) []notice {
	members, ok := h.rooms[c.room]
	if !ok {
		c.room = ""
		return nil
	}
	delete(members, c.id)
	if len(members) == 0 {
		delete(h.rooms, c.room)
	}

	payload := map[string]any{"userId": c.userID, "displayName": c.displayName}
	notify := make([]notice, 0, len(members))
	for id := range members {
		notify = append(notify, notice{connID: id, event: EvtMemberLeft, payload: payload})
	}
	c.room = ""
	return notify
}
