package ws

import "sync"

// Registry maps connection ids to live websocket sessions and implements
// the hub's Sender capability. Sends are best-effort: an error for one
// recipient is returned to the hub, which ignores it.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*clientConn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*clientConn)}
}

// Send delivers one named event to one connection.
func (r *Registry) Send(connID, event string, payload any) error {
	r.mu.RLock()
	c, ok := r.conns[connID]
	r.mu.RUnlock()
	if !ok {
		return nil // recipient already gone; fan-out continues
	}
	return c.writeJSON(map[string]any{"event": event, "body": payload})
}

func (r *Registry) add(connID string, c *clientConn) {
	r.mu.Lock()
	r.conns[connID] = c
	r.mu.Unlock()
}

func (r *Registry) remove(connID string) {
	r.mu.Lock()
	delete(r.conns, connID)
	r.mu.Unlock()
}

// drop closes and forgets the session; used by the idle sweep, where the
// hub record is already gone but the socket may still be open.
func (r *Registry) drop(connID string) {
	r.mu.Lock()
	c, ok := r.conns[connID]
	delete(r.conns, connID)
	r.mu.Unlock()
	if ok {
		c.close()
	}
}
