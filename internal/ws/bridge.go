package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"notehubgo/internal/hub"
)

// bridge fans relay events out across instances. It keeps **exactly one**
// Redis subscription per "doc:<id>:events" channel no matter how many local
// connections sit in the same document room, and stamps every published
// frame with this instance's origin id so the publisher skips its own
// messages when they come back around.
//
// Only relay-kind events cross the bridge. Presence rosters and
// member.joined/left stay per-instance: membership is in-memory state.
type bridge struct {
	rdc    *redis.Client
	hub    *hub.Hub
	origin string

	mu   sync.Mutex
	subs map[string]*subEntry // documentID -> subscription data
}

type subEntry struct {
	refCnt int
	cancel context.CancelFunc
}

// relayFrame is the wire shape published on the document channel.
type relayFrame struct {
	Origin string         `json:"origin"`
	Event  string         `json:"event"`
	Body   map[string]any `json:"body"`
}

func newBridge(rdc *redis.Client, h *hub.Hub) *bridge {
	return &bridge{
		rdc:    rdc,
		hub:    h,
		origin: uuid.NewString(),
		subs:   make(map[string]*subEntry),
	}
}

func docChannel(documentID string) string { return "doc:" + documentID + ":events" }

// publish forwards an already-stamped relay payload to sibling instances.
// Best effort: a publish failure costs remote listeners one event, nothing
// more.
func (b *bridge) publish(ctx context.Context, documentID, event string, body map[string]any) {
	data, err := json.Marshal(relayFrame{Origin: b.origin, Event: event, Body: body})
	if err != nil {
		zap.L().Warn("ws.bridge_marshal", zap.Error(err))
		return
	}
	if err := b.rdc.Publish(ctx, docChannel(documentID), data).Err(); err != nil {
		zap.L().Warn("ws.bridge_publish", zap.Error(err))
	}
}

// subscribe ensures the process listens on the document's channel;
// subsequent calls for the same document only bump the ref-counter.
func (b *bridge) subscribe(documentID string) {
	b.mu.Lock()
	if e, ok := b.subs[documentID]; ok {
		e.refCnt++
		b.mu.Unlock()
		return
	}

	// First local member -> create the Redis SUB and fan-out loop.
	ctx, cancel := context.WithCancel(context.Background())
	ps := b.rdc.Subscribe(ctx, docChannel(documentID))

	b.subs[documentID] = &subEntry{refCnt: 1, cancel: cancel}
	b.mu.Unlock()

	go func() {
		defer ps.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ps.Channel():
				if !ok { // Redis connection closed
					return
				}

				var frame relayFrame
				if err := json.Unmarshal([]byte(m.Payload), &frame); err != nil {
					zap.L().Warn("ws.bridge_decode", zap.Error(err))
					continue
				}
				if frame.Origin == b.origin {
					continue // our own publish; local members already got it
				}
				b.hub.BroadcastRoom(documentID, frame.Event, frame.Body)
			}
		}
	}()
}

// unsubscribe decrements the ref-counter and tears the Redis SUB down when
// the last local member leaves the document.
func (b *bridge) unsubscribe(documentID string) {
	b.mu.Lock()
	e, ok := b.subs[documentID]
	if !ok {
		b.mu.Unlock()
		return
	}
	e.refCnt--
	if e.refCnt > 0 {
		b.mu.Unlock()
		return
	}
	delete(b.subs, documentID)
	b.mu.Unlock()

	// Outside the lock -> stop the fan-out goroutine.
	e.cancel()
}
