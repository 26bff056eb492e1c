package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"notehubgo/internal/editlog"
	"notehubgo/internal/hub"
	"notehubgo/internal/services/identity"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 20 * time.Second // must be < pongWait

	maxFrameBytes = 64 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true }, // dev-only
}

// ConnContext carries the per-connection state handlers need.
type ConnContext struct {
	ConnID string
	Server *WsServer
}

type WsServer struct {
	hub      *hub.Hub
	registry *Registry
	bridge   *bridge
	router   *Router
	identity identity.IIdentityService
	edits    *editlog.Recorder
}

func NewWsServer(h *hub.Hub, reg *Registry, rdc *redis.Client, idSvc identity.IIdentityService, edits *editlog.Recorder) *WsServer {
	srv := &WsServer{
		hub:      h,
		registry: reg,
		bridge:   newBridge(rdc, h),
		router:   NewRouter(),
		identity: idSvc,
		edits:    edits,
	}
	srv.registerHandlers() // ← all WS endpoints configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(maxFrameBytes)

	// The connection is presence-addressable only after the client sends
	// "authenticate"; until then the hub ignores it.
	connID := uuid.NewString()
	wsConn := &clientConn{rawConn: rawConn}
	s.registry.add(connID, wsConn)

	go s.reader(connID, wsConn)
	go s.pinger(wsConn)
}

// SweepIdle evicts hub connections inactive for longer than threshold and
// tears down their transport sessions. Invoked by the external sweeper;
// returns the eviction count.
func (s *WsServer) SweepIdle(threshold time.Duration) int {
	evicted := s.hub.SweepIdle(threshold)
	for _, ev := range evicted {
		if ev.Room != "" {
			s.bridge.unsubscribe(ev.Room)
		}
		s.registry.drop(ev.ConnID)
	}
	return len(evicted)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	// 🔹 authenticate ---------------------------------------------------------
	Register(s.router, "authenticate",
		func(ctx context.Context, cc *ConnContext, req AuthenticateBody) (*Reply, error) {
			ident, err := s.identity.Resolve(ctx, req.Token)
			if err != nil {
				return nil, err
			}
			color := s.hub.Authenticate(cc.ConnID, ident.UserID, ident.DisplayName)
			return &Reply{Event: hub.EvtAuthenticated, Body: map[string]any{"color": color}}, nil
		},
	)

	// 🔹 room.join / room.leave ----------------------------------------------
	Register(s.router, "room.join",
		func(ctx context.Context, cc *ConnContext, req RoomBody) (*Reply, error) {
			prev, ok := s.hub.Join(cc.ConnID, req.DocumentID)
			if ok && prev != req.DocumentID {
				if prev != "" {
					s.bridge.unsubscribe(prev)
				}
				s.bridge.subscribe(req.DocumentID)
			}
			return nil, nil
		},
	)
	Register(s.router, "room.leave",
		func(ctx context.Context, cc *ConnContext, req RoomBody) (*Reply, error) {
			if s.hub.Leave(cc.ConnID, req.DocumentID) {
				s.bridge.unsubscribe(req.DocumentID)
			}
			return nil, nil
		},
	)

	// 🔹 relays ---------------------------------------------------------------
	Register(s.router, hub.EvtContentDelta,
		func(ctx context.Context, cc *ConnContext, req ContentDeltaBody) (*Reply, error) {
			s.relay(ctx, cc, hub.EvtContentDelta, map[string]any{"payload": req.Payload})
			return nil, nil
		},
	)
	Register(s.router, hub.EvtCursorMove,
		func(ctx context.Context, cc *ConnContext, req CursorMoveBody) (*Reply, error) {
			s.relay(ctx, cc, hub.EvtCursorMove, map[string]any{"position": req.Position})
			return nil, nil
		},
	)
	Register(s.router, hub.EvtSelectionSet,
		func(ctx context.Context, cc *ConnContext, req SelectionSetBody) (*Reply, error) {
			s.relay(ctx, cc, hub.EvtSelectionSet, map[string]any{"start": req.Start, "end": req.End})
			return nil, nil
		},
	)
	Register(s.router, hub.EvtTyping,
		func(ctx context.Context, cc *ConnContext, req TypingBody) (*Reply, error) {
			s.relay(ctx, cc, hub.EvtTyping, map[string]any{"isTyping": req.IsTyping})
			return nil, nil
		},
	)

	// 🔹 activity.ping --------------------------------------------------------
	Register(s.router, "activity.ping",
		func(ctx context.Context, cc *ConnContext, req PingBody) (*Reply, error) {
			s.hub.TouchActivity(cc.ConnID)
			return nil, nil
		},
	)
}

// relay hands the event to the hub and, when it was delivered, republishes
// the stamped payload for sibling instances and feeds the edit audit trail.
func (s *WsServer) relay(ctx context.Context, cc *ConnContext, kind string, payload map[string]any) {
	room, stamped, ok := s.hub.Relay(cc.ConnID, kind, payload)
	if !ok {
		return // late event from a connection that already left
	}
	s.bridge.publish(ctx, room, kind, stamped)
	if kind == hub.EvtContentDelta {
		userID, _ := stamped["userId"].(string)
		s.edits.Record(ctx, room, userID, kind)
	}
}

func (s *WsServer) reader(connID string, conn *clientConn) {
	defer func() {
		if room, _ := s.hub.Disconnect(connID); room != "" {
			s.bridge.unsubscribe(room)
		}
		s.registry.remove(connID)
		conn.close()
	}()

	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		s.hub.TouchActivity(connID)
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	cc := &ConnContext{ConnID: connID, Server: s}

	for {
		var env Envelope
		if err := conn.rawConn.ReadJSON(&env); err != nil {
			return // client closed, errored or timed out
		}
		_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
		s.hub.TouchActivity(connID)

		ctx, cancel := context.WithTimeout(context.Background(), 1900*time.Millisecond)
		reply, err := s.router.dispatch(ctx, cc, env)
		cancel()

		// Malformed, unknown or out-of-order events are dropped without an
		// error frame; clients may race during reconnect and must not be
		// punished for it.
		if err != nil {
			zap.L().Debug("ws.dispatch_dropped",
				zap.String("event", env.Event), zap.Error(err))
			continue
		}
		if reply != nil {
			_ = s.registry.Send(connID, reply.Event, reply.Body)
		}
	}
}

func (s *WsServer) pinger(conn *clientConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.ping(); err != nil {
			conn.close() // reader loop exits on the broken socket
			return
		}
	}
}
