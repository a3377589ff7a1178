// Package ws is the websocket transport adapter for a gateway
// instance: it authenticates the handshake, then translates the JSON
// envelope protocol into gateway operations.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/lingora/gateway/internal/auth"
	"github.com/lingora/gateway/internal/domain"
	"github.com/lingora/gateway/internal/gateway"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Controller struct {
	gw         *gateway.Gateway
	readLimit  int64
	pingPeriod time.Duration
}

func NewController(gw *gateway.Gateway, readLimit int64, pingPeriod time.Duration) *Controller {
	return &Controller{gw: gw, readLimit: readLimit, pingPeriod: pingPeriod}
}

// bearerToken pulls the token from the Authorization header, falling
// back to the access_token query param for browser websocket clients
// that cannot set headers.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

// Handle upgrades, authenticates before serving any envelope, then
// runs the read loop until the transport closes.
func (ctl *Controller) Handle(ctx context.Context, c *gin.Context) {
	token := bearerToken(c.Request)

	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("upgrade failed")
		return
	}
	wc := newWsConn(sock)

	connCtx, cancel := context.WithCancel(ctx)
	conn, err := ctl.gw.Connect(connCtx, token, wc, cancel)
	if err != nil {
		ctl.rejectHandshake(sock, err)
		cancel()
		wc.Close()
		return
	}

	go ctl.writePump(connCtx, wc)
	ctl.readPump(connCtx, conn, wc)

	ctl.gw.Disconnect(conn)
	wc.Close()
}

func (ctl *Controller) rejectHandshake(sock *websocket.Conn, err error) {
	code := "authentication_failed"
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		code = "invalid_token"
	case errors.Is(err, auth.ErrRevoked):
		code = "revoked"
	}
	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code)
	_ = sock.WriteControl(websocket.CloseMessage, msg, deadline)
	log.Info().Str("module", "adapters.ws").Str("code", code).Msg("handshake rejected")
}

func (ctl *Controller) readPump(ctx context.Context, conn *gateway.Conn, wc *wsConn) {
	defer wc.Close()

	wc.conn.SetReadLimit(ctl.readLimit)
	_ = wc.conn.SetReadDeadline(time.Now().Add(2 * ctl.pingPeriod))
	wc.conn.SetPongHandler(func(string) error {
		return wc.conn.SetReadDeadline(time.Now().Add(2 * ctl.pingPeriod))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := wc.conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("module", "adapters.ws").Str("conn", string(conn.ID)).Msg("read loop ended")
			return
		}
		ctl.dispatch(ctx, conn, wc, data)
	}
}

func (ctl *Controller) writePump(ctx context.Context, wc *wsConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = wc.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case data, ok := <-wc.send:
			if !ok {
				return
			}
			if err := wc.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := wc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

func (ctl *Controller) dispatch(ctx context.Context, conn *gateway.Conn, wc *wsConn, data []byte) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		ctl.sendJSON(wc, errorEnvelope{Type: "error", Code: "bad_payload", Message: "malformed envelope"})
		return
	}

	switch in.Type {
	case TypeJoin:
		ctl.handleJoin(ctx, conn, wc, domain.RoomID(in.Room))
	case TypeLeave:
		ctl.gw.Leave(conn, domain.RoomID(in.Room))
		ctl.sendJSON(wc, ackEnvelope{Type: "left", Room: in.Room})
	case TypeSignal:
		ctl.gw.Signal(conn, domain.ConnID(in.Target), in.Event, in.Payload)
	case TypeBroadcast:
		ctl.gw.Broadcast(conn, domain.RoomID(in.Room), in.Event, in.Payload)
	case TypePing:
		ctl.sendJSON(wc, ackEnvelope{Type: "pong"})
	default:
		log.Warn().Str("module", "adapters.ws").Str("type", in.Type).Msg("unknown envelope")
	}
}

func (ctl *Controller) handleJoin(ctx context.Context, conn *gateway.Conn, wc *wsConn, roomID domain.RoomID) {
	if roomID == "" {
		ctl.sendJSON(wc, errorEnvelope{Type: "error", Code: "bad_payload", Message: "missing room"})
		return
	}
	snap, denial, err := ctl.gw.Join(ctx, conn, roomID)
	if err != nil {
		// Connection went away mid-join; nothing left to answer.
		return
	}
	if denial != nil {
		ctl.sendJSON(wc, errorEnvelope{Type: "error", Code: denial.Code, Message: denial.Message})
		return
	}
	ctl.sendJSON(wc, gateway.Outbound{
		Type:     gateway.EvtRoomJoined,
		Room:     snap.RoomID,
		Members:  snap.Members,
		Capacity: snap.Capacity,
	})
}

func (ctl *Controller) sendJSON(wc *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("sendJSON marshal")
		return
	}
	_ = wc.TrySend(b)
}
