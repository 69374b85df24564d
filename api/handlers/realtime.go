package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/linesmerrill/grievance-api/api"
	"github.com/linesmerrill/grievance-api/broadcaster"
	"github.com/linesmerrill/grievance-api/config"
	"github.com/linesmerrill/grievance-api/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Sessions opens and closes realtime sessions. broadcaster.Broadcaster implements it.
type Sessions interface {
	Subscribe(identity string, role models.Role) *broadcaster.Subscription
	Unsubscribe(id string)
}

// Realtime handles the websocket feed of report events
type Realtime struct {
	Hub     Sessions
	Tickets *api.TicketIssuer
	Roles   RoleSource
}

// TicketHandler issues a short lived ticket the caller presents when opening
// the websocket. Browsers cannot set headers on a websocket handshake.
func (rt Realtime) TicketHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	scope, err := scopeOf(ctx, rt.Roles)
	if err != nil {
		engineError("failed to issue ticket", w, err)
		return
	}
	ticket, err := rt.Tickets.Issue(scope.Identity, scope.Role)
	if err != nil {
		config.ErrorStatus("failed to issue ticket", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ticket": ticket})
}

// WebSocketHandler upgrades the connection and streams envelopes until the
// client goes away or the session is evicted
func (rt Realtime) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	identity, role, err := rt.Tickets.Verify(r.URL.Query().Get("ticket"))
	if err != nil {
		config.ErrorStatus("invalid realtime ticket", http.StatusUnauthorized, w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade failed", "identity", identity, "error", err)
		return
	}

	sub := rt.Hub.Subscribe(identity, role)
	go writePump(conn, sub)
	go readPump(conn, func() { rt.Hub.Unsubscribe(sub.ID) })
}

// readPump discards client messages and keeps the read deadline moving on
// pongs. done runs once the connection is gone.
func readPump(conn *websocket.Conn, done func()) {
	defer func() {
		done()
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only writer on conn. It exits when the subscription
// channel is closed, which happens on unsubscribe and on eviction.
func writePump(conn *websocket.Conn, sub *broadcaster.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case env, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			if err := conn.WriteJSON(env); err != nil {
				zap.S().Debugw("websocket write failed", "session", sub.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
