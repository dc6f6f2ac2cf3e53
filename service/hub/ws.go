package hub

import (
	"context"
	"net"
	"net/http"
	"time"

	"AgoraNotify/logger"
	"AgoraNotify/middleware/security"
	"AgoraNotify/service/notify"
	"AgoraNotify/tools/ids"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request and runs the per-connection read loop. The
// user identity comes from a bearer token when present, else from the ?user
// query parameter (the contract the original web client uses).
func (h *Hub) HandleWS(c *gin.Context) {
	user := h.wsUser(c)
	if user == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user identity"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("[ws] upgrade err=%v", err)
		return
	}

	cl := &wsClient{user: user, connID: ids.GenerateString(), conn: ws}
	ctx := c.Request.Context()
	h.register(ctx, cl)
	logger.Infof("[ws] connected user=%s conn=%s", cl.user, cl.connID)

	// Unread entries go out immediately so a reconnecting client reconciles
	// before any new push arrives.
	h.sendUnread(ctx, cl)

	h.readLoop(cl, ws)

	// teardown runs on a fresh context, the request one is already done
	tctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	h.unregister(tctx, cl)
	_ = ws.Close()
	logger.Infof("[ws] closed user=%s conn=%s", cl.user, cl.connID)
}

func (h *Hub) wsUser(c *gin.Context) string {
	if token := security.BearerToken(c.Request); token != "" {
		if user, err := security.ParseToken(token); err == nil {
			return user
		}
	}
	return c.Query("user")
}

func (h *Hub) readLoop(cl *wsClient, ws *websocket.Conn) {
	for {
		mt, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed user=%s err=%v", cl.user, err)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Warnf("[ws] read timeout user=%s err=%v", cl.user, err)
			} else {
				logger.Warnf("[ws] read err user=%s err=%v", cl.user, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		f, perr := notify.ParseFrame(raw)
		if perr != nil {
			logger.Debugf("[ws] ignoring malformed frame user=%s err=%v", cl.user, perr)
			continue
		}
		h.handleInbound(cl, f)
	}
}

func (h *Hub) handleInbound(cl *wsClient, f *notify.Frame) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch f.Type {
	case notify.FramePing:
		if h.presence != nil {
			_ = h.presence.Touch(ctx, cl.user)
		}
		if err := cl.send(wsFrame{Type: notify.FramePong}); err != nil {
			logger.Warnf("[ws] pong user=%s err=%v", cl.user, err)
		}
	case notify.FrameMarkRead:
		if f.NotificationID == "" {
			return
		}
		if _, err := h.store.MarkRead(ctx, cl.user, f.NotificationID, time.Now().UTC()); err != nil {
			logger.Warnf("[ws] mark read user=%s id=%s err=%v", cl.user, f.NotificationID, err)
		}
	default:
		logger.Debugf("[ws] unhandled inbound type=%s user=%s", f.Type, cl.user)
	}
}
