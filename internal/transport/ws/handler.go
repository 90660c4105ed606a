package ws

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"campaignlens/internal/logging"
	"campaignlens/internal/projection"
	"campaignlens/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// SnapshotSource provides the dashboard a new viewer starts from
type SnapshotSource interface {
	Snapshot(campaignID string, method projection.Method) *service.DashboardView
}

// Handler handles WebSocket connections
type Handler struct {
	hub       *Hub
	authSvc   *service.AuthService
	snapshots SnapshotSource
	logger    *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, authSvc *service.AuthService, snapshots SnapshotSource, logger *zap.Logger) *Handler {
	return &Handler{
		hub:       hub,
		authSvc:   authSvc,
		snapshots: snapshots,
		logger:    logging.OrNop(logger),
	}
}

// DashboardWS handles GET /v1/ws/campaigns/{campaignId}/dashboard
func (h *Handler) DashboardWS(w http.ResponseWriter, r *http.Request) {
	campaignID := mux.Vars(r)["campaignId"]
	token := r.URL.Query().Get("token")

	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authSvc.ValidateHostToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if !claims.CanView(campaignID) {
		http.Error(w, "token not valid for this campaign", http.StatusForbidden)
		return
	}

	method := projection.PCA
	if m := r.URL.Query().Get("method"); m != "" {
		if method, err = projection.ParseMethod(m); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := &Connection{
		ID:         uuid.NewString(),
		CampaignID: campaignID,
		HostID:     claims.HostID,
		Send:       make(chan []byte, 256),
	}

	if h.snapshots != nil {
		initial, err := Encode(MsgDashboardUpdate, h.snapshots.Snapshot(campaignID, method))
		if err != nil {
			h.logger.Error("failed to encode initial snapshot", zap.String("campaignId", campaignID), zap.Error(err))
			initial, _ = Encode(MsgError, map[string]string{"error": "dashboard unavailable"})
		}
		conn.Send <- initial
	}

	h.hub.Register(conn)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", zap.String("conn", conn.ID), zap.Error(err))
			}
			break
		}
		// Viewers are read-only; mutations go through the REST API
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
