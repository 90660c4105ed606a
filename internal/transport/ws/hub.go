package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Viewer message types
const (
	MsgDashboardUpdate MessageType = "dashboard_update"
	MsgAnalysisUpdate  MessageType = "analysis_update"
	MsgError           MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans dashboard updates out to every viewer of a campaign
type Hub struct {
	// campaignID -> connID -> conn
	conns map[string]map[string]*Connection

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	disconnect chan string
	done       chan struct{}
	stopOnce   sync.Once

	logger *zap.Logger
}

// Connection represents a WebSocket connection
type Connection struct {
	ID         string
	CampaignID string
	HostID     string
	Send       chan []byte
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	CampaignID string
	Message    *Message
}

// NewHub creates a new WebSocket hub and starts its loop
func NewHub(logger *zap.Logger) *Hub {
	h := &Hub{
		conns:      make(map[string]map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		disconnect: make(chan string),
		done:       make(chan struct{}),
		logger:     logger,
	}
	go h.run()
	return h
}

// Close stops the hub loop and closes every connection
func (h *Hub) Close() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for campaignID := range h.conns {
				h.dropCampaign(campaignID)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			if h.conns[conn.CampaignID] == nil {
				h.conns[conn.CampaignID] = make(map[string]*Connection)
			}
			h.conns[conn.CampaignID][conn.ID] = conn
			h.mu.Unlock()
			h.logger.Info("viewer connected",
				zap.String("campaignId", conn.CampaignID),
				zap.String("hostId", conn.HostID),
				zap.String("conn", conn.ID))

		case conn := <-h.unregister:
			h.mu.Lock()
			if viewers, ok := h.conns[conn.CampaignID]; ok {
				if existing, ok := viewers[conn.ID]; ok && existing == conn {
					delete(viewers, conn.ID)
					close(conn.Send)
					if len(viewers) == 0 {
						delete(h.conns, conn.CampaignID)
					}
					h.logger.Info("viewer disconnected",
						zap.String("campaignId", conn.CampaignID),
						zap.String("conn", conn.ID))
				}
			}
			h.mu.Unlock()

		case campaignID := <-h.disconnect:
			h.mu.Lock()
			h.dropCampaign(campaignID)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Message)
			if err != nil {
				h.logger.Error("failed to encode message", zap.Error(err))
				continue
			}
			h.mu.RLock()
			for _, conn := range h.conns[msg.CampaignID] {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()
		}
	}
}

// dropCampaign must be called with mu held
func (h *Hub) dropCampaign(campaignID string) {
	for _, conn := range h.conns[campaignID] {
		close(conn.Send)
	}
	delete(h.conns, campaignID)
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Viewers returns the number of connections watching a campaign
func (h *Hub) Viewers(campaignID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[campaignID])
}

// BroadcastToCampaign sends a message to every viewer of a campaign
// (implements service.Broadcaster)
func (h *Hub) BroadcastToCampaign(campaignID string, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode payload", zap.String("type", msgType), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- &BroadcastMessage{
		CampaignID: campaignID,
		Message:    &Message{Type: MessageType(msgType), Payload: data},
	}:
	case <-h.done:
	}
}

// DisconnectCampaign closes every viewer of a campaign (implements service.Broadcaster)
func (h *Hub) DisconnectCampaign(campaignID string) {
	select {
	case h.disconnect <- campaignID:
	case <-h.done:
	}
}

// Encode wraps a payload in the message envelope
func Encode(msgType MessageType, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Message{Type: msgType, Payload: data})
}
