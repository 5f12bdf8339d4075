package services

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"vesting-backend/internal/dto"
	"vesting-backend/internal/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Subscription selects which events a connection receives. Empty fields
// match every event.
type Subscription struct {
	Token   string `json:"token,omitempty"`
	Account string `json:"account,omitempty"`
}

func (s Subscription) matches(msg *dto.EventMessage) bool {
	if s.Token != "" && !strings.EqualFold(s.Token, msg.Token) {
		return false
	}
	if s.Account != "" && !strings.EqualFold(s.Account, msg.Account) {
		return false
	}
	return true
}

// Connection information
type Connection struct {
	ID           string          `json:"id"`
	Subscription Subscription    `json:"subscription"`
	Conn         *websocket.Conn `json:"-"`
	Send         chan []byte     `json:"-"`
	LastPing     time.Time       `json:"last_ping"`
}

// PushMessage base structure
type PushMessage struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	MessageID string      `json:"message_id"`
	Data      interface{} `json:"data"`
}

// WebSocketPushService streams committed vesting events to websocket clients
type WebSocketPushService struct {
	connections map[string]*Connection
	hub         chan *dto.EventMessage
	register    chan *Connection
	unregister  chan *Connection
	done        chan struct{}
	closeOnce   sync.Once
	mutex       sync.RWMutex
	upgrader    websocket.Upgrader
}

func NewWebSocketPushService() *WebSocketPushService {
	service := &WebSocketPushService{
		connections: make(map[string]*Connection),
		hub:         make(chan *dto.EventMessage, 256),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		done:        make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	go service.run()
	return service
}

func (s *WebSocketPushService) run() {
	for {
		select {
		case conn := <-s.register:
			s.handleRegister(conn)
		case conn := <-s.unregister:
			s.handleUnregister(conn)
		case message := <-s.hub:
			s.handleBroadcast(message)
		case <-s.done:
			s.mutex.Lock()
			for id, conn := range s.connections {
				close(conn.Send)
				delete(s.connections, id)
			}
			s.mutex.Unlock()
			metrics.WebSocketConnections.Set(0)
			return
		}
	}
}

// Close stops the hub and closes every connection
func (s *WebSocketPushService) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *WebSocketPushService) Name() string { return "websocket" }

// HandleEventMessage queues msg for broadcast. It never blocks the caller.
func (s *WebSocketPushService) HandleEventMessage(_ context.Context, msg *dto.EventMessage) error {
	select {
	case s.hub <- msg:
	default:
		log.Printf("⚠️ [WebSocketPush] hub full, dropping event %s", msg.EventID)
	}
	return nil
}

func (s *WebSocketPushService) handleRegister(conn *Connection) {
	s.mutex.Lock()
	s.connections[conn.ID] = conn
	count := len(s.connections)
	s.mutex.Unlock()
	metrics.WebSocketConnections.Set(float64(count))

	log.Printf("📱 WebSocket connection registered: connID=%s, token=%s, account=%s",
		conn.ID, conn.Subscription.Token, conn.Subscription.Account)

	s.sendToConnection(conn, PushMessage{
		Type:      "connection_established",
		Timestamp: time.Now().Format(time.RFC3339),
		MessageID: uuid.NewString(),
		Data: map[string]interface{}{
			"connection_id": conn.ID,
			"subscription":  conn.Subscription,
		},
	})
}

func (s *WebSocketPushService) handleUnregister(conn *Connection) {
	s.mutex.Lock()
	if _, ok := s.connections[conn.ID]; ok {
		delete(s.connections, conn.ID)
		close(conn.Send)
	}
	count := len(s.connections)
	s.mutex.Unlock()
	metrics.WebSocketConnections.Set(float64(count))

	log.Printf("📱 WebSocket connection unregistered: connID=%s", conn.ID)
}

func (s *WebSocketPushService) handleBroadcast(event *dto.EventMessage) {
	data, err := json.Marshal(PushMessage{
		Type:      "vesting_event",
		Timestamp: time.Now().Format(time.RFC3339),
		MessageID: event.EventID,
		Data:      event,
	})
	if err != nil {
		log.Printf("❌ Failed to marshal message: %v", err)
		return
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	sent, dropped := 0, 0
	for _, conn := range s.connections {
		if !conn.Subscription.matches(event) {
			continue
		}
		select {
		case conn.Send <- data:
			sent++
		default:
			dropped++
			log.Printf("⚠️ [WebSocketPush] Failed to send to connection: %s (channel full)", conn.ID)
		}
	}
	if sent+dropped > 0 {
		log.Printf("📤 [WebSocketPush] %s delivered: sent=%d, dropped=%d", event.Name, sent, dropped)
	}
}

func (s *WebSocketPushService) sendToConnection(conn *Connection, message PushMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Failed to marshal message: %v", err)
		return
	}

	select {
	case conn.Send <- data:
	default:
		log.Printf("⚠️ Failed to send to connection: %s", conn.ID)
	}
}

// HandleWebSocket upgrades the request and streams events matching sub
func (s *WebSocketPushService) HandleWebSocket(w http.ResponseWriter, r *http.Request, sub Subscription) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade failed: %v", err)
		return
	}

	connection := &Connection{
		ID:           uuid.NewString(),
		Subscription: sub,
		Conn:         conn,
		Send:         make(chan []byte, 256),
		LastPing:     time.Now(),
	}

	select {
	case s.register <- connection:
	case <-s.done:
		conn.Close()
		return
	}

	go s.handleConnectionWrite(connection)
	go s.handleConnectionRead(connection)
}

func (s *WebSocketPushService) handleConnectionWrite(conn *Connection) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("❌ Write message failed: %v", err)
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *WebSocketPushService) handleConnectionRead(conn *Connection) {
	defer func() {
		select {
		case s.unregister <- conn:
		case <-s.done:
		}
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(512)
	conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ WebSocket read error: %v", err)
			}
			return
		}
	}
}

// GetActiveConnections returns the number of open connections
func (s *WebSocketPushService) GetActiveConnections() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.connections)
}
