package push

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"upbit-backtester/internal/infrastructure"
	"upbit-backtester/internal/progress"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// PushGateway fans backtest progress events out to websocket clients.
// Clients subscribe to topics ("progress", "report") and receive every
// event published on them while connected.
type PushGateway struct {
	logger        *zap.Logger
	clients       map[*Client]bool
	subscriptions map[string]map[*Client]bool
	mu            sync.RWMutex
}

func NewPushGateway(logger *zap.Logger) *PushGateway {
	return &PushGateway{
		logger:        logger,
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

func (g *PushGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("failed to upgrade websocket", zap.Error(err))
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
	}

	g.mu.Lock()
	g.clients[client] = true
	g.mu.Unlock()
	infrastructure.WSConnections.Inc()

	go g.writePump(client)
	g.readPump(client)
}

func (g *PushGateway) readPump(c *Client) {
	defer func() {
		g.mu.Lock()
		delete(g.clients, c)
		for topic, clients := range g.subscriptions {
			delete(clients, c)
			if len(clients) == 0 {
				delete(g.subscriptions, topic)
			}
		}
		// Closing under the lock: Broadcast holds the read lock while
		// sending, so it can never hit the closed channel.
		close(c.send)
		g.mu.Unlock()
		infrastructure.WSConnections.Dec()
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var req struct {
			Action string `json:"action"` // "subscribe", "unsubscribe"
			Topic  string `json:"topic"`
		}
		if err := json.Unmarshal(message, &req); err != nil {
			continue
		}

		g.mu.Lock()
		switch req.Action {
		case "subscribe":
			if g.subscriptions[req.Topic] == nil {
				g.subscriptions[req.Topic] = make(map[*Client]bool)
			}
			g.subscriptions[req.Topic][c] = true
			g.logger.Info("client subscribed to topic", zap.String("topic", req.Topic))
		case "unsubscribe":
			if clients, ok := g.subscriptions[req.Topic]; ok {
				delete(clients, c)
				if len(clients) == 0 {
					delete(g.subscriptions, req.Topic)
				}
			}
		}
		g.mu.Unlock()
	}
}

func (g *PushGateway) writePump(c *Client) {
	defer c.conn.Close()
	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// Broadcast sends a payload to every client subscribed to topic. Slow
// clients are skipped rather than blocked on.
func (g *PushGateway) Broadcast(topic string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		g.logger.Error("failed to marshal broadcast payload", zap.Error(err))
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	for c := range g.subscriptions[topic] {
		select {
		case c.send <- data:
		default:
			// Do not block, just drop if channel is full
		}
	}
}

// Publish lets the gateway act as a progress observer: every pipeline
// event is broadcast on the "progress" topic.
func (g *PushGateway) Publish(e progress.Event) {
	g.Broadcast("progress", e)
}
