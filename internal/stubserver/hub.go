package stubserver

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/fablecraft/appcore/internal/model"
)

// Client represents one session's WebSocket connection.
type Client struct {
	Conn *websocket.Conn
	Send chan []byte
	subs map[string]bool
}

// Hub maintains the active session connections and routes job events to
// the connections that announced interest in the job id.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	interest   chan *interestChange

	mu sync.RWMutex
}

// BroadcastMessage represents a message to route by job id.
type BroadcastMessage struct {
	JobID   string
	Message []byte
}

type interestChange struct {
	client *Client
	jobID  string
	add    bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		interest:   make(chan *interestChange, 64),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("Session stream connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			log.Printf("Session stream disconnected")

		case ch := <-h.interest:
			h.mu.Lock()
			if _, ok := h.clients[ch.client]; ok {
				if ch.add {
					ch.client.subs[ch.jobID] = true
				} else {
					delete(ch.client.subs, ch.jobID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				if !client.subs[msg.JobID] {
					continue
				}
				select {
				case client.Send <- msg.Message:
				default:
					// Slow consumer: drop rather than block the hub.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastProgress sends a progress update to subscribed sessions.
func (h *Hub) BroadcastProgress(jobID string, progress int, status model.JobStatus, step string) {
	h.send(jobID, model.WSProgressMessage{
		Type:        model.WSMessageTypeProgress,
		JobID:       jobID,
		Progress:    progress,
		Status:      status,
		CurrentStep: step,
	})
}

// BroadcastComplete sends a completion message to subscribed sessions.
func (h *Hub) BroadcastComplete(jobID string, result *model.GenerationResult) {
	h.send(jobID, model.WSCompleteMessage{
		Type:   model.WSMessageTypeComplete,
		JobID:  jobID,
		Result: result,
	})
}

// BroadcastError sends a failure message to subscribed sessions.
func (h *Hub) BroadcastError(jobID string, code, message string) {
	h.send(jobID, model.WSErrorMessage{
		Type:  model.WSMessageTypeError,
		JobID: jobID,
		Error: model.WSError{Code: code, Message: message},
	})
}

func (h *Hub) send(jobID string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal push message: %v", err)
		return
	}
	h.broadcast <- &BroadcastMessage{JobID: jobID, Message: data}
}

// HandleConnection serves one session's WebSocket connection until it
// closes. Subscribe/unsubscribe frames adjust the connection's interest
// set; there is no event history, a late subscriber starts from the next
// event.
func (h *Hub) HandleConnection(c *websocket.Conn) {
	client := &Client{
		Conn: c,
		Send: make(chan []byte, 256),
		subs: make(map[string]bool),
	}

	h.register <- client
	defer func() { h.unregister <- client }()

	// Writer goroutine
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case model.WSMessageTypeSubscribe:
			h.interest <- &interestChange{client: client, jobID: msg.JobID, add: true}
		case model.WSMessageTypeUnsubscribe:
			h.interest <- &interestChange{client: client, jobID: msg.JobID, add: false}
		case model.WSMessageTypePing:
			pong, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
			client.Send <- pong
		}
	}
}
