package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"

	"github.com/fablecraft/appcore/internal/model"
)

// Channel connection state. Exposed for diagnostics only; correctness of
// job tracking does not depend on observing it.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// EventHandler receives every decoded event from the stream, unfiltered.
type EventHandler func(model.ProgressEvent)

// Channel owns the one long-lived push connection of a signed-in session.
// It outlives any individual screen: screens subscribe job ids through the
// Tracker and never open or close the connection themselves.
type Channel struct {
	url          string
	backoff      time.Duration
	pingInterval time.Duration

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	done    chan struct{}
	gen     int
	subs    map[string]bool
	handler EventHandler
	stateFn func(State)

	writeMu sync.Mutex
}

// NewChannel creates a disconnected channel for the given stream URL.
func NewChannel(url string, backoff, pingInterval time.Duration) *Channel {
	return &Channel{
		url:          url,
		backoff:      backoff,
		pingInterval: pingInterval,
		state:        StateDisconnected,
		subs:         make(map[string]bool),
	}
}

// SetEventHandler sets the sink for decoded events. Must be called before
// Connect.
func (c *Channel) SetEventHandler(fn EventHandler) {
	c.mu.Lock()
	c.handler = fn
	c.mu.Unlock()
}

// OnStateChange registers a connection-state observer for diagnostics/UI.
func (c *Channel) OnStateChange(fn func(State)) {
	c.mu.Lock()
	c.stateFn = fn
	c.mu.Unlock()
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens the push stream with the given bearer credential. It is
// idempotent: a connected or connecting channel is left alone. A failed
// dial is retried once after the configured back-off; after that the
// channel stays disconnected until Connect is called again. There is no
// background reconnect loop.
func (c *Channel) Connect(ctx context.Context, credential string) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	notify := c.stateFn
	c.mu.Unlock()
	if notify != nil {
		notify(StateConnecting)
	}

	header := http.Header{}
	if credential != "" {
		header.Set("Authorization", "Bearer "+credential)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		log.Printf("Push stream dial failed, retrying in %s: %v", c.backoff, err)
		select {
		case <-ctx.Done():
			c.setDisconnected()
			return ctx.Err()
		case <-time.After(c.backoff):
		}
		conn, _, err = websocket.DefaultDialer.DialContext(ctx, c.url, header)
		if err != nil {
			c.setDisconnected()
			return fmt.Errorf("failed to open push stream: %w", err)
		}
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.gen++
	gen := c.gen
	c.done = make(chan struct{})
	done := c.done
	resub := make([]string, 0, len(c.subs))
	for id := range c.subs {
		resub = append(resub, id)
	}
	notify = c.stateFn
	c.mu.Unlock()
	if notify != nil {
		notify(StateConnected)
	}

	// Re-announce interest held across a reconnect. Missed events are gone;
	// tracking resumes from the next event the server emits.
	for _, id := range resub {
		c.writeSubscribe(conn, model.WSMessageTypeSubscribe, id)
	}

	go c.readLoop(conn, gen)
	go c.pingLoop(conn, done)

	return nil
}

// Disconnect tears down the stream and clears all subscription state.
// Called exactly once, by the session owner, on sign-out.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.gen++
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	changed := c.state != StateDisconnected
	c.state = StateDisconnected
	c.subs = make(map[string]bool)
	notify := c.stateFn
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if changed && notify != nil {
		notify(StateDisconnected)
	}
}

// Subscribe registers interest in a job id. If the stream is up, the server
// is told immediately; otherwise the id is announced on the next Connect.
func (c *Channel) Subscribe(jobID string) {
	c.mu.Lock()
	c.subs[jobID] = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.writeSubscribe(conn, model.WSMessageTypeSubscribe, jobID)
	}
}

// Unsubscribe removes interest in a job id.
func (c *Channel) Unsubscribe(jobID string) {
	c.mu.Lock()
	delete(c.subs, jobID)
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.writeSubscribe(conn, model.WSMessageTypeUnsubscribe, jobID)
	}
}

// Subscribed returns the currently announced job ids.
func (c *Channel) Subscribed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	return ids
}

func (c *Channel) writeSubscribe(conn *websocket.Conn, msgType, jobID string) {
	msg := model.WSSubscribeMessage{Type: msgType, JobID: jobID}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("Failed to send %s for job %s: %v", msgType, jobID, err)
	}
}

// readLoop drains the stream until it breaks, then marks the channel
// disconnected. gen guards against tearing down a newer connection.
func (c *Channel) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Push stream read error: %v", err)
			}
			c.dropConnection(gen)
			return
		}
		c.dispatch(data)
	}
}

// pingLoop keeps the connection alive until it is torn down.
func (c *Channel) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// dispatch decodes one wire message and hands the event to the handler.
// Unknown message types are ignored.
func (c *Channel) dispatch(data []byte) {
	var env model.WSMessage
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("Dropping malformed push message: %v", err)
		return
	}

	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	if handler == nil {
		return
	}

	switch env.Type {
	case model.WSMessageTypeProgress:
		var msg model.WSProgressMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		status := msg.Status
		if status == "" {
			status = model.JobStatusRunning
		}
		handler(model.ProgressEvent{
			JobID:      msg.JobID,
			Percent:    msg.Progress,
			Status:     status,
			Step:       msg.CurrentStep,
			PreviewURL: msg.PreviewURL,
		})

	case model.WSMessageTypeComplete:
		var msg model.WSCompleteMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		handler(model.ProgressEvent{
			JobID:   msg.JobID,
			Percent: 100,
			Status:  model.JobStatusSucceeded,
			Result:  msg.Result,
		})

	case model.WSMessageTypeError:
		var msg model.WSErrorMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		handler(model.ProgressEvent{
			JobID:  msg.JobID,
			Status: model.JobStatusFailed,
			Error:  msg.Error.Message,
		})
	}
}

// setDisconnected marks a failed connect attempt. There is no conn to close
// and no goroutines were started.
func (c *Channel) setDisconnected() {
	c.mu.Lock()
	c.state = StateDisconnected
	notify := c.stateFn
	c.mu.Unlock()

	if notify != nil {
		notify(StateDisconnected)
	}
}

// dropConnection transitions to disconnected after a broken read, unless a
// newer connection has already replaced this one.
func (c *Channel) dropConnection(gen int) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	c.conn = nil
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	c.state = StateDisconnected
	notify := c.stateFn
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if notify != nil {
		notify(StateDisconnected)
	}
}
