package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"paycontrol/utils"
)

// SSE event names pushed to the browser.
const (
	EventView           = "view"
	EventWidgetCreate   = "widget-create"
	EventWidgetRequest  = "widget-request"
	EventWidgetTeardown = "widget-teardown"
	EventOutputs        = "outputs"
)

// clientBuffer is how many events may queue for a slow browser before new
// events to it are dropped.
const clientBuffer = 32

// SSEMessage is one server-sent event.
type SSEMessage struct {
	Event string
	Data  []byte
}

// SSEConnection is one browser subscribed to control events.
type SSEConnection struct {
	ID       string
	messages chan SSEMessage
	done     chan struct{}
	// seq numbers written events; only Stream touches it.
	seq uint64
}

// Done is closed when the connection is removed.
func (c *SSEConnection) Done() <-chan struct{} { return c.done }

// Send queues an event for this connection only.
func (c *SSEConnection) Send(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	c.enqueue(SSEMessage{Event: event, Data: data})
	return nil
}

func (c *SSEConnection) enqueue(msg SSEMessage) {
	select {
	case <-c.done:
	case c.messages <- msg:
	default:
		utils.Warn("sse", "Dropping event for slow connection", "connection", c.ID, "event", msg.Event)
	}
}

// SSEBroadcaster fans events out to every connected browser.
type SSEBroadcaster struct {
	connections map[string]*SSEConnection
	mutex       sync.RWMutex
}

// NewSSEBroadcaster returns an empty broadcaster.
func NewSSEBroadcaster() *SSEBroadcaster {
	return &SSEBroadcaster{connections: make(map[string]*SSEConnection)}
}

// AddConnection registers a new connection.
func (b *SSEBroadcaster) AddConnection() *SSEConnection {
	conn := &SSEConnection{
		ID:       uuid.NewString(),
		messages: make(chan SSEMessage, clientBuffer),
		done:     make(chan struct{}),
	}

	b.mutex.Lock()
	b.connections[conn.ID] = conn
	count := len(b.connections)
	b.mutex.Unlock()

	utils.Info("sse", "New connection", "connection", conn.ID, "connections", count)
	return conn
}

// RemoveConnection unregisters a connection. Removing twice is harmless.
func (b *SSEBroadcaster) RemoveConnection(id string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if conn, exists := b.connections[id]; exists {
		close(conn.done)
		delete(b.connections, id)
		utils.Info("sse", "Removed connection", "connection", id, "connections", len(b.connections))
	}
}

// Count returns the number of connected browsers.
func (b *SSEBroadcaster) Count() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.connections)
}

// Broadcast sends v as JSON under event to every connection.
func (b *SSEBroadcaster) Broadcast(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	msg := SSEMessage{Event: event, Data: data}

	b.mutex.RLock()
	defer b.mutex.RUnlock()
	for _, conn := range b.connections {
		conn.enqueue(msg)
	}
	utils.Debug("sse", "Broadcast event", "event", event, "connections", len(b.connections))
	return nil
}

// Stream writes queued events for conn to w until the request ends or the
// connection is removed. Every event carries an id, so a browser that
// reconnects on its own sends Last-Event-ID.
func (b *SSEBroadcaster) Stream(w http.ResponseWriter, r *http.Request, conn *SSEConnection) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported by %T", w)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return nil
		case <-conn.done:
			return nil
		case msg := <-conn.messages:
			conn.seq++
			if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", conn.seq, msg.Event, msg.Data); err != nil {
				return fmt.Errorf("write %s event: %w", msg.Event, err)
			}
			flusher.Flush()
		}
	}
}
