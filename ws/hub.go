// ws/hub.go
package ws

import (
	"context"

	"github.com/rs/zerolog"
)

const (
	NoteCreated = "note_created"
	NoteUpdated = "note_updated"
	NoteDeleted = "note_deleted"
)

type Event struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

// Conn is the subset of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// ReadConn is a Conn the hub can also drain.
type ReadConn interface {
	Conn
	ReadMessage() (messageType int, p []byte, err error)
}

type Hub struct {
	clients    map[Conn]bool
	broadcast  chan Event
	register   chan Conn
	unregister chan Conn
	done       chan struct{}
	log        zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[Conn]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan Conn),
		unregister: make(chan Conn),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "hub").Logger(),
	}
}

// Run owns the client set. It returns when ctx is cancelled, closing every
// remaining connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			return

		case conn := <-h.register:
			h.clients[conn] = true

		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}

		case msg := <-h.broadcast:
			for conn := range h.clients {
				if err := conn.WriteJSON(msg); err != nil {
					h.log.Debug().Err(err).Msg("websocket write failed, dropping client")
					delete(h.clients, conn)
					conn.Close()
				}
			}
		}
	}
}

// Publish queues an event for every subscriber. It never blocks a request:
// when the queue is full the event is dropped.
func (h *Hub) Publish(eventType string, id int64) {
	select {
	case h.broadcast <- Event{Type: eventType, ID: id}:
	default:
		h.log.Warn().Str("type", eventType).Int64("id", id).Msg("event queue full, dropping event")
	}
}

func (h *Hub) Register(conn Conn) {
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
	}
}

func (h *Hub) Unregister(conn Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// HandleConnection subscribes conn and blocks until the client goes away.
// Incoming messages are ignored.
func (h *Hub) HandleConnection(conn ReadConn) {
	h.Register(conn)
	defer h.Unregister(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
