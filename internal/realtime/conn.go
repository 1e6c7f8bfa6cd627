package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Frame is the wire shape of every socket message, inbound and outbound.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Conn is one live socket connection. Inbound frames are dispatched to the
// handler registered for their event name, in arrival order, on a single
// goroutine; a handler panic is contained so the other event types keep
// flowing.
type Conn struct {
	ws   *websocket.Conn
	send chan Frame

	mu       sync.RWMutex
	handlers map[string]func(json.RawMessage)

	closeOnce sync.Once
	done      chan struct{}
}

// Dial opens a socket authenticated by the bearer token.
func Dial(ctx context.Context, wsURL, token string) (*Conn, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, err
	}

	c := &Conn{
		ws:       ws,
		send:     make(chan Frame, 32),
		handlers: make(map[string]func(json.RawMessage)),
		done:     make(chan struct{}),
	}
	go c.readPump()
	go c.writePump()
	return c, nil
}

// On registers the handler for an event name, replacing any previous one.
func (c *Conn) On(event string, fn func(json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = fn
}

// Off removes the handler for an event name.
func (c *Conn) Off(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, event)
}

// OffAll removes every handler. A torn-down connection must never deliver
// again: leaving handlers behind is how double delivery happens when a new
// connection is opened later.
func (c *Conn) OffAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = make(map[string]func(json.RawMessage))
}

// Emit queues an outbound frame. Returns false if the connection is closed
// or the write buffer is full.
func (c *Conn) Emit(event string, data interface{}) bool {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("emit %s: marshal: %v", event, err)
		return false
	}
	select {
	case <-c.done:
		return false
	case c.send <- Frame{Event: event, Data: raw}:
		return true
	default:
		log.Printf("emit %s: send buffer full, dropping", event)
		return false
	}
}

func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

// Alive reports whether the connection is still usable.
func (c *Conn) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Done is closed when the connection shuts down, whichever side initiated.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) readPump() {
	defer c.Close()
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		var frame Frame
		if err := c.ws.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("socket read: %v", err)
			}
			return
		}
		c.dispatch(frame)
	}
}

func (c *Conn) dispatch(frame Frame) {
	c.mu.RLock()
	fn := c.handlers[frame.Event]
	c.mu.RUnlock()
	if fn == nil {
		log.Printf("socket: no handler for event %q, dropping", frame.Event)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("handler %s panicked: %v", frame.Event, r)
		}
	}()
	fn(frame.Data)
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
