package devserver

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/learnhome/client/internal/devserver/store"
	"github.com/learnhome/client/internal/realtime"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub keeps the connected sockets keyed by user id and relays each outbound
// client event to the users it concerns as the matching inbound event. The
// relay only routes; the REST layer has already validated and persisted the
// mutation being announced.
type Hub struct {
	store    *store.Store
	presence *Presence

	mu      sync.RWMutex
	clients map[string]map[*hubClient]bool
}

func NewHub(st *store.Store, presence *Presence) *Hub {
	return &Hub{
		store:    st,
		presence: presence,
		clients:  make(map[string]map[*hubClient]bool),
	}
}

type hubClient struct {
	hub    *Hub
	userID string
	ws     *websocket.Conn
	send   chan realtime.Frame
}

// ServeWS upgrades the request and runs the client until disconnect.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade: %v", err)
		return
	}
	c := &hubClient{hub: h, userID: userID, ws: ws, send: make(chan realtime.Frame, 32)}
	h.register(c)
	go c.writePump()
	c.readPump()
}

func (h *Hub) register(c *hubClient) {
	h.mu.Lock()
	first := len(h.clients[c.userID]) == 0
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*hubClient]bool)
	}
	h.clients[c.userID][c] = true
	h.mu.Unlock()

	h.presence.Connect(context.Background(), c.userID)
	if first {
		h.fanOutPresence(c.userID, true)
	}
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	if set, ok := h.clients[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	last := len(h.clients[c.userID]) == 0
	h.mu.Unlock()

	close(c.send)
	h.presence.Disconnect(context.Background(), c.userID)
	if last {
		h.fanOutPresence(c.userID, false)
	}
}

// Deliver sends one event to every socket a user holds. Unknown users are
// simply not connected; the event is dropped, they will rehydrate over REST.
func (h *Hub) Deliver(userID, event string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("deliver %s: marshal: %v", event, err)
		return
	}
	frame := realtime.Frame{Event: event, Data: raw}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- frame:
		default:
			// Slow consumer; drop the frame rather than block the hub.
			log.Printf("deliver %s to %s: buffer full", event, userID)
		}
	}
}

// fanOutPresence tells the user's contacts they went on or off line.
func (h *Hub) fanOutPresence(userID string, connected bool) {
	contacts, err := h.store.Contacts(userID)
	if err != nil {
		log.Printf("presence fan-out: %v", err)
		return
	}
	payload := realtime.PresencePayload{UserID: userID, Connected: connected}
	for _, peer := range contacts {
		h.Deliver(peer.ID, realtime.EventNotifyConnection, payload)
	}
}

func (c *hubClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.ws.Close()
	}()
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		var frame realtime.Frame
		if err := c.ws.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("hub read: %v", err)
			}
			return
		}
		c.hub.route(c.userID, frame)
	}
}

func (c *hubClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
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
