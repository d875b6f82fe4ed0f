package ws

import (
	"log"
)

// Hub is the in-process fan-out registry: topic name -> set of live clients.
// It only works within a single process instance; fanning out across
// instances would need an external broker, which is out of scope here.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *publication
}

type publication struct {
	topic   string
	payload []byte
}

func NewHub() *Hub {
	h := &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *publication, 256),
	}
	go h.run()
	return h
}

// run owns the client map. Publications are processed one at a time, which
// gives FIFO delivery per topic for payloads accepted into the queue.
func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			if c.topic != "" {
				if _, ok := h.clients[c.topic]; !ok {
					h.clients[c.topic] = make(map[*Client]bool)
				}
				h.clients[c.topic][c] = true
				log.Printf("client subscribed: %s", c.topic)
			}
		case c := <-h.unregister:
			if conns, ok := h.clients[c.topic]; ok {
				if _, exists := conns[c]; exists {
					delete(conns, c)
					close(c.send)
				}
				if len(conns) == 0 {
					delete(h.clients, c.topic)
				}
			} else if c.topic == "" {
				// Anonymous clients are never in the map but still own a
				// writePump that must be released.
				close(c.send)
			}
		case p := <-h.broadcast:
			conns, ok := h.clients[p.topic]
			if !ok {
				// Nobody live on this topic; the message stays queryable
				// through the REST listing path.
				continue
			}
			for c := range conns {
				select {
				case c.send <- p.payload:
				default:
					// Slow consumer: drop the connection, not the publish.
					close(c.send)
					delete(conns, c)
				}
			}
		}
	}
}

// Publish enqueues a payload for every client subscribed to topic. It never
// blocks: if the queue is momentarily full the payload is dropped and logged,
// because the durable write has already succeeded upstream.
func (h *Hub) Publish(topic string, payload []byte) {
	select {
	case h.broadcast <- &publication{topic: topic, payload: payload}:
	default:
		log.Printf("hub queue full, dropping publish to %s", topic)
	}
}

func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

func (h *Hub) UnregisterClient(c *Client) {
	h.unregister <- c
}
