package ws

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans status snapshots out to connected dashboard clients. New
// subscribers receive the latest snapshot immediately so they are not
// blank until the next probe.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}

	mu     sync.RWMutex
	latest []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.mu.RLock()
			latest := h.latest
			h.mu.RUnlock()
			if latest != nil {
				select {
				case client.send <- latest:
				default:
				}
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case message := <-h.broadcast:
			msgCopy := append([]byte(nil), message...)
			h.mu.Lock()
			h.latest = msgCopy
			h.mu.Unlock()

			for client := range h.clients {
				select {
				case client.send <- msgCopy:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}

		case <-h.stop:
			for client := range h.clients {
				close(client.send)
			}
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.stop)
}

func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
	}
}

func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	client := &Client{hub: h, conn: conn, send: make(chan []byte, 64)}

	go client.writePump()
	go client.readPump()

	h.register <- client
}
