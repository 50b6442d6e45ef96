package walletcore

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub pushes change events to websocket subscribers. Each connection gets
// the full event stream; a dead connection is dropped on its first failed
// write.
type Hub struct {
	bus *Bus

	locker sync.Mutex
	conns  map[*websocket.Conn]bool
}

func NewHub(bus *Bus) *Hub {
	h := &Hub{
		bus:   bus,
		conns: make(map[*websocket.Conn]bool),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	_, events := h.bus.Subscribe()
	for ev := range events {
		h.locker.Lock()
		for conn := range h.conns {
			if err := conn.WriteJSON(ev); err != nil {
				conn.Close()
				delete(h.conns, conn)
			}
		}
		h.locker.Unlock()
	}
}

func (h *Hub) Serve(rw http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return err
	}
	h.locker.Lock()
	h.conns[conn] = true
	h.locker.Unlock()

	// drain the read side so close frames are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.locker.Lock()
				delete(h.conns, conn)
				h.locker.Unlock()
				conn.Close()
				return
			}
		}
	}()
	return nil
}
