// Package observer streams trace lines to websocket subscribers so a
// long derivation can be watched live. This is a debugging feed over
// the trace format only; it carries no game-state synchronization.
package observer

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"multiworld.gg/internal/trace"
)

// Hub fans trace lines out to subscribers. It implements trace.Sink;
// compose it with the file writer via trace.MultiSink. Slow
// subscribers are dropped rather than stalling the engine.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]chan []byte
	nextID uint64
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: map[uint64]chan []byte{}}
}

func (h *Hub) WriteStateUpdate(su trace.StateUpdate) error {
	b, err := json.Marshal(su)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- b:
		default:
			close(ch)
			delete(h.subs, id)
		}
	}
	return nil
}

// Close ends every subscriber stream; the run is over.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
}

func (h *Hub) subscribe() (uint64, chan []byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, nil, false
	}
	h.nextID++
	ch := make(chan []byte, 1024)
	h.subs[h.nextID] = ch
	return h.nextID, ch, true
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		close(ch)
		delete(h.subs, id)
	}
}

type Server struct {
	hub *Hub
	log *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(hub *Hub, logger *log.Logger) *Server {
	return &Server{
		hub: hub,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only below
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id, ch, ok := s.hub.subscribe()
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "run finished"),
				time.Now().Add(time.Second))
			return
		}
		defer s.hub.unsubscribe(id)

		// Reader goroutine only notices disconnects.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case line, open := <-ch:
				if !open {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "end of trace"),
						time.Now().Add(time.Second))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, line); err != nil {
					return
				}
			case <-gone:
				return
			}
		}
	}
}

func isLoopbackRemote(remote string) bool {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
