package server

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/loglens/loglens/pkg/domain"
)

const wsClientBuffer = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsHub fans stored entries out to websocket clients. It implements
// domain.EntryObserver; slow clients get entries dropped, never block
// ingestion.
type wsHub struct {
	logger  *zap.Logger
	mu      sync.Mutex
	clients map[chan *domain.LogEntry]struct{}
	dropped int64
}

func newWSHub(logger *zap.Logger) *wsHub {
	return &wsHub{
		logger:  logger.Named("ws"),
		clients: make(map[chan *domain.LogEntry]struct{}),
	}
}

func (h *wsHub) OnEntryAdded(entry *domain.LogEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- entry:
		default:
			h.dropped++
		}
	}
}

func (h *wsHub) OnEntriesAdded(entries []*domain.LogEntry) {
	for _, e := range entries {
		h.OnEntryAdded(e)
	}
}

func (h *wsHub) OnCleared() {}

func (h *wsHub) subscribe() chan *domain.LogEntry {
	ch := make(chan *domain.LogEntry, wsClientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *wsHub) unsubscribe(ch chan *domain.LogEntry) {
	h.mu.Lock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *wsHub) closeAll() {
	h.mu.Lock()
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// handleWebSocket upgrades the connection and streams entries as JSON until
// the client disconnects.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	entries := s.hub.subscribe()
	defer s.hub.unsubscribe(entries)

	// Read pump, only to detect disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case entry, ok := <-entries:
			if !ok {
				return
			}
			if err := conn.WriteJSON(entry); err != nil {
				return
			}
		}
	}
}
