package desktop

import (
	"sync"

	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

const clientBuffer = 16

// hub fans status updates out to websocket clients. Slow clients drop updates.
type hub struct {
	mu      sync.Mutex
	clients map[chan types.Status]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[chan types.Status]struct{})}
}

func (h *hub) add() (chan types.Status, func()) {
	ch := make(chan types.Status, clientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
	}
}

func (h *hub) broadcast(st types.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- st:
		default:
		}
	}
}

func (h *hub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
