package notify

import "sync"

// hubBuffer is the per-subscriber backlog before notices are dropped.
const hubBuffer = 16

// Hub broadcasts notices to all subscribed listeners.
type Hub struct {
	mu        sync.RWMutex
	listeners map[chan Notice]struct{}
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		listeners: make(map[chan Notice]struct{}),
	}
}

// Subscribe returns a channel that receives broadcast notices.
// The caller must call Unsubscribe when done.
func (h *Hub) Subscribe() chan Notice {
	ch := make(chan Notice, hubBuffer)
	h.mu.Lock()
	h.listeners[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (h *Hub) Unsubscribe(ch chan Notice) {
	h.mu.Lock()
	_, ok := h.listeners[ch]
	delete(h.listeners, ch)
	h.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Notify sends n to all listeners.
// Non-blocking: a listener whose buffer is full misses the notice.
func (h *Hub) Notify(n Notice) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.listeners {
		select {
		case ch <- n:
		default:
		}
	}
}
