package main

import (
	"context"
	"sync"
)

const (
	defaultMaxConnsPerIP = 5
	defaultMaxTotalConns = 1000
)

// Hub tracks live connections and enforces connection caps. Game state lives
// in the World.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	// done is closed when Run returns.
	done chan struct{}
	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu        sync.Mutex
	ipConns       map[string]int
	totalConns    int
	maxConnsPerIP int
	maxTotalConns int
}

// NewHub creates a Hub with the given caps. Non-positive caps use the
// defaults.
func NewHub(maxPerIP, maxTotal int) *Hub {
	if maxPerIP <= 0 {
		maxPerIP = defaultMaxConnsPerIP
	}
	if maxTotal <= 0 {
		maxTotal = defaultMaxTotalConns
	}
	return &Hub{
		clients:       make(map[*Client]bool),
		register:      make(chan *Client, 64),
		unregister:    make(chan *Client, 64),
		done:          make(chan struct{}),
		ipConns:       make(map[string]int),
		maxConnsPerIP: maxPerIP,
		maxTotalConns: maxTotal,
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= h.maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= h.maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

// shutdown releases every registered client's writer and unblocks pending
// Register and Unregister calls.
func (h *Hub) shutdown() {
	close(h.done)
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.closeSend()
		delete(h.clients, client)
	}
	for {
		select {
		case client := <-h.register:
			client.closeSend()
		default:
			return
		}
	}
}

// Register hands c to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c from the hub. It does not block after the hub has
// stopped.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count.
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
