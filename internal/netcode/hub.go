package netcode

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/arenasession/internal/model"
)

// outbound is a frame for some clients, or all when targets is empty
type outbound struct {
	targets []model.ClientID
	data    []byte
}

// Hub owns the set of connected peers and fans frames out to them
type Hub struct {
	peers  map[model.ClientID]*peer
	mu     sync.RWMutex
	logger *slog.Logger

	register   chan *peer
	unregister chan *peer
	send       chan outbound
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a hub; call Run to start it
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		peers:      make(map[model.ClientID]*peer),
		logger:     logger.With(slog.String("component", "hub")),
		register:   make(chan *peer),
		unregister: make(chan *peer),
		send:       make(chan outbound, 256),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and sends until Close
func (h *Hub) Run() {
	h.logger.Info("hub started")
	for {
		select {
		case p := <-h.register:
			h.mu.Lock()
			h.peers[p.clientID] = p
			count := len(h.peers)
			h.mu.Unlock()
			h.logger.Info("peer registered",
				slog.Uint64("client_id", uint64(p.clientID)),
				slog.Int("total_peers", count))

		case p := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.peers[p.clientID]; ok && current == p {
				delete(h.peers, p.clientID)
				close(p.send)
				count := len(h.peers)
				h.mu.Unlock()
				h.logger.Info("peer unregistered",
					slog.Uint64("client_id", uint64(p.clientID)),
					slog.Duration("connection_duration", time.Since(p.connectedAt)),
					slog.Int("total_peers", count))
			} else {
				h.mu.Unlock()
			}

		case msg := <-h.send:
			h.deliver(msg)

		case <-h.done:
			h.mu.Lock()
			count := len(h.peers)
			for id, p := range h.peers {
				close(p.send)
				delete(h.peers, id)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped", slog.Int("disconnected_peers", count))
			return
		}
	}
}

func (h *Hub) deliver(msg outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := msg.targets
	if len(targets) == 0 {
		targets = make([]model.ClientID, 0, len(h.peers))
		for id := range h.peers {
			targets = append(targets, id)
		}
	}

	dropped := 0
	for _, id := range targets {
		p, ok := h.peers[id]
		if !ok {
			continue
		}
		select {
		case p.send <- msg.data:
		default:
			dropped++
			h.logger.Warn("frame dropped - peer buffer full", slog.Uint64("client_id", uint64(id)))
		}
	}
	if dropped > 0 {
		h.logger.Warn("partial delivery", slog.Int("targets", len(targets)), slog.Int("dropped", dropped))
	}
}

// Register adds a peer
func (h *Hub) Register(p *peer) {
	select {
	case h.register <- p:
	case <-h.done:
	}
}

// Unregister removes a peer and closes its send queue
func (h *Hub) Unregister(p *peer) {
	select {
	case h.unregister <- p:
	case <-h.done:
	}
}

// Send queues a frame for the given clients, or everyone when none are given
func (h *Hub) Send(data []byte, targets ...model.ClientID) {
	select {
	case h.send <- outbound{targets: targets, data: data}:
	default:
		h.logger.Warn("frame dropped - hub buffer full")
	}
}

// Close stops the hub and releases every peer
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// PeerCount returns the number of registered peers
func (h *Hub) PeerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}
