package websocket

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrClientClosed is returned when attempting to send to a closed client
var ErrClientClosed = errors.New("client is closed")

// HeadOfficeBranchID is the branch of operators who watch every branch
const HeadOfficeBranchID int32 = 0

// ClientInterface defines the interface that clients must implement
type ClientInterface interface {
	ID() string
	BranchID() int32
	Send(data []byte) error
	Close() error
}

// Hub manages WebSocket connections grouped by branch. It is safe for concurrent use.
type Hub struct {
	branches map[int32]map[string]ClientInterface
	mu       sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		branches: make(map[int32]map[string]ClientInterface),
	}
}

// Register adds a client to the hub under its branch
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	branchID := client.BranchID()
	if h.branches[branchID] == nil {
		h.branches[branchID] = make(map[string]ClientInterface)
	}
	h.branches[branchID][client.ID()] = client

	log.Debug().
		Int32("branch_id", branchID).
		Str("client_id", client.ID()).
		Msg("WebSocket client registered")
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	branchID := client.BranchID()
	clients, ok := h.branches[branchID]
	if !ok {
		return
	}
	if _, exists := clients[client.ID()]; !exists {
		return
	}

	delete(clients, client.ID())
	if len(clients) == 0 {
		delete(h.branches, branchID)
	}

	log.Debug().
		Int32("branch_id", branchID).
		Str("client_id", client.ID()).
		Msg("WebSocket client unregistered")
}

// recipients returns the branch's clients plus head office clients
func (h *Hub) recipients(branchID int32) []ClientInterface {
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := make([]ClientInterface, 0, len(h.branches[branchID])+len(h.branches[HeadOfficeBranchID]))
	for _, client := range h.branches[branchID] {
		targets = append(targets, client)
	}
	if branchID != HeadOfficeBranchID {
		for _, client := range h.branches[HeadOfficeBranchID] {
			targets = append(targets, client)
		}
	}
	return targets
}

// Broadcast sends an event to the branch's clients and to head office clients
func (h *Hub) Broadcast(branchID int32, event Event) {
	event.BranchID = branchID
	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Int32("branch_id", branchID).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	targets := h.recipients(branchID)
	if len(targets) == 0 {
		return
	}

	// Send never blocks (clients drop when their buffer is full), so no goroutine per client
	for _, client := range targets {
		if err := client.Send(data); err != nil {
			log.Warn().
				Err(err).
				Int32("branch_id", branchID).
				Str("client_id", client.ID()).
				Msg("Failed to send to client")
		}
	}

	log.Debug().
		Int32("branch_id", branchID).
		Str("event_type", event.Type).
		Int("client_count", len(targets)).
		Msg("Broadcast event")
}

// ClientCount returns the number of clients registered under a branch
func (h *Hub) ClientCount(branchID int32) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.branches[branchID])
}

// TotalClientCount returns the number of connected clients across all branches
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.branches {
		total += len(clients)
	}
	return total
}

// Shutdown closes and forgets every client
func (h *Hub) Shutdown() {
	h.mu.Lock()
	branches := h.branches
	h.branches = make(map[int32]map[string]ClientInterface)
	h.mu.Unlock()

	for _, clients := range branches {
		for _, client := range clients {
			_ = client.Close()
		}
	}
}
