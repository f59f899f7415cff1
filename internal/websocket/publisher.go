package websocket

// EventPublisher delivers closure events to the operators watching a branch.
// The Hub publishes on this instance only; RedisPublisher reaches every instance.
type EventPublisher interface {
	Publish(branchID int32, event Event)
}

var _ EventPublisher = (*Hub)(nil)

// Publish broadcasts the event to this instance's clients
func (h *Hub) Publish(branchID int32, event Event) {
	h.Broadcast(branchID, event)
}
