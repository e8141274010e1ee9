package websocket

// EventPublisher delivers workspace events to whoever listens for them
type EventPublisher interface {
	// Publish sends an event to all listeners of the specified workspace
	Publish(workspaceID int32, event Event)
}

// Ensure Hub implements EventPublisher
var _ EventPublisher = (*Hub)(nil)

// Publish implements EventPublisher by broadcasting the event to the workspace
func (h *Hub) Publish(workspaceID int32, event Event) {
	h.Broadcast(workspaceID, event)
}

// MultiPublisher fans an event out to several publishers in order
type MultiPublisher []EventPublisher

// Publish forwards the event to every non-nil publisher
func (m MultiPublisher) Publish(workspaceID int32, event Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(workspaceID, event)
		}
	}
}
