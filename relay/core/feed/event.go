// Package feed defines event feed types for inter-service communication in
// the relay. The same event value is supplied to every subscriber, so
// received events must be treated as read-only.
package feed

// EventType is the type that defines the type of event.
type EventType int

// Event is the event that is sent with hub feed updates.
type Event struct {
	// Type is the type of event.
	Type EventType
	// Data is event-specific data.
	Data interface{}
}
