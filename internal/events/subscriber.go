package events

// Message is a single event delivered by a Subscriber.
type Message struct {
	Subject   string
	ProjectID string // from HeaderProject; empty for unscoped events
	Data      []byte
}

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers messages on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan Message, func(), error)
	Close() error
}
