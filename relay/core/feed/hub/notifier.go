package hub

import (
	"github.com/ethereum/go-ethereum/event"
)

// Notifier interface defines the methods of the service that provides hub updates to consumers.
type Notifier interface {
	HubFeed() *event.Feed
}
