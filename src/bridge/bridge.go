package bridge

import "github.com/pulsegrid/realtime/src/message"

// Bridge relays routed messages between server instances. The realtime
// core never requires one; attaching a bridge is a construction-time
// decision made by the server wiring.
type Bridge interface {
	// Publish forwards a message to all other instances.
	Publish(msg message.Message) error

	// Start begins listening for messages from other instances.
	Start() error

	// Stop shuts down the bridge connection.
	Stop() error

	// Available reports whether the bridge is connected and operational.
	Available() bool
}

// LocalDeliverer is implemented by the orchestrator to receive relayed
// messages for local-only delivery.
type LocalDeliverer interface {
	DeliverLocal(msg message.Message)
}
