package realtime

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pulsegrid/realtime/src/connection"
	"github.com/pulsegrid/realtime/src/message"
	"github.com/pulsegrid/realtime/src/registry"
	"github.com/pulsegrid/realtime/src/topic"
	"github.com/pulsegrid/realtime/src/types"
)

// ErrConnectionLimit is returned by Connect when the configured
// connection cap is reached.
var ErrConnectionLimit = errors.New("realtime: connection limit reached")

// MessageBridge relays messages to other server instances. Defined here to
// avoid a circular import with the bridge package.
type MessageBridge interface {
	Publish(msg message.Message) error
	Available() bool
}

// Service orchestrates the realtime core: it authenticates inbound
// connections, owns the registry and the current subscription table, and
// dispatches routed messages to transports. A connection moves
// Connecting -> Connected at a successful Connect and reaches its terminal
// Disconnected state at the first Disconnect; there are no retries at this
// layer.
type Service struct {
	registry *registry.Registry
	verifier types.TokenVerifier
	logger   zerolog.Logger
	maxConns int

	topicMu sync.RWMutex
	topics  topic.Table

	cbMu      sync.RWMutex
	bridge    MessageBridge
	onConnect []func(string)
	onDisconn []func(string)
}

// New creates a Service using verifier for connect-time authentication.
func New(verifier types.TokenVerifier, logger zerolog.Logger) *Service {
	return &Service{
		registry: registry.New(),
		verifier: verifier,
		logger:   logger,
		topics:   topic.New(),
	}
}

// SetConnectionLimit caps the number of live connections; 0 means
// unlimited. Set before serving traffic.
func (s *Service) SetConnectionLimit(n int) {
	s.maxConns = n
}

// SetBridge attaches a cross-instance message bridge. When set, outbound
// messages are also forwarded to other instances.
func (s *Service) SetBridge(b MessageBridge) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.bridge = b
}

// OnConnect registers a callback invoked with each new connection id.
func (s *Service) OnConnect(cb func(connID string)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onConnect = append(s.onConnect, cb)
}

// OnDisconnect registers a callback invoked with each removed connection id.
func (s *Service) OnDisconnect(cb func(connID string)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onDisconn = append(s.onDisconn, cb)
}

// Connect authenticates the transport using the "token" query parameter
// and registers it. It is the only transition into the Connected state;
// on any verification failure the transport is never registered and the
// wrapped error satisfies errors.Is against auth's ErrUnauthorized.
func (s *Service) Connect(transport types.Transport, query map[string]string) (string, error) {
	claims, err := s.verifier.Verify(query["token"])
	if err != nil {
		s.logger.Warn().Err(err).Msg("connection rejected")
		return "", err
	}

	conn, err := connection.New(claims.UserID, claims.Roles, nil)
	if err != nil {
		return "", fmt.Errorf("realtime: building connection: %w", err)
	}
	if !s.registry.RegisterLimited(conn, transport, s.maxConns) {
		s.logger.Warn().Str("user_id", conn.UserID).Msg("connection limit reached")
		return "", ErrConnectionLimit
	}

	s.logger.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Msg("connected")

	s.cbMu.RLock()
	cbs := s.onConnect
	s.cbMu.RUnlock()
	for _, cb := range cbs {
		cb(conn.ID)
	}
	return conn.ID, nil
}

// Disconnect unregisters the connection, drops all of its topic
// subscriptions, and closes the transport. Safe to call repeatedly and
// concurrently with in-flight sends to the same connection.
func (s *Service) Disconnect(connID string) {
	transport, hadTransport := s.registry.Transport(connID)
	if !s.registry.Unregister(connID) {
		return
	}

	s.topicMu.Lock()
	s.topics = s.topics.UnsubscribeAll(connID)
	s.topicMu.Unlock()

	if hadTransport {
		if err := transport.Close(); err != nil {
			s.logger.Debug().Err(err).Str("connection_id", connID).Msg("transport close")
		}
	}
	s.logger.Info().Str("connection_id", connID).Msg("disconnected")

	s.cbMu.RLock()
	cbs := s.onDisconn
	s.cbMu.RUnlock()
	for _, cb := range cbs {
		cb(connID)
	}
}

// Subscribe adds the connection to a topic. Unknown connections are
// rejected so the table never references a dead id: the liveness check
// happens under topicMu, and Disconnect always unregisters before it takes
// topicMu for UnsubscribeAll, so a racing disconnect either fails this
// check or has its cleanup serialize after the insert.
func (s *Service) Subscribe(connID, topicName string) error {
	s.topicMu.Lock()
	if _, ok := s.registry.Find(connID); !ok {
		s.topicMu.Unlock()
		return fmt.Errorf("realtime: connection %s not found", connID)
	}
	s.topics = s.topics.Subscribe(connID, topicName)
	s.topicMu.Unlock()

	s.logger.Debug().
		Str("connection_id", connID).
		Str("topic", topicName).
		Msg("subscribed")
	return nil
}

// Unsubscribe removes the connection from a topic. Unsubscribing an
// absent pair is a no-op.
func (s *Service) Unsubscribe(connID, topicName string) {
	s.topicMu.Lock()
	s.topics = s.topics.Unsubscribe(connID, topicName)
	s.topicMu.Unlock()

	s.logger.Debug().
		Str("connection_id", connID).
		Str("topic", topicName).
		Msg("unsubscribed")
}

// table returns the current subscription table snapshot.
func (s *Service) table() topic.Table {
	s.topicMu.RLock()
	defer s.topicMu.RUnlock()
	return s.topics
}
