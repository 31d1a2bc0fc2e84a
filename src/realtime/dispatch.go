package realtime

import (
	"github.com/pulsegrid/realtime/src/message"
)

// Broadcast delivers the payload to every connected client and returns
// the number of transports dispatched to.
func (s *Service) Broadcast(payload any) int {
	return s.send(message.Broadcast(payload))
}

// SendToUser delivers the payload to every connection of one user. An
// empty user id is a validation error; zero recipients is a normal
// result, not an error.
func (s *Service) SendToUser(userID string, payload any) (int, error) {
	msg, err := message.New(message.TypeUser, payload, userID)
	if err != nil {
		return 0, err
	}
	return s.send(msg), nil
}

// SendToRole delivers the payload to every connection holding the role.
func (s *Service) SendToRole(role string, payload any) (int, error) {
	msg, err := message.New(message.TypeRole, payload, role)
	if err != nil {
		return 0, err
	}
	return s.send(msg), nil
}

// SendToConnection delivers the payload to a single connection. Returns 0
// when the connection has already gone away.
func (s *Service) SendToConnection(connID string, payload any) (int, error) {
	msg, err := message.New(message.TypeConnection, payload, connID)
	if err != nil {
		return 0, err
	}
	return s.send(msg), nil
}

// PublishToTopic delivers the payload to the topic's current subscribers.
func (s *Service) PublishToTopic(topicName string, payload any) (int, error) {
	msg, err := message.New(message.TypeTopic, payload, topicName)
	if err != nil {
		return 0, err
	}
	return s.send(msg), nil
}

// send routes msg against a registry snapshot, forwards it to the bridge
// if one is attached, and dispatches to each resolved transport.
func (s *Service) send(msg message.Message) int {
	s.publishToBridge(msg)
	return s.deliverLocal(msg)
}

// DeliverLocal dispatches a message to local recipients only, without
// re-publishing to the bridge. The bridge calls this for relayed messages
// so a message never loops between instances.
func (s *Service) DeliverLocal(msg message.Message) {
	s.deliverLocal(msg)
}

func (s *Service) deliverLocal(msg message.Message) int {
	var ids []string
	if msg.Type == message.TypeTopic {
		ids = s.table().Subscribers(msg.Target)
	} else {
		ids = message.Route(msg, s.registry.Snapshot())
	}
	return s.dispatch(ids, msg)
}

// dispatch sends msg to each id's transport. A failing or closed
// transport is logged and skipped; it never aborts delivery to the rest.
func (s *Service) dispatch(ids []string, msg message.Message) int {
	sent := 0
	for _, t := range s.registry.Transports(ids) {
		if err := t.Send(msg); err != nil {
			s.logger.Warn().
				Err(err).
				Str("connection_id", t.ID()).
				Str("type", string(msg.Type)).
				Msg("dispatch failed")
			continue
		}
		sent++
	}
	s.logger.Debug().
		Str("type", string(msg.Type)).
		Str("target", msg.Target).
		Int("recipients", sent).
		Msg("dispatched")
	return sent
}

func (s *Service) publishToBridge(msg message.Message) {
	s.cbMu.RLock()
	b := s.bridge
	s.cbMu.RUnlock()

	if b == nil || !b.Available() {
		return
	}
	if err := b.Publish(msg); err != nil {
		s.logger.Error().Err(err).Msg("bridge publish failed")
	}
}
