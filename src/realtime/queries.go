package realtime

import (
	"github.com/pulsegrid/realtime/src/connection"
	"github.com/pulsegrid/realtime/src/types"
)

// ConnectionCount returns the number of live connections.
func (s *Service) ConnectionCount() int {
	return s.registry.Count()
}

// Connections returns a snapshot of every live connection record.
func (s *Service) Connections() []connection.Connection {
	return s.registry.Snapshot()
}

// ConnectionInfo returns the query view of a connection, or nil if it is
// not registered.
func (s *Service) ConnectionInfo(connID string) *types.ConnectionInfo {
	conn, ok := s.registry.Find(connID)
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(conn.Roles))
	for r := range conn.Roles {
		roles = append(roles, r)
	}
	return &types.ConnectionInfo{
		ID:          conn.ID,
		UserID:      conn.UserID,
		Roles:       roles,
		ConnectedAt: conn.CreatedAt,
		Topics:      s.table().TopicsFor(connID),
	}
}

// Topics returns the active topics with their subscriber counts.
func (s *Service) Topics() map[string]int {
	return s.table().Counts()
}

// IsSubscribed reports whether connID is subscribed to topicName.
func (s *Service) IsSubscribed(connID, topicName string) bool {
	return s.table().IsSubscribed(connID, topicName)
}
