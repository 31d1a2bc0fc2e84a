package message

import (
	"github.com/pulsegrid/realtime/src/connection"
)

// Route computes the connection IDs that should receive msg, given a
// point-in-time snapshot of the active connections. It is pure: the same
// snapshot and message always produce the same result, in snapshot order.
//
// Topic messages are not resolved here; the subscription table turns them
// into per-connection deliveries before dispatch. Unknown types resolve to
// an empty list, never an error.
func Route(msg Message, snapshot []connection.Connection) []string {
	ids := make([]string, 0)
	switch msg.Type {
	case TypeBroadcast:
		for _, c := range snapshot {
			ids = append(ids, c.ID)
		}
	case TypeUser:
		for _, c := range snapshot {
			if c.UserID == msg.Target {
				ids = append(ids, c.ID)
			}
		}
	case TypeRole:
		for _, c := range snapshot {
			if c.HasRole(msg.Target) {
				ids = append(ids, c.ID)
			}
		}
	case TypeConnection:
		for _, c := range snapshot {
			if c.ID == msg.Target {
				ids = append(ids, c.ID)
				break
			}
		}
	}
	return ids
}

// RouteConnections is Route returning the full connection records, for
// callers that need metadata after routing.
func RouteConnections(msg Message, snapshot []connection.Connection) []connection.Connection {
	byID := make(map[string]connection.Connection, len(snapshot))
	for _, c := range snapshot {
		byID[c.ID] = c
	}
	ids := Route(msg, snapshot)
	out := make([]connection.Connection, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}
