package message

import (
	"time"

	"github.com/pulsegrid/realtime/src/connection"
)

// History helpers over recorded message slices, used for auditing and
// in tests. All of them are pure.

// FilterByType returns the messages of the given type, preserving order.
func FilterByType(msgs []Message, t Type) []Message {
	out := make([]Message, 0)
	for _, m := range msgs {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

// FilterByTarget returns the messages addressed to the given target.
func FilterByTarget(msgs []Message, target string) []Message {
	out := make([]Message, 0)
	for _, m := range msgs {
		if m.Target == target {
			out = append(out, m)
		}
	}
	return out
}

// FilterRecent returns the messages stamped within d of now.
func FilterRecent(msgs []Message, d time.Duration, now time.Time) []Message {
	cutoff := now.Add(-d)
	out := make([]Message, 0)
	for _, m := range msgs {
		if !m.Timestamp.Before(cutoff) {
			out = append(out, m)
		}
	}
	return out
}

// CountByType tallies messages per type.
func CountByType(msgs []Message) map[Type]int {
	counts := make(map[Type]int)
	for _, m := range msgs {
		counts[m.Type]++
	}
	return counts
}

// Reaching returns the messages that would have been delivered to conn,
// given the full connection snapshot each message was routed against.
func Reaching(msgs []Message, conn connection.Connection, snapshot []connection.Connection) []Message {
	out := make([]Message, 0)
	for _, m := range msgs {
		for _, id := range Route(m, snapshot) {
			if id == conn.ID {
				out = append(out, m)
				break
			}
		}
	}
	return out
}
