package message

import (
	"fmt"
	"time"
)

// Type discriminates how a message is addressed.
type Type string

const (
	TypeBroadcast  Type = "broadcast"
	TypeUser       Type = "user"
	TypeRole       Type = "role"
	TypeConnection Type = "connection"
	TypeTopic      Type = "topic"
)

// Message is an instruction to deliver a payload to some addressee set.
// Target holds a user id, role tag, connection id, or topic name depending
// on Type, and is empty for broadcasts. The JSON form is the wire frame.
type Message struct {
	Type      Type      `json:"type"`
	Payload   any       `json:"payload"`
	Target    string    `json:"target,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New builds a Message, stamping the timestamp if the caller did not.
// The type must be one of the known variants, and the target must be
// present exactly when the type requires one.
func New(t Type, payload any, target string) (Message, error) {
	switch t {
	case TypeBroadcast:
		if target != "" {
			return Message{}, fmt.Errorf("message: broadcast must not carry a target, got %q", target)
		}
	case TypeUser, TypeRole, TypeConnection, TypeTopic:
		if target == "" {
			return Message{}, fmt.Errorf("message: type %q requires a target", t)
		}
	default:
		return Message{}, fmt.Errorf("message: unknown type %q", t)
	}
	return Message{
		Type:      t,
		Payload:   payload,
		Target:    target,
		Timestamp: time.Now(),
	}, nil
}

// Broadcast addresses every active connection.
func Broadcast(payload any) Message {
	m, _ := New(TypeBroadcast, payload, "")
	return m
}

// ForUser addresses every connection of one user.
func ForUser(userID string, payload any) Message {
	return mustTargeted(TypeUser, payload, userID)
}

// ForRole addresses every connection holding a role.
func ForRole(role string, payload any) Message {
	return mustTargeted(TypeRole, payload, role)
}

// ForConnection addresses a single connection.
func ForConnection(connID string, payload any) Message {
	return mustTargeted(TypeConnection, payload, connID)
}

// ForTopic addresses the subscribers of a topic.
func ForTopic(topic string, payload any) Message {
	return mustTargeted(TypeTopic, payload, topic)
}

// mustTargeted keeps the convenience constructors total: an empty target
// yields a message that Route resolves to nobody. Callers that need the
// validation error use New directly.
func mustTargeted(t Type, payload any, target string) Message {
	m, err := New(t, payload, target)
	if err != nil {
		return Message{Type: t, Payload: payload, Timestamp: time.Now()}
	}
	return m
}
