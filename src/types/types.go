package types

import (
	"time"

	"github.com/pulsegrid/realtime/src/message"
)

// Transport is one live wire to a client, bound to a single connection.
// Send must not block the caller: implementations queue or drop. Close is
// idempotent.
type Transport interface {
	ID() string
	Send(msg message.Message) error
	Close() error
	IsOpen() bool
}

// Claims is the verified identity a bearer token carries.
type Claims struct {
	UserID      string
	Roles       []string
	Permissions []string
	ExpiresAt   time.Time
	IssuedAt    time.Time
}

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (Claims, error)
}

// ConnectionInfo is the query-surface view of a live connection.
type ConnectionInfo struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Roles       []string  `json:"roles"`
	ConnectedAt time.Time `json:"connected_at"`
	Topics      []string  `json:"topics"`
}
