package connection

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyUserID is returned when a connection is created without a user.
var ErrEmptyUserID = errors.New("connection: user id must not be empty")

// Connection is one authenticated realtime session. Values are immutable
// once created: helpers that change metadata return a fresh copy and every
// other field is carried over unchanged.
type Connection struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Roles     map[string]bool `json:"roles"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// New builds a Connection for the given user. Roles may be empty; duplicate
// role tags collapse into the set. Metadata may be nil.
func New(userID string, roles []string, metadata map[string]any) (Connection, error) {
	if userID == "" {
		return Connection{}, ErrEmptyUserID
	}
	roleSet := make(map[string]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}
	meta := make(map[string]any, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	return Connection{
		ID:        uuid.New().String(),
		UserID:    userID,
		Roles:     roleSet,
		Metadata:  meta,
		CreatedAt: time.Now(),
	}, nil
}

// HasRole reports whether the connection holds the given role.
func (c Connection) HasRole(role string) bool {
	return c.Roles[role]
}

// HasAnyRole reports whether the connection holds at least one of the roles.
func (c Connection) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if c.Roles[r] {
			return true
		}
	}
	return false
}

// HasAllRoles reports whether the connection holds every one of the roles.
func (c Connection) HasAllRoles(roles ...string) bool {
	for _, r := range roles {
		if !c.Roles[r] {
			return false
		}
	}
	return true
}

// WithMetadata returns a copy of the connection with key set to value.
// The receiver is left untouched.
func (c Connection) WithMetadata(key string, value any) Connection {
	meta := make(map[string]any, len(c.Metadata)+1)
	for k, v := range c.Metadata {
		meta[k] = v
	}
	meta[key] = value
	c.Metadata = meta
	return c
}

// WithoutMetadata returns a copy of the connection with key removed.
func (c Connection) WithoutMetadata(key string) Connection {
	meta := make(map[string]any, len(c.Metadata))
	for k, v := range c.Metadata {
		if k != key {
			meta[k] = v
		}
	}
	c.Metadata = meta
	return c
}
