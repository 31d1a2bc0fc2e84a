package transport

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsegrid/realtime/config"
	"github.com/pulsegrid/realtime/src/auth"
	"github.com/pulsegrid/realtime/src/realtime"
)

var handlerSecret = []byte("handler-test-secret")

func newTestHandler(t *testing.T) (*Handler, *realtime.Service) {
	t.Helper()
	svc := realtime.New(auth.NewHMACVerifier(handlerSecret), zerolog.Nop())
	return NewHandler(svc, config.Default(), zerolog.Nop()), svc
}

func validQuery(t *testing.T, userID string) map[string]string {
	t.Helper()
	token, err := auth.GenerateToken(handlerSecret, userID, nil, time.Hour)
	require.NoError(t, err)
	return map[string]string{"token": token}
}

func TestServeRegistersAndCleansUp(t *testing.T) {
	h, svc := newTestHandler(t)
	conn := newMockConn()

	query := validQuery(t, "u1")
	done := make(chan struct{})
	go func() {
		h.serve(conn, query)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return svc.ConnectionCount() == 1
	}, time.Second, 10*time.Millisecond)

	conn.readCh <- controlFrame{Type: "subscribe", Target: "room:1"}
	assert.Eventually(t, func() bool {
		return svc.Topics()["room:1"] == 1
	}, time.Second, 10*time.Millisecond)

	conn.readCh <- controlFrame{Type: "unsubscribe", Target: "room:1"}
	assert.Eventually(t, func() bool {
		return len(svc.Topics()) == 0
	}, time.Second, 10*time.Millisecond)

	// Dropping the socket disconnects and unregisters the session.
	conn.Close()
	<-done
	assert.Equal(t, 0, svc.ConnectionCount())
}

func TestServeRejectsBadToken(t *testing.T) {
	h, svc := newTestHandler(t)
	conn := newMockConn()

	h.serve(conn, map[string]string{"token": "garbage"})

	assert.Equal(t, 0, svc.ConnectionCount())
	assert.True(t, conn.closed)
}

func TestServeIgnoresUnknownControlFrames(t *testing.T) {
	h, svc := newTestHandler(t)
	conn := newMockConn()

	query := validQuery(t, "u1")
	done := make(chan struct{})
	go func() {
		h.serve(conn, query)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return svc.ConnectionCount() == 1
	}, time.Second, 10*time.Millisecond)

	conn.readCh <- controlFrame{Type: "dance", Target: "?"}
	conn.readCh <- controlFrame{Type: "subscribe", Target: "room:1"}
	assert.Eventually(t, func() bool {
		return svc.Topics()["room:1"] == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()
	<-done
}
