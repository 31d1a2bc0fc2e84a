package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsegrid/realtime/src/message"
)

type mockBridge struct {
	mu        sync.Mutex
	published []message.Message
	available bool
}

func (b *mockBridge) Publish(msg message.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, msg)
	return nil
}

func (b *mockBridge) Available() bool { return b.available }

func (b *mockBridge) publishedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}

func TestOutboundMessagesReachBridge(t *testing.T) {
	s := newTestService(t)
	b := &mockBridge{available: true}
	s.SetBridge(b)

	id, _ := connect(t, s, "u1")
	require.NoError(t, s.Subscribe(id, "room:1"))

	_, err := s.PublishToTopic("room:1", "x")
	require.NoError(t, err)
	s.Broadcast("y")

	assert.Equal(t, 2, b.publishedCount())
}

func TestUnavailableBridgeIsSkipped(t *testing.T) {
	s := newTestService(t)
	b := &mockBridge{available: false}
	s.SetBridge(b)

	connect(t, s, "u1")
	assert.Equal(t, 1, s.Broadcast("x"))
	assert.Equal(t, 0, b.publishedCount())
}

func TestDeliverLocalDoesNotRePublish(t *testing.T) {
	s := newTestService(t)
	b := &mockBridge{available: true}
	s.SetBridge(b)

	id, tr := connect(t, s, "u1")
	require.NoError(t, s.Subscribe(id, "room:1"))
	b.mu.Lock()
	b.published = nil
	b.mu.Unlock()

	s.DeliverLocal(message.ForTopic("room:1", "relayed"))

	assert.Equal(t, 1, tr.sentCount())
	assert.Equal(t, 0, b.publishedCount(), "relayed delivery must not loop back to the bridge")
}
