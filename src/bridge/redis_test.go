package bridge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsegrid/realtime/src/message"
)

// mockDeliverer records messages forwarded from the bridge.
type mockDeliverer struct {
	received []message.Message
}

func (m *mockDeliverer) DeliverLocal(msg message.Message) {
	m.received = append(m.received, msg)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	msg := message.Message{
		Type:      message.TypeTopic,
		Payload:   map[string]any{"user": "alice", "count": float64(5)},
		Target:    "presence",
		Timestamp: time.Now().Truncate(time.Millisecond).UTC(),
	}
	env := envelope{InstanceID: "node-1", Message: msg}

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var out envelope
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "node-1", out.InstanceID)
	assert.Equal(t, message.TypeTopic, out.Message.Type)
	assert.Equal(t, "presence", out.Message.Target)
	payload, ok := out.Message.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", payload["user"])
	assert.Equal(t, float64(5), payload["count"])
}

func TestDefaultRedisConfig(t *testing.T) {
	cfg := DefaultRedisConfig()
	assert.Equal(t, "localhost:6379", cfg.Addr)
	assert.Empty(t, cfg.Password)
	assert.Equal(t, 0, cfg.DB)
	assert.Equal(t, "pulsegrid:rt:", cfg.Prefix)
}

func TestRedisConfigFromEnv(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.example.com:6380")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_RT_PREFIX", "test:rt:")

	cfg := RedisConfigFromEnv()
	assert.Equal(t, "redis.example.com:6380", cfg.Addr)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, 3, cfg.DB)
	assert.Equal(t, "test:rt:", cfg.Prefix)
}

func TestRedisConfigFromEnvInvalidDB(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := RedisConfigFromEnv()
	assert.Equal(t, 0, cfg.DB) // falls back to default
}

func TestBridgeUnavailableBeforeStart(t *testing.T) {
	rb := NewRedisBridge(DefaultRedisConfig(), &mockDeliverer{}, zerolog.Nop())
	assert.False(t, rb.Available())
}

func TestBridgeInstanceIDsAreUnique(t *testing.T) {
	target := &mockDeliverer{}
	b1 := NewRedisBridge(DefaultRedisConfig(), target, zerolog.Nop())
	b2 := NewRedisBridge(DefaultRedisConfig(), target, zerolog.Nop())
	assert.NotEqual(t, b1.instanceID, b2.instanceID)
}

func TestSelfOriginatedMessagesAreSkipped(t *testing.T) {
	target := &mockDeliverer{}
	rb := NewRedisBridge(DefaultRedisConfig(), target, zerolog.Nop())

	own, err := json.Marshal(envelope{InstanceID: rb.instanceID, Message: message.Broadcast("self")})
	require.NoError(t, err)
	foreign, err := json.Marshal(envelope{InstanceID: "other-node", Message: message.Broadcast("them")})
	require.NoError(t, err)

	rb.handleRelayed(redisMessage(string(own)))
	rb.handleRelayed(redisMessage(string(foreign)))

	require.Len(t, target.received, 1)
	assert.Equal(t, "them", target.received[0].Payload)
}

func TestMalformedRelayedMessageIsDropped(t *testing.T) {
	target := &mockDeliverer{}
	rb := NewRedisBridge(DefaultRedisConfig(), target, zerolog.Nop())

	rb.handleRelayed(redisMessage("{not json"))
	assert.Empty(t, target.received)
}

func redisMessage(payload string) *redis.Message {
	return &redis.Message{Payload: payload}
}
