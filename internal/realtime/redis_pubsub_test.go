package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payloadFrom(t *testing.T, origin, event string, data string) []byte {
	t.Helper()
	body, err := json.Marshal(redisPayload{Origin: origin, Event: event, Data: json.RawMessage(data), At: 1})
	require.NoError(t, err)
	return body
}

func TestDecodeDropsOwnEcho(t *testing.T) {
	ps := &RedisPubSub{id: "inst-a"}
	_, _, ok := ps.decode(payloadFrom(t, "inst-a", "swipe_recorded", `{"v":1}`))
	assert.False(t, ok, "an instance must not re-deliver its own publish")
}

func TestDecodeDeliversOtherInstances(t *testing.T) {
	ps := &RedisPubSub{id: "inst-a"}

	// From a peer API instance.
	event, data, ok := ps.decode(payloadFrom(t, "inst-b", "participant_completed", `{"participant_id":"ann"}`))
	require.True(t, ok)
	assert.Equal(t, "participant_completed", event)
	assert.JSONEq(t, `{"participant_id":"ann"}`, string(data))

	// From the worker, which has its own instance id.
	event, _, ok = ps.decode(payloadFrom(t, "worker-1", "menu_ready", `{"candidate_id":"r1"}`))
	require.True(t, ok)
	assert.Equal(t, "menu_ready", event)
}

func TestDecodeDropsMalformedPayloads(t *testing.T) {
	ps := &RedisPubSub{id: "inst-a"}
	_, _, ok := ps.decode([]byte("not json"))
	assert.False(t, ok)
}

func TestInstanceIDsAreDistinct(t *testing.T) {
	a := NewRedisPubSub(nil, nil)
	b := NewRedisPubSub(nil, nil)
	assert.NotEmpty(t, a.id)
	assert.NotEqual(t, a.id, b.id)
}
