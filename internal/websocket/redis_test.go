package websocket

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisRelay_DeliverBroadcastsToBranch(t *testing.T) {
	hub := NewHub()
	branch := newMockClient("b", 2)
	other := newMockClient("o", 5)
	hub.Register(branch)
	hub.Register(other)

	relay := NewRedisRelay(nil, DefaultEventChannel, hub)

	event := AccountClosed(map[string]interface{}{"accountId": float64(7)})
	event.BranchID = 2
	data, _ := event.ToJSON()

	relay.deliver(data)

	assert.Len(t, branch.GetMessages(), 1)
	assert.Len(t, other.GetMessages(), 0)
}

func TestRedisRelay_DeliverDropsMalformed(t *testing.T) {
	hub := NewHub()
	client := newMockClient("c", 1)
	hub.Register(client)

	relay := NewRedisRelay(nil, DefaultEventChannel, hub)
	relay.deliver([]byte("{"))

	assert.Len(t, client.GetMessages(), 0)
}

func TestConnectRedis_InvalidURL(t *testing.T) {
	_, err := ConnectRedis(context.Background(), "redis://:bad@host:notaport/0")
	assert.Error(t, err)
}
