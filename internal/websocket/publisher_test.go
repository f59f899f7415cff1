package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesBranchAndHeadOffice(t *testing.T) {
	hub := NewHub()
	teller := newMockClient("teller", 3)
	otherBranch := newMockClient("other", 8)
	auditor := newMockClient("auditor", HeadOfficeBranchID)
	hub.Register(teller)
	hub.Register(otherBranch)
	hub.Register(auditor)

	var publisher EventPublisher = hub
	publisher.Publish(3, AccountClosureFailed(map[string]interface{}{"accountId": 42, "rejected": true}))

	require.Len(t, teller.GetMessages(), 1)
	require.Len(t, auditor.GetMessages(), 1)
	assert.Empty(t, otherBranch.GetMessages())

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(teller.GetMessages()[0], &event))
	assert.Equal(t, "account.closure_failed", event["type"])
	assert.Equal(t, float64(3), event["branchId"])
}
