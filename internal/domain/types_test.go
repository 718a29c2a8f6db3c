package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageStatus_After(t *testing.T) {
	assert.True(t, StatusDelivered.After(StatusSent))
	assert.True(t, StatusRead.After(StatusDelivered))
	assert.True(t, StatusRead.After(StatusSent))

	assert.False(t, StatusSent.After(StatusSent))
	assert.False(t, StatusSent.After(StatusDelivered))
	assert.False(t, StatusDelivered.After(StatusRead))

	assert.False(t, MessageStatus("bogus").After(StatusSent))
}

func TestConversation_HasParticipant(t *testing.T) {
	c := Conversation{Participants: []string{"alice", "bob"}}
	assert.True(t, c.HasParticipant("alice"))
	assert.False(t, c.HasParticipant("mallory"))
	assert.False(t, Conversation{}.HasParticipant("alice"))
}
