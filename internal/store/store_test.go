package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartlink/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testConversation(participants ...string) domain.Conversation {
	now := time.Now().UTC()
	return domain.Conversation{
		ID:                uuid.NewString(),
		Type:              domain.ConversationDirect,
		Participants:      participants,
		EncryptionEnabled: true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func testMessage(conversationID, senderID, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		ContentType:    domain.ContentText,
		Timestamp:      at,
		Status:         domain.StatusSent,
	}
}

func TestStore_ConversationRoundTrip(t *testing.T) {
	s := openTestStore(t)

	c := testConversation("alice", "bob")
	c.Name = "pair"
	require.NoError(t, s.CreateConversation(c))

	got, found, err := s.Conversation(c.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "pair", got.Name)
	assert.Equal(t, domain.ConversationDirect, got.Type)
	assert.Equal(t, []string{"alice", "bob"}, got.Participants)
	assert.True(t, got.EncryptionEnabled)
	assert.WithinDuration(t, c.CreatedAt, got.CreatedAt, time.Microsecond)
	assert.Nil(t, got.LastMessage)
}

func TestStore_ConversationNotFound(t *testing.T) {
	s := openTestStore(t)
	_, found, err := s.Conversation("missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_ConversationsForUser(t *testing.T) {
	s := openTestStore(t)

	older := testConversation("alice", "bob")
	older.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	newer := testConversation("alice", "carol")
	other := testConversation("bob", "carol")
	require.NoError(t, s.CreateConversation(older))
	require.NoError(t, s.CreateConversation(newer))
	require.NoError(t, s.CreateConversation(other))

	convs, err := s.ConversationsForUser("alice")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, newer.ID, convs[0].ID, "most recently updated first")
	assert.Equal(t, older.ID, convs[1].ID)

	convs, err = s.ConversationsForUser("nobody")
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestStore_UpdateParticipants(t *testing.T) {
	s := openTestStore(t)

	c := testConversation("alice", "bob")
	require.NoError(t, s.CreateConversation(c))
	require.NoError(t, s.UpdateParticipants(c.ID, []string{"alice", "bob", "carol"}))

	got, _, err := s.Conversation(c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, got.Participants)
	assert.True(t, got.UpdatedAt.After(c.UpdatedAt))

	err = s.UpdateParticipants("missing", []string{"x", "y"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_SetLastMessage(t *testing.T) {
	s := openTestStore(t)

	c := testConversation("alice", "bob")
	require.NoError(t, s.CreateConversation(c))

	m := testMessage(c.ID, "alice", "latest", time.Now().UTC())
	require.NoError(t, s.SetLastMessage(c.ID, m))

	got, _, err := s.Conversation(c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, m.ID, got.LastMessage.ID)
	assert.Equal(t, "latest", got.LastMessage.Content)

	err = s.SetLastMessage("missing", m)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_MessageRoundTrip(t *testing.T) {
	s := openTestStore(t)

	m := testMessage("c1", "alice", "hello", time.Now().UTC())
	m.Encrypted = true
	m.MediaURL = "https://cdn.example/img.png"
	require.NoError(t, s.SaveMessage(m))

	got, found, err := s.Message(m.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, domain.StatusSent, got.Status)
	assert.True(t, got.Encrypted)
	assert.Equal(t, m.MediaURL, got.MediaURL)
	assert.WithinDuration(t, m.Timestamp, got.Timestamp, time.Microsecond)
}

func TestStore_MessagesPagination(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		m := testMessage("c1", "alice", fmt.Sprintf("msg-%d", i), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, s.SaveMessage(m))
	}
	require.NoError(t, s.SaveMessage(testMessage("c2", "bob", "other", base)))

	// Latest page, ascending order.
	page, err := s.Messages("c1", 3, "")
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "msg-2", page[0].Content)
	assert.Equal(t, "msg-4", page[2].Content)

	// Page before the oldest of the previous page.
	page, err = s.Messages("c1", 3, page[0].ID)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "msg-0", page[0].Content)
	assert.Equal(t, "msg-1", page[1].Content)

	// Unknown boundary is ignored.
	page, err = s.Messages("c1", 0, "missing")
	require.NoError(t, err)
	assert.Len(t, page, 5)
}

func TestStore_SetMessageStatus(t *testing.T) {
	s := openTestStore(t)

	m := testMessage("c1", "alice", "hi", time.Now().UTC())
	require.NoError(t, s.SaveMessage(m))
	require.NoError(t, s.SetMessageStatus(m.ID, domain.StatusRead))

	got, _, err := s.Message(m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRead, got.Status)

	err = s.SetMessageStatus("missing", domain.StatusRead)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_MarkDelivered(t *testing.T) {
	s := openTestStore(t)

	now := time.Now().UTC()
	theirs := testMessage("c1", "alice", "one", now)
	mine := testMessage("c1", "bob", "two", now.Add(time.Second))
	alreadyRead := testMessage("c1", "alice", "three", now.Add(2*time.Second))
	alreadyRead.Status = domain.StatusRead
	for _, m := range []domain.Message{theirs, mine, alreadyRead} {
		require.NoError(t, s.SaveMessage(m))
	}

	n, err := s.MarkDelivered("c1", "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the other side's Sent messages move")

	got, _, _ := s.Message(theirs.ID)
	assert.Equal(t, domain.StatusDelivered, got.Status)
	got, _, _ = s.Message(mine.ID)
	assert.Equal(t, domain.StatusSent, got.Status, "own messages are untouched")
	got, _, _ = s.Message(alreadyRead.ID)
	assert.Equal(t, domain.StatusRead, got.Status, "Read never regresses")
}

func TestStore_MarkRead(t *testing.T) {
	s := openTestStore(t)

	now := time.Now().UTC()
	sent := testMessage("c1", "alice", "one", now)
	delivered := testMessage("c1", "alice", "two", now.Add(time.Second))
	delivered.Status = domain.StatusDelivered
	for _, m := range []domain.Message{sent, delivered} {
		require.NoError(t, s.SaveMessage(m))
	}

	n, err := s.MarkRead("c1", "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []string{sent.ID, delivered.ID} {
		got, _, _ := s.Message(id)
		assert.Equal(t, domain.StatusRead, got.Status)
	}

	n, err = s.MarkRead("c1", "bob")
	require.NoError(t, err)
	assert.Zero(t, n, "second pass finds nothing to move")
}

func TestStore_UnreadCount(t *testing.T) {
	s := openTestStore(t)

	c := testConversation("alice", "bob")
	require.NoError(t, s.CreateConversation(c))
	foreign := testConversation("carol", "dave")
	require.NoError(t, s.CreateConversation(foreign))

	now := time.Now().UTC()
	require.NoError(t, s.SaveMessage(testMessage(c.ID, "alice", "one", now)))
	require.NoError(t, s.SaveMessage(testMessage(c.ID, "bob", "mine", now)))
	read := testMessage(c.ID, "alice", "seen", now)
	read.Status = domain.StatusRead
	require.NoError(t, s.SaveMessage(read))
	require.NoError(t, s.SaveMessage(testMessage(foreign.ID, "carol", "elsewhere", now)))

	n, err := s.UnreadCount("bob")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.UnreadCount("nobody")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_EventRoundTrip(t *testing.T) {
	s := openTestStore(t)

	env := domain.NewEnvelope(domain.EnvelopeNewMessage, "alice")
	env.ConversationID = "c1"
	env.MessageID = "m1"
	env, err := env.WithData(domain.RecipientsPayload{Recipients: []string{"bob"}})
	require.NoError(t, err)

	e := domain.PendingEvent{
		ID:             uuid.NewString(),
		ConversationID: "c1",
		Envelope:       env,
		Timestamp:      time.Now().UTC(),
	}
	require.NoError(t, s.SaveEvent(e))

	events, err := s.EventsForConversations([]string{"c1"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, e.ID, events[0].ID)
	assert.Equal(t, domain.EnvelopeNewMessage, events[0].Envelope.Type)
	assert.Equal(t, "m1", events[0].Envelope.MessageID)

	var p domain.RecipientsPayload
	require.NoError(t, events[0].Envelope.DecodeData(&p))
	assert.Equal(t, []string{"bob"}, p.Recipients)
}

func TestStore_EventsOrderingAndScope(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().UTC()
	for i, conv := range []string{"c1", "c2", "c1"} {
		env := domain.NewEnvelope(domain.EnvelopeNewMessage, "alice")
		env.ConversationID = conv
		require.NoError(t, s.SaveEvent(domain.PendingEvent{
			ID:             fmt.Sprintf("e%d", i),
			ConversationID: conv,
			Envelope:       env,
			Timestamp:      base.Add(time.Duration(i) * time.Second),
		}))
	}

	events, err := s.EventsForConversations([]string{"c1"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e0", events[0].ID, "oldest first")
	assert.Equal(t, "e2", events[1].ID)

	events, err = s.EventsForConversations(nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStore_DeleteEvents(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 3; i++ {
		env := domain.NewEnvelope(domain.EnvelopeNewMessage, "alice")
		env.ConversationID = "c1"
		require.NoError(t, s.SaveEvent(domain.PendingEvent{
			ID:             fmt.Sprintf("e%d", i),
			ConversationID: "c1",
			Envelope:       env,
			Timestamp:      time.Now().UTC(),
		}))
	}

	require.NoError(t, s.DeleteEvents([]string{"e0", "e2"}))
	events, err := s.EventsForConversations([]string{"c1"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].ID)

	assert.NoError(t, s.DeleteEvents(nil))
}

func TestStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, nil)
	require.NoError(t, err)

	c := testConversation("alice", "bob")
	require.NoError(t, s.CreateConversation(c))
	require.NoError(t, s.Close())

	s, err = Open(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	_, found, err := s.Conversation(c.ID)
	require.NoError(t, err)
	assert.True(t, found)
}
