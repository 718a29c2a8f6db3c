package offline

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartlink/internal/domain"
)

type fakeEventStore struct {
	events []domain.PendingEvent
	fail   error
}

func (s *fakeEventStore) SaveEvent(e domain.PendingEvent) error {
	if s.fail != nil {
		return s.fail
	}
	s.events = append(s.events, e)
	return nil
}

func (s *fakeEventStore) EventsForConversations(conversationIDs []string) ([]domain.PendingEvent, error) {
	wanted := make(map[string]struct{}, len(conversationIDs))
	for _, id := range conversationIDs {
		wanted[id] = struct{}{}
	}
	var out []domain.PendingEvent
	for _, e := range s.events {
		if _, ok := wanted[e.ConversationID]; ok {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *fakeEventStore) DeleteEvents(ids []string) error {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := s.events[:0]
	for _, e := range s.events {
		if _, ok := drop[e.ID]; !ok {
			kept = append(kept, e)
		}
	}
	s.events = kept
	return nil
}

type fakeConversationStore struct {
	byUser map[string][]domain.Conversation
}

func (s *fakeConversationStore) CreateConversation(domain.Conversation) error { return nil }

func (s *fakeConversationStore) Conversation(string) (domain.Conversation, bool, error) {
	return domain.Conversation{}, false, nil
}

func (s *fakeConversationStore) ConversationsForUser(userID string) ([]domain.Conversation, error) {
	return s.byUser[userID], nil
}

func (s *fakeConversationStore) UpdateParticipants(string, []string) error { return nil }

func (s *fakeConversationStore) SetLastMessage(string, domain.Message) error { return nil }

type fakeRegistry struct {
	online    map[string]bool
	delivered map[string][]domain.Envelope
	failAfter int
	sent      int
}

func newFakeRegistry(online ...string) *fakeRegistry {
	r := &fakeRegistry{
		online:    make(map[string]bool),
		delivered: make(map[string][]domain.Envelope),
		failAfter: -1,
	}
	for _, u := range online {
		r.online[u] = true
	}
	return r
}

func (r *fakeRegistry) Add(string, domain.DeliveryHandle) {}

func (r *fakeRegistry) Remove(string, domain.DeliveryHandle) {}
func (r *fakeRegistry) Send(userID string, env domain.Envelope) bool {
	if !r.online[userID] {
		return false
	}
	if r.failAfter >= 0 && r.sent >= r.failAfter {
		return false
	}
	r.sent++
	r.delivered[userID] = append(r.delivered[userID], env)
	return true
}
func (r *fakeRegistry) Online() []string            { return nil }
func (r *fakeRegistry) IsOnline(userID string) bool { return r.online[userID] }

func queueEnvelope(sender, conversation string) domain.Envelope {
	env := domain.NewEnvelope(domain.EnvelopeNewMessage, sender)
	env.ConversationID = conversation
	return env
}

func TestQueue_StoreAssignsIDAndTimestamp(t *testing.T) {
	events := &fakeEventStore{}
	q := NewQueue(events, &fakeConversationStore{}, nil)

	require.NoError(t, q.Store(queueEnvelope("alice", "c1")))
	require.Len(t, events.events, 1)

	e := events.events[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "c1", e.ConversationID)
	assert.Equal(t, "alice", e.Envelope.SenderID)
	assert.WithinDuration(t, time.Now(), e.Timestamp, 5*time.Second)
}

func TestQueue_StoreRejectsMissingConversation(t *testing.T) {
	q := NewQueue(&fakeEventStore{}, &fakeConversationStore{}, nil)
	err := q.Store(domain.NewEnvelope(domain.EnvelopeNewMessage, "alice"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestQueue_PendingForScopesByMembership(t *testing.T) {
	events := &fakeEventStore{}
	convs := &fakeConversationStore{byUser: map[string][]domain.Conversation{
		"bob": {{ID: "c1"}},
	}}
	q := NewQueue(events, convs, nil)

	require.NoError(t, q.Store(queueEnvelope("alice", "c1")))
	require.NoError(t, q.Store(queueEnvelope("alice", "c2")))

	pending, err := q.PendingFor("bob")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "c1", pending[0].ConversationID)

	pending, err = q.PendingFor("stranger")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestQueue_ReplayDeliversOldestFirstAndDeletes(t *testing.T) {
	events := &fakeEventStore{}
	convs := &fakeConversationStore{byUser: map[string][]domain.Conversation{
		"bob": {{ID: "c1"}},
	}}
	q := NewQueue(events, convs, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Store(queueEnvelope("alice", "c1")))
		events.events[i].Timestamp = events.events[i].Timestamp.Add(time.Duration(i) * time.Second)
	}

	reg := newFakeRegistry("bob")
	n, err := q.Replay("bob", reg)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, reg.delivered["bob"], 3)
	assert.Empty(t, events.events, "confirmed events are deleted")

	// A second replay finds nothing: delivery happens exactly once.
	n, err = q.Replay("bob", reg)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueue_ReplaySkipsOwnEvents(t *testing.T) {
	events := &fakeEventStore{}
	convs := &fakeConversationStore{byUser: map[string][]domain.Conversation{
		"alice": {{ID: "c1"}},
	}}
	q := NewQueue(events, convs, nil)

	require.NoError(t, q.Store(queueEnvelope("alice", "c1")))

	reg := newFakeRegistry("alice")
	n, err := q.Replay("alice", reg)
	require.NoError(t, err)
	assert.Zero(t, n, "a user never receives their own queued events")
	assert.Len(t, events.events, 1, "own events stay queued for the other participants")
}

func TestQueue_ReplayBySenderKeepsEventForRecipients(t *testing.T) {
	events := &fakeEventStore{}
	convs := &fakeConversationStore{byUser: map[string][]domain.Conversation{
		"alice": {{ID: "c1"}},
		"bob":   {{ID: "c1"}},
	}}
	q := NewQueue(events, convs, nil)

	require.NoError(t, q.Store(queueEnvelope("alice", "c1")))

	// The sender reconnecting first must not destroy the backlog.
	n, err := q.Replay("alice", newFakeRegistry("alice"))
	require.NoError(t, err)
	assert.Zero(t, n)
	require.Len(t, events.events, 1)

	reg := newFakeRegistry("bob")
	n, err = q.Replay("bob", reg)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the intended recipient still receives the event")
	assert.Len(t, reg.delivered["bob"], 1)
	assert.Empty(t, events.events)
}

func TestQueue_ReplayStopsOnDeliveryFailure(t *testing.T) {
	events := &fakeEventStore{}
	convs := &fakeConversationStore{byUser: map[string][]domain.Conversation{
		"bob": {{ID: "c1"}},
	}}
	q := NewQueue(events, convs, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Store(queueEnvelope("alice", "c1")))
		events.events[i].Timestamp = events.events[i].Timestamp.Add(time.Duration(i) * time.Second)
	}

	reg := newFakeRegistry("bob")
	reg.failAfter = 1
	n, err := q.Replay("bob", reg)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, events.events, 2, "undelivered events stay queued")
}

func TestQueue_DeleteEmptyIsNoOp(t *testing.T) {
	q := NewQueue(&fakeEventStore{}, &fakeConversationStore{}, nil)
	assert.NoError(t, q.Delete(nil))
}
