package offline

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
)

// Queue persists undeliverable routing events and replays them when their
// audience reconnects. It implements domain.EventQueue.
type Queue struct {
	events        domain.EventStore
	conversations domain.ConversationStore
	log           *logrus.Logger
}

// NewQueue wires the queue to its backing stores. A nil logger falls back to
// the logrus standard logger.
func NewQueue(events domain.EventStore, conversations domain.ConversationStore, log *logrus.Logger) *Queue {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Queue{events: events, conversations: conversations, log: log}
}

// Store persists the envelope as a pending event. The envelope must carry a
// conversation id; replay scopes events by conversation membership.
func (q *Queue) Store(env domain.Envelope) error {
	if env.ConversationID == "" {
		return domain.ValidationErrorf("cannot queue %s event without a conversation id", env.Type)
	}
	e := domain.PendingEvent{
		ID:             uuid.NewString(),
		ConversationID: env.ConversationID,
		Envelope:       env,
		Timestamp:      time.Now().UTC(),
	}
	if err := q.events.SaveEvent(e); err != nil {
		return err
	}
	q.log.WithFields(logrus.Fields{
		"event":        e.ID,
		"type":         env.Type,
		"conversation": env.ConversationID,
	}).Debug("event queued for offline delivery")
	return nil
}

// PendingFor returns the queued events of every conversation the user belongs
// to, oldest first.
func (q *Queue) PendingFor(userID string) ([]domain.PendingEvent, error) {
	convs, err := q.conversations.ConversationsForUser(userID)
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	return q.events.EventsForConversations(ids)
}

// Delete removes the named events from the backlog.
func (q *Queue) Delete(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return q.events.DeleteEvents(ids)
}

// Replay drains the user's backlog through the registry. Events the user
// originated are skipped and stay queued for the other participants; only
// events the registry confirms delivered are deleted, so an event that fails
// mid-replay stays queued for the next reconnect. It returns how many events
// were delivered.
func (q *Queue) Replay(userID string, reg domain.ConnectionRegistry) (int, error) {
	pending, err := q.PendingFor(userID)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	delivered := 0
	done := make([]string, 0, len(pending))
	for _, e := range pending {
		if e.Envelope.SenderID == userID {
			continue
		}
		if !reg.Send(userID, e.Envelope) {
			break
		}
		delivered++
		done = append(done, e.ID)
	}

	if err := q.Delete(done); err != nil {
		return delivered, err
	}
	if delivered > 0 {
		q.log.WithFields(logrus.Fields{
			"user":  userID,
			"count": delivered,
		}).Info("replayed queued events")
	}
	return delivered, nil
}
