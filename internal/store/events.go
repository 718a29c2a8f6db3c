package store

import (
	clover "github.com/ostafen/clover/v2"
	"github.com/pkg/errors"

	"smartlink/internal/domain"
)

// SaveEvent persists a pending routing event. The envelope is stored as its
// wire encoding, so queued frames replay byte-compatible with live delivery.
func (s *Store) SaveEvent(e domain.PendingEvent) error {
	raw, err := e.Envelope.Encode()
	if err != nil {
		return errors.Wrapf(err, "encode envelope of event %s", e.ID)
	}
	doc := clover.NewDocument()
	doc.Set("id", e.ID)
	doc.Set("conversationId", e.ConversationID)
	doc.Set("envelope", string(raw))
	doc.Set("timestamp", e.Timestamp.UnixNano())
	if _, err := s.db.InsertOne(collEvents, doc); err != nil {
		return domain.DatabaseErrorf("save event %s: %v", e.ID, err)
	}
	return nil
}

// EventsForConversations returns queued events of the given conversations in
// ascending timestamp order. Events whose stored envelope no longer decodes
// are skipped.
func (s *Store) EventsForConversations(conversationIDs []string) ([]domain.PendingEvent, error) {
	if len(conversationIDs) == 0 {
		return nil, nil
	}
	q := clover.NewQuery(collEvents).
		Where(clover.Field("conversationId").In(anyValues(conversationIDs)...)).
		Sort(clover.SortOption{Field: "timestamp", Direction: 1})
	docs, err := s.db.FindAll(q)
	if err != nil {
		return nil, domain.DatabaseErrorf("list events: %v", err)
	}

	out := make([]domain.PendingEvent, 0, len(docs))
	for _, doc := range docs {
		id := asString(doc.Get("id"))
		env, err := domain.DecodeEnvelope([]byte(asString(doc.Get("envelope"))))
		if err != nil {
			s.log.WithField("event", id).WithError(err).Warn("dropping undecodable queued event")
			continue
		}
		out = append(out, domain.PendingEvent{
			ID:             id,
			ConversationID: asString(doc.Get("conversationId")),
			Envelope:       env,
			Timestamp:      asTime(doc.Get("timestamp")),
		})
	}
	return out, nil
}

// DeleteEvents removes the named events from the backlog.
func (s *Store) DeleteEvents(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q := clover.NewQuery(collEvents).Where(clover.Field("id").In(anyValues(ids)...))
	if err := s.db.Delete(q); err != nil {
		return domain.DatabaseErrorf("delete %d events: %v", len(ids), err)
	}
	return nil
}
