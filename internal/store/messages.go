package store

import (
	clover "github.com/ostafen/clover/v2"

	"smartlink/internal/domain"
)

// SaveMessage persists a new message document.
func (s *Store) SaveMessage(m domain.Message) error {
	if _, err := s.db.InsertOne(collMessages, messageDoc(m)); err != nil {
		return domain.DatabaseErrorf("save message %s: %v", m.ID, err)
	}
	return nil
}

// Message looks up a message by id. The second return value reports whether
// it exists.
func (s *Store) Message(id string) (domain.Message, bool, error) {
	doc, err := s.db.FindFirst(byID(collMessages, id))
	if err != nil {
		return domain.Message{}, false, domain.DatabaseErrorf("load message %s: %v", id, err)
	}
	if doc == nil {
		return domain.Message{}, false, nil
	}
	return docToMessage(doc), true, nil
}

// Messages returns up to limit messages of the conversation in ascending
// timestamp order. A non-empty beforeID bounds the page to messages strictly
// older than the named message; an unknown beforeID is ignored. limit <= 0
// means no limit.
func (s *Store) Messages(conversationID string, limit int, beforeID string) ([]domain.Message, error) {
	criteria := clover.Field("conversationId").Eq(conversationID)
	if beforeID != "" {
		before, found, err := s.Message(beforeID)
		if err != nil {
			return nil, err
		}
		if found {
			criteria = criteria.And(clover.Field("timestamp").Lt(before.Timestamp.UnixNano()))
		}
	}

	// Newest-first with the limit, then reversed, so the page holds the
	// messages closest to the boundary rather than the oldest in history.
	q := clover.NewQuery(collMessages).
		Where(criteria).
		Sort(clover.SortOption{Field: "timestamp", Direction: -1})
	if limit > 0 {
		q = q.Limit(limit)
	}
	docs, err := s.db.FindAll(q)
	if err != nil {
		return nil, domain.DatabaseErrorf("list messages of %s: %v", conversationID, err)
	}

	out := make([]domain.Message, len(docs))
	for i, doc := range docs {
		out[len(docs)-1-i] = docToMessage(doc)
	}
	return out, nil
}

// SetMessageStatus overwrites the status of a single message.
func (s *Store) SetMessageStatus(id string, status domain.MessageStatus) error {
	doc, err := s.db.FindFirst(byID(collMessages, id))
	if err != nil {
		return domain.DatabaseErrorf("load message %s: %v", id, err)
	}
	if doc == nil {
		return domain.NotFoundErrorf("message %s", id)
	}
	updates := map[string]interface{}{"status": string(status)}
	if err := s.db.Update(byID(collMessages, id), updates); err != nil {
		return domain.DatabaseErrorf("set status of message %s: %v", id, err)
	}
	return nil
}

// MarkDelivered moves every Sent message of the conversation not authored by
// userID to Delivered and reports how many changed.
func (s *Store) MarkDelivered(conversationID, userID string) (int, error) {
	criteria := clover.Field("conversationId").Eq(conversationID).
		And(clover.Field("senderId").Neq(userID)).
		And(clover.Field("status").Eq(string(domain.StatusSent)))
	return s.bulkStatus(criteria, domain.StatusDelivered, conversationID)
}

// MarkRead moves every Sent or Delivered message of the conversation not
// authored by userID to Read and reports how many changed.
func (s *Store) MarkRead(conversationID, userID string) (int, error) {
	criteria := clover.Field("conversationId").Eq(conversationID).
		And(clover.Field("senderId").Neq(userID)).
		And(clover.Field("status").In(string(domain.StatusSent), string(domain.StatusDelivered)))
	return s.bulkStatus(criteria, domain.StatusRead, conversationID)
}

func (s *Store) bulkStatus(criteria clover.Criteria, status domain.MessageStatus, conversationID string) (int, error) {
	q := clover.NewQuery(collMessages).Where(criteria)
	n, err := s.db.Count(q)
	if err != nil {
		return 0, domain.DatabaseErrorf("count messages of %s: %v", conversationID, err)
	}
	if n == 0 {
		return 0, nil
	}
	if err := s.db.Update(q, map[string]interface{}{"status": string(status)}); err != nil {
		return 0, domain.DatabaseErrorf("bulk update messages of %s: %v", conversationID, err)
	}
	return n, nil
}

// UnreadCount counts messages addressed to the user that are not yet Read,
// across all of the user's conversations.
func (s *Store) UnreadCount(userID string) (int, error) {
	convs, err := s.ConversationsForUser(userID)
	if err != nil {
		return 0, err
	}
	if len(convs) == 0 {
		return 0, nil
	}
	ids := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}

	q := clover.NewQuery(collMessages).Where(
		clover.Field("conversationId").In(anyValues(ids)...).
			And(clover.Field("senderId").Neq(userID)).
			And(clover.Field("status").Neq(string(domain.StatusRead))))
	n, err := s.db.Count(q)
	if err != nil {
		return 0, domain.DatabaseErrorf("count unread messages for %s: %v", userID, err)
	}
	return n, nil
}
