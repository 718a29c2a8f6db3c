package store

import (
	"sort"
	"time"

	clover "github.com/ostafen/clover/v2"

	"smartlink/internal/domain"
)

// CreateConversation persists a new conversation document.
func (s *Store) CreateConversation(c domain.Conversation) error {
	if _, err := s.db.InsertOne(collConversations, conversationDoc(c)); err != nil {
		return domain.DatabaseErrorf("create conversation %s: %v", c.ID, err)
	}
	return nil
}

// Conversation looks up a conversation by id. The second return value reports
// whether it exists.
func (s *Store) Conversation(id string) (domain.Conversation, bool, error) {
	doc, err := s.db.FindFirst(byID(collConversations, id))
	if err != nil {
		return domain.Conversation{}, false, domain.DatabaseErrorf("load conversation %s: %v", id, err)
	}
	if doc == nil {
		return domain.Conversation{}, false, nil
	}
	return docToConversation(doc), true, nil
}

// ConversationsForUser returns every conversation the user participates in,
// most recently updated first.
func (s *Store) ConversationsForUser(userID string) ([]domain.Conversation, error) {
	q := clover.NewQuery(collConversations).
		Where(clover.Field("participants").Contains(userID))
	docs, err := s.db.FindAll(q)
	if err != nil {
		return nil, domain.DatabaseErrorf("list conversations for %s: %v", userID, err)
	}
	out := make([]domain.Conversation, 0, len(docs))
	for _, doc := range docs {
		out = append(out, docToConversation(doc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// UpdateParticipants replaces the participant list and bumps updatedAt.
func (s *Store) UpdateParticipants(id string, participants []string) error {
	if err := s.requireConversation(id); err != nil {
		return err
	}
	updates := map[string]interface{}{
		"participants": participants,
		"updatedAt":    time.Now().UTC().UnixNano(),
	}
	if err := s.db.Update(byID(collConversations, id), updates); err != nil {
		return domain.DatabaseErrorf("update participants of %s: %v", id, err)
	}
	return nil
}

// SetLastMessage records the conversation's latest message preview and bumps
// updatedAt so the conversation sorts to the top of its participants' lists.
func (s *Store) SetLastMessage(id string, m domain.Message) error {
	if err := s.requireConversation(id); err != nil {
		return err
	}
	updates := map[string]interface{}{
		"lastMessage": messageToMap(m),
		"updatedAt":   time.Now().UTC().UnixNano(),
	}
	if err := s.db.Update(byID(collConversations, id), updates); err != nil {
		return domain.DatabaseErrorf("set last message of %s: %v", id, err)
	}
	return nil
}

func (s *Store) requireConversation(id string) error {
	doc, err := s.db.FindFirst(byID(collConversations, id))
	if err != nil {
		return domain.DatabaseErrorf("load conversation %s: %v", id, err)
	}
	if doc == nil {
		return domain.NotFoundErrorf("conversation %s", id)
	}
	return nil
}
