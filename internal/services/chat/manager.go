package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
	"smartlink/internal/keys"
)

// Notifier fans a routing envelope out to its audience. The relay router
// satisfies this; a nil notifier disables change announcements.
type Notifier interface {
	Route(env domain.Envelope)
}

// Manager owns the conversation and message workflows.
type Manager struct {
	convs    domain.ConversationStore
	msgs     domain.MessageStore
	keyring  *keys.Keyring
	registry domain.ConnectionRegistry
	notify   Notifier
	log      *logrus.Logger
}

// NewManager wires a chat manager. notify may be nil; a nil logger falls back
// to the logrus standard logger.
func NewManager(convs domain.ConversationStore, msgs domain.MessageStore, keyring *keys.Keyring,
	reg domain.ConnectionRegistry, notify Notifier, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		convs:    convs,
		msgs:     msgs,
		keyring:  keyring,
		registry: reg,
		notify:   notify,
		log:      log,
	}
}

// CreateConversation validates and persists a new conversation. Encrypted
// conversations get pairwise channels established for every participant pair.
func (m *Manager) CreateConversation(nc domain.NewConversation) (domain.Conversation, error) {
	participants := dedupe(nc.Participants)
	if len(participants) < 2 {
		return domain.Conversation{}, domain.ValidationErrorf("conversation needs at least 2 distinct participants, got %d", len(participants))
	}
	if nc.Type == "" {
		nc.Type = domain.ConversationDirect
	}
	if nc.Type == domain.ConversationDirect && len(participants) != 2 {
		return domain.Conversation{}, domain.ValidationErrorf("direct conversation needs exactly 2 distinct participants, got %d", len(participants))
	}

	now := time.Now().UTC()
	conv := domain.Conversation{
		ID:                uuid.NewString(),
		Name:              nc.Name,
		Type:              nc.Type,
		Participants:      participants,
		EncryptionEnabled: nc.EncryptionEnabled,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := m.convs.CreateConversation(conv); err != nil {
		return domain.Conversation{}, err
	}
	if conv.EncryptionEnabled {
		if err := m.keyring.InitializeConversation(conv.ID, conv.Participants); err != nil {
			return domain.Conversation{}, err
		}
	}
	m.log.WithFields(logrus.Fields{
		"conversation": conv.ID,
		"type":         conv.Type,
		"participants": len(conv.Participants),
		"encrypted":    conv.EncryptionEnabled,
	}).Info("conversation created")
	return conv, nil
}

// CreateGroupChat creates a group conversation. The creator is always a
// participant, listed or not.
func (m *Manager) CreateGroupChat(creatorID, name string, participants []string, encrypted bool) (domain.Conversation, error) {
	all := append([]string{creatorID}, participants...)
	return m.CreateConversation(domain.NewConversation{
		Name:              name,
		Type:              domain.ConversationGroup,
		Participants:      all,
		EncryptionEnabled: encrypted,
	})
}

// Conversation loads a conversation the requester participates in.
func (m *Manager) Conversation(id, requesterID string) (domain.Conversation, error) {
	conv, err := m.memberConversation(id, requesterID)
	if err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

// ConversationsForUser lists the user's conversations, most recently updated
// first.
func (m *Manager) ConversationsForUser(userID string) ([]domain.Conversation, error) {
	return m.convs.ConversationsForUser(userID)
}

// SendMessage validates, encrypts when the conversation requires it, and
// persists a new message. The conversation's last-message pointer is updated
// so participant lists stay sorted by activity.
func (m *Manager) SendMessage(nm domain.NewMessage) (domain.Message, error) {
	conv, err := m.memberConversation(nm.ConversationID, nm.SenderID)
	if err != nil {
		return domain.Message{}, err
	}
	if nm.Content == "" && nm.MediaURL == "" {
		return domain.Message{}, domain.ValidationErrorf("message needs content or media")
	}
	if nm.ContentType == "" {
		nm.ContentType = domain.ContentText
	}

	msg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       nm.SenderID,
		Content:        nm.Content,
		ContentType:    nm.ContentType,
		Timestamp:      time.Now().UTC(),
		Status:         domain.StatusSent,
		MediaURL:       nm.MediaURL,
	}

	if conv.EncryptionEnabled && msg.Content != "" {
		sealed, err := m.encryptForSender(conv, nm.SenderID, msg.Content)
		if err != nil {
			return domain.Message{}, err
		}
		msg.Content = sealed
		msg.Encrypted = true
	}

	if err := m.msgs.SaveMessage(msg); err != nil {
		return domain.Message{}, err
	}
	if err := m.convs.SetLastMessage(conv.ID, msg); err != nil {
		m.log.WithError(err).WithField("conversation", conv.ID).Warn("failed to update last message pointer")
	}
	return msg, nil
}

// encryptForSender seals the content with the sender's session secret,
// re-establishing the conversation's channels once if no secret exists yet.
func (m *Manager) encryptForSender(conv domain.Conversation, senderID, content string) (string, error) {
	sealed, err := m.keyring.EncryptContent(conv.ID, senderID, content)
	if err == nil {
		return sealed, nil
	}
	if initErr := m.keyring.InitializeConversation(conv.ID, conv.Participants); initErr != nil {
		return "", initErr
	}
	return m.keyring.EncryptContent(conv.ID, senderID, content)
}

// Messages returns a page of the conversation's history in ascending
// timestamp order, decrypted for the requesting reader. A message that fails
// to decrypt keeps its sealed content and is flagged DecryptionFailed; one
// bad message never hides the rest.
func (m *Manager) Messages(conversationID, requesterID string, limit int, beforeID string) ([]domain.Message, error) {
	conv, err := m.memberConversation(conversationID, requesterID)
	if err != nil {
		return nil, err
	}
	msgs, err := m.msgs.Messages(conv.ID, limit, beforeID)
	if err != nil {
		return nil, err
	}
	for i, msg := range msgs {
		if !msg.Encrypted {
			continue
		}
		plain, err := m.keyring.DecryptContent(conv.ID, requesterID, msg.Content)
		if err != nil {
			m.log.WithError(err).WithFields(logrus.Fields{
				"message": msg.ID,
				"reader":  requesterID,
			}).Warn("failed to decrypt message for reader")
			msgs[i].DecryptionFailed = true
			continue
		}
		msgs[i].Content = plain
		msgs[i].Encrypted = false
	}
	return msgs, nil
}

// UpdateMessageStatus applies a delivery-status transition. Statuses only
// move forward; a stale or duplicate receipt is a no-op. The sender cannot
// mark their own message Read.
func (m *Manager) UpdateMessageStatus(messageID, actorID string, status domain.MessageStatus) (domain.Message, error) {
	msg, found, err := m.msgs.Message(messageID)
	if err != nil {
		return domain.Message{}, err
	}
	if !found {
		return domain.Message{}, domain.NotFoundErrorf("message %s", messageID)
	}
	if _, err := m.memberConversation(msg.ConversationID, actorID); err != nil {
		return domain.Message{}, err
	}
	if status == domain.StatusRead && actorID == msg.SenderID {
		return domain.Message{}, domain.ValidationErrorf("sender cannot mark own message %s as read", messageID)
	}
	if !status.After(msg.Status) {
		return msg, nil
	}
	if err := m.msgs.SetMessageStatus(messageID, status); err != nil {
		return domain.Message{}, err
	}
	msg.Status = status
	return msg, nil
}

// MarkConversationDelivered bulk-moves the other side's Sent messages to
// Delivered and reports how many changed.
func (m *Manager) MarkConversationDelivered(conversationID, userID string) (int, error) {
	if _, err := m.memberConversation(conversationID, userID); err != nil {
		return 0, err
	}
	return m.msgs.MarkDelivered(conversationID, userID)
}

// MarkConversationRead bulk-moves the other side's unread messages to Read
// and reports how many changed.
func (m *Manager) MarkConversationRead(conversationID, userID string) (int, error) {
	if _, err := m.memberConversation(conversationID, userID); err != nil {
		return 0, err
	}
	return m.msgs.MarkRead(conversationID, userID)
}

// UnreadCount counts unread messages addressed to the user across all their
// conversations.
func (m *Manager) UnreadCount(userID string) (int, error) {
	return m.msgs.UnreadCount(userID)
}

// AddGroupMember adds a user to a group conversation, establishes their
// encryption channels, and announces the change to the group.
func (m *Manager) AddGroupMember(conversationID, actorID, newMember string) (domain.Conversation, error) {
	conv, err := m.memberConversation(conversationID, actorID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if conv.Type != domain.ConversationGroup {
		return domain.Conversation{}, domain.ValidationErrorf("conversation %s is not a group", conversationID)
	}
	if conv.HasParticipant(newMember) {
		return domain.Conversation{}, domain.ValidationErrorf("user %s is already a participant", newMember)
	}

	existing := conv.Participants
	conv.Participants = append(append([]string{}, existing...), newMember)
	if err := m.convs.UpdateParticipants(conv.ID, conv.Participants); err != nil {
		return domain.Conversation{}, err
	}
	if conv.EncryptionEnabled {
		if err := m.keyring.AddMember(conv.ID, newMember, existing); err != nil {
			return domain.Conversation{}, err
		}
	}
	m.announceMembership(domain.EnvelopeGroupMemberAdded, conv, actorID)
	return conv, nil
}

// RemoveGroupMember removes a user from a group conversation and drops their
// session secrets. Remaining members keep theirs.
func (m *Manager) RemoveGroupMember(conversationID, actorID, member string) (domain.Conversation, error) {
	conv, err := m.memberConversation(conversationID, actorID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if conv.Type != domain.ConversationGroup {
		return domain.Conversation{}, domain.ValidationErrorf("conversation %s is not a group", conversationID)
	}
	if !conv.HasParticipant(member) {
		return domain.Conversation{}, domain.NotFoundErrorf("user %s in conversation %s", member, conversationID)
	}

	remaining := make([]string, 0, len(conv.Participants)-1)
	for _, p := range conv.Participants {
		if p != member {
			remaining = append(remaining, p)
		}
	}
	if err := m.convs.UpdateParticipants(conv.ID, remaining); err != nil {
		return domain.Conversation{}, err
	}
	conv.Participants = remaining
	if conv.EncryptionEnabled {
		m.keyring.RemoveMember(conv.ID, member)
	}
	m.announceMembership(domain.EnvelopeGroupMemberRemoved, conv, actorID)
	return conv, nil
}

// OnlineParticipants returns the conversation's currently connected
// participants.
func (m *Manager) OnlineParticipants(conversationID, requesterID string) ([]string, error) {
	conv, err := m.memberConversation(conversationID, requesterID)
	if err != nil {
		return nil, err
	}
	online := make([]string, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		if m.registry.IsOnline(p) {
			online = append(online, p)
		}
	}
	return online, nil
}

// memberConversation loads a conversation and verifies the actor belongs to
// it.
func (m *Manager) memberConversation(conversationID, actorID string) (domain.Conversation, error) {
	conv, found, err := m.convs.Conversation(conversationID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if !found {
		return domain.Conversation{}, domain.NotFoundErrorf("conversation %s", conversationID)
	}
	if !conv.HasParticipant(actorID) {
		return domain.Conversation{}, domain.AuthenticationErrorf("user %s is not a participant of conversation %s", actorID, conversationID)
	}
	return conv, nil
}

// announceMembership routes a membership-change envelope to the
// conversation's current participants.
func (m *Manager) announceMembership(t domain.EnvelopeType, conv domain.Conversation, actorID string) {
	if m.notify == nil {
		return
	}
	env := domain.NewEnvelope(t, actorID)
	env.ConversationID = conv.ID
	env, err := env.WithData(domain.ParticipantsPayload{Participants: conv.Participants})
	if err != nil {
		return
	}
	m.notify.Route(env)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
