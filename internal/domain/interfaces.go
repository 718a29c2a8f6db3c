package domain

// DeliveryHandle is the send-only side of one user's outbound delivery task.
// Deliver returns false when the handle no longer accepts frames (connection
// closed or superseded); it never blocks and never panics.
type DeliveryHandle interface {
	Deliver(env Envelope) bool
	Close()
}

// ConnectionRegistry maps online user identities to delivery handles. All
// operations are safe for concurrent callers; Send is the hot path and must
// not serialize behind unrelated writes.
type ConnectionRegistry interface {
	// Add inserts or replaces the handle for userID. A replaced handle is
	// closed.
	Add(userID string, h DeliveryHandle)
	// Remove drops the entry only while h is still the registered handle, so
	// a displaced connection unwinding late cannot evict its replacement.
	Remove(userID string, h DeliveryHandle)
	// Send delivers env to userID's handle. False means the user must be
	// treated as offline.
	Send(userID string, env Envelope) bool
	// Online returns a snapshot of connected user identities. It may be
	// stale immediately after return.
	Online() []string
	// IsOnline reports whether userID currently has a handle.
	IsOnline(userID string) bool
}

// ConversationStore persists conversations in the external document store.
type ConversationStore interface {
	CreateConversation(c Conversation) error
	Conversation(id string) (Conversation, bool, error)
	ConversationsForUser(userID string) ([]Conversation, error)
	UpdateParticipants(id string, participants []string) error
	SetLastMessage(id string, m Message) error
}

// MessageStore persists messages in the external document store.
type MessageStore interface {
	SaveMessage(m Message) error
	Message(id string) (Message, bool, error)
	// Messages returns up to limit messages of the conversation in ascending
	// timestamp order. When beforeID names a stored message, only messages
	// strictly older than it are returned.
	Messages(conversationID string, limit int, beforeID string) ([]Message, error)
	SetMessageStatus(id string, status MessageStatus) error
	// MarkDelivered moves every Sent message not authored by userID to
	// Delivered and reports how many changed.
	MarkDelivered(conversationID, userID string) (int, error)
	// MarkRead moves every Sent or Delivered message not authored by userID
	// to Read and reports how many changed.
	MarkRead(conversationID, userID string) (int, error)
	UnreadCount(userID string) (int, error)
}

// EventStore persists the offline event backlog (chat_events collection).
type EventStore interface {
	SaveEvent(e PendingEvent) error
	// EventsForConversations returns queued events for the given
	// conversations in ascending timestamp order.
	EventsForConversations(conversationIDs []string) ([]PendingEvent, error)
	DeleteEvents(ids []string) error
}

// EventQueue is the router-facing side of the offline event queue.
type EventQueue interface {
	Store(env Envelope) error
	PendingFor(userID string) ([]PendingEvent, error)
	Delete(ids []string) error
}
