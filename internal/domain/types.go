package domain

import "time"

// ConversationType distinguishes one-to-one chats from group chats.
type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

// ContentType describes what a message body carries.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentFile  ContentType = "file"
	ContentVoice ContentType = "voice"
)

// MessageStatus is the single delivery status of a message. It only moves
// forward: Sent -> Delivered -> Read.
type MessageStatus string

const (
	StatusSent      MessageStatus = "Sent"
	StatusDelivered MessageStatus = "Delivered"
	StatusRead      MessageStatus = "Read"
)

// rank orders statuses for the monotonic transition check.
func (s MessageStatus) rank() int {
	switch s {
	case StatusSent:
		return 0
	case StatusDelivered:
		return 1
	case StatusRead:
		return 2
	}
	return -1
}

// After reports whether s is a strictly later status than other.
func (s MessageStatus) After(other MessageStatus) bool {
	return s.rank() > other.rank()
}

// Conversation is a persisted chat between two or more participants.
type Conversation struct {
	ID                string           `json:"id"`
	Name              string           `json:"name,omitempty"`
	Type              ConversationType `json:"conversationType"`
	Participants      []string         `json:"participants"`
	EncryptionEnabled bool             `json:"encryptionEnabled"`
	LastMessage       *Message         `json:"lastMessage,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// HasParticipant reports whether userID belongs to the conversation.
func (c Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Message is a persisted chat message. When Encrypted is true, Content holds
// the JSON encoding of EncryptedContent rather than plaintext.
// DecryptionFailed is set only on read paths that tried and failed to open
// the content for the requesting reader; it is never persisted.
type Message struct {
	ID               string        `json:"id"`
	ConversationID   string        `json:"conversationId"`
	SenderID         string        `json:"senderId"`
	Content          string        `json:"content"`
	ContentType      ContentType   `json:"contentType"`
	Timestamp        time.Time     `json:"timestamp"`
	Status           MessageStatus `json:"status,omitempty"`
	Encrypted        bool          `json:"encrypted"`
	DecryptionFailed bool          `json:"decryptionFailed,omitempty"`
	MediaURL         string        `json:"mediaUrl,omitempty"`
}

// EncryptedContent is the ciphertext form of a message body.
type EncryptedContent struct {
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
}

// NewConversation carries the fields a caller supplies when creating a
// conversation.
type NewConversation struct {
	Name              string           `json:"name,omitempty"`
	Type              ConversationType `json:"conversationType"`
	Participants      []string         `json:"participants"`
	EncryptionEnabled bool             `json:"encryptionEnabled"`
}

// NewMessage carries the fields a caller supplies when sending a message.
type NewMessage struct {
	ConversationID string      `json:"conversationId"`
	SenderID       string      `json:"senderId"`
	Content        string      `json:"content"`
	ContentType    ContentType `json:"contentType"`
	MediaURL       string      `json:"mediaUrl,omitempty"`
}

// PendingEvent is a routing event queued for participants who were offline
// when it was routed. Receivers must treat redelivery as idempotent on ID.
type PendingEvent struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Envelope       Envelope  `json:"envelope"`
	Timestamp      time.Time `json:"timestamp"`
}

// CallStatus is the lifecycle state of a call session.
type CallStatus string

const (
	CallRinging   CallStatus = "ringing"
	CallConnected CallStatus = "connected"
	CallEnded     CallStatus = "ended"
)

// CallSession tracks an in-flight call. Sessions are ephemeral and never
// persisted; only the signaling envelopes are routed.
type CallSession struct {
	ID             string     `json:"id"`
	InitiatorID    string     `json:"initiatorId"`
	RecipientID    string     `json:"recipientId"`
	ConversationID string     `json:"conversationId,omitempty"`
	StartedAt      time.Time  `json:"startedAt"`
	Status         CallStatus `json:"status"`
}
