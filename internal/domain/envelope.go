package domain

import (
	"encoding/json"
	"time"
)

// EnvelopeType discriminates the wire envelope variants exchanged over the
// relay connection.
type EnvelopeType string

const (
	EnvelopeUserStatus          EnvelopeType = "userStatus"
	EnvelopeNewMessage          EnvelopeType = "newMessage"
	EnvelopeMessageStatusUpdate EnvelopeType = "messageStatusUpdate"
	EnvelopeWebRTCSignal        EnvelopeType = "webRTCSignal"
	EnvelopeTypingIndicator     EnvelopeType = "typingIndicator"
	EnvelopeConversationUpdated EnvelopeType = "conversationUpdated"
	EnvelopeGroupMemberAdded    EnvelopeType = "groupMemberAdded"
	EnvelopeGroupMemberRemoved  EnvelopeType = "groupMemberRemoved"
	EnvelopeSystemNotification  EnvelopeType = "systemNotification"

	// EnvelopeUnrecognized is never serialized; decoding an unknown
	// messageType yields it so the router can skip the frame instead of
	// failing the parse.
	EnvelopeUnrecognized EnvelopeType = "unrecognized"
)

var knownEnvelopeTypes = map[EnvelopeType]struct{}{
	EnvelopeUserStatus:          {},
	EnvelopeNewMessage:          {},
	EnvelopeMessageStatusUpdate: {},
	EnvelopeWebRTCSignal:        {},
	EnvelopeTypingIndicator:     {},
	EnvelopeConversationUpdated: {},
	EnvelopeGroupMemberAdded:    {},
	EnvelopeGroupMemberRemoved:  {},
	EnvelopeSystemNotification:  {},
}

// Envelope is the typed wrapper exchanged over a relay connection. Data is
// kept raw and decoded per-variant once Type is known. Unknown JSON fields
// are ignored.
type Envelope struct {
	Type           EnvelopeType    `json:"messageType"`
	SenderID       string          `json:"senderId"`
	ConversationID string          `json:"conversationId,omitempty"`
	RecipientID    string          `json:"recipientId,omitempty"`
	MessageID      string          `json:"messageId,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
	Timestamp      string          `json:"timestamp"`
}

// NewEnvelope builds an envelope of the given type stamped with the current
// time.
func NewEnvelope(t EnvelopeType, senderID string) Envelope {
	return Envelope{
		Type:      t,
		SenderID:  senderID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// DecodeEnvelope parses a wire frame. A frame that is not valid JSON fails;
// a valid frame with an unknown messageType decodes with Type set to
// EnvelopeUnrecognized.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, err
	}
	if _, ok := knownEnvelopeTypes[env.Type]; !ok {
		env.Type = EnvelopeUnrecognized
	}
	return env, nil
}

// Encode serializes the envelope for the wire.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// WithData attaches a payload, replacing any existing one.
func (e Envelope) WithData(v any) (Envelope, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return e, err
	}
	e.Data = raw
	return e, nil
}

// PresencePayload is the data of a userStatus envelope. The identity claim is
// a userStatus frame with Status == "online".
type PresencePayload struct {
	Status string `json:"status"`
}

// RecipientsPayload is the data of newMessage and typingIndicator envelopes
// that address an explicit recipient list.
type RecipientsPayload struct {
	Recipients []string `json:"recipients"`
}

// ParticipantsPayload is the data of conversationUpdated and group membership
// envelopes.
type ParticipantsPayload struct {
	Participants []string `json:"participants"`
}

// StatusUpdatePayload is the data of a messageStatusUpdate envelope. The
// original sender may be carried directly; otherwise the router falls back to
// its recorded (message id -> sender id) map.
type StatusUpdatePayload struct {
	OriginalSenderID string        `json:"originalSenderId,omitempty"`
	Status           MessageStatus `json:"status,omitempty"`
}

// CallSignalPayload is the data of a webRTCSignal envelope. The signal body
// itself is opaque to the relay.
type CallSignalPayload struct {
	SignalType string          `json:"signalType"`
	CallID     string          `json:"callId,omitempty"`
	Signal     json.RawMessage `json:"signal,omitempty"`
}

// IsIdentityClaim reports whether the envelope is a valid first-frame
// identity claim.
func (e Envelope) IsIdentityClaim() bool {
	if e.Type != EnvelopeUserStatus || e.SenderID == "" {
		return false
	}
	var p PresencePayload
	if err := e.DecodeData(&p); err != nil {
		return false
	}
	return p.Status == "online"
}

// DecodeData unmarshals the raw payload into v. A nil payload leaves v
// untouched.
func (e Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}
