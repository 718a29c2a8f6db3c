package relay

import (
	"sync"

	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
)

// Router resolves the audience of each envelope and delivers it through the
// connection registry. Envelopes an intended recipient misses are handed to
// the offline queue, except transient types (typing indicators, call
// signaling, presence) which are only meaningful live.
type Router struct {
	registry      domain.ConnectionRegistry
	conversations domain.ConversationStore
	queue         domain.EventQueue
	log           *logrus.Logger

	mu      sync.RWMutex
	senders map[string]string // message id -> original sender id
}

// NewRouter wires a router to its registry, conversation store, and offline
// queue. A nil logger falls back to the logrus standard logger.
func NewRouter(reg domain.ConnectionRegistry, convs domain.ConversationStore, queue domain.EventQueue, log *logrus.Logger) *Router {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Router{
		registry:      reg,
		conversations: convs,
		queue:         queue,
		log:           log,
		senders:       make(map[string]string),
	}
}

// Route dispatches one decoded envelope. Unrecognized envelopes are dropped
// with a log line; routing never fails the connection.
func (r *Router) Route(env domain.Envelope) {
	switch env.Type {
	case domain.EnvelopeUserStatus:
		r.broadcastPresence(env)
	case domain.EnvelopeNewMessage:
		r.rememberSender(env)
		r.fanOut(env, r.resolveRecipients(env), true)
	case domain.EnvelopeMessageStatusUpdate:
		r.routeStatusUpdate(env)
	case domain.EnvelopeWebRTCSignal:
		r.routeCallSignal(env)
	case domain.EnvelopeTypingIndicator:
		r.fanOut(env, r.resolveRecipients(env), false)
	case domain.EnvelopeConversationUpdated,
		domain.EnvelopeGroupMemberAdded,
		domain.EnvelopeGroupMemberRemoved,
		domain.EnvelopeSystemNotification:
		r.fanOut(env, r.resolveRecipients(env), true)
	default:
		r.log.WithFields(logrus.Fields{
			"type":   env.Type,
			"sender": env.SenderID,
		}).Warn("dropping unrecognized envelope")
	}
}

// broadcastPresence forwards a presence change to the participants of the
// sender's conversations, each at most once. Presence is never queued; a user
// who was offline learns current presence when they reconnect.
func (r *Router) broadcastPresence(env domain.Envelope) {
	convs, err := r.conversations.ConversationsForUser(env.SenderID)
	if err != nil {
		r.log.WithError(err).WithField("user", env.SenderID).Error("presence audience lookup failed")
		return
	}
	notified := map[string]struct{}{env.SenderID: {}}
	for _, conv := range convs {
		for _, userID := range conv.Participants {
			if _, seen := notified[userID]; seen {
				continue
			}
			notified[userID] = struct{}{}
			r.registry.Send(userID, env)
		}
	}
}

// rememberSender records who authored a message id so later status updates
// can find their way back without trusting the updater's payload.
func (r *Router) rememberSender(env domain.Envelope) {
	if env.MessageID == "" || env.SenderID == "" {
		return
	}
	r.mu.Lock()
	r.senders[env.MessageID] = env.SenderID
	r.mu.Unlock()
}

// originalSender resolves the author of a message id, preferring the routing
// record over the payload hint.
func (r *Router) originalSender(env domain.Envelope) string {
	r.mu.RLock()
	sender, ok := r.senders[env.MessageID]
	r.mu.RUnlock()
	if ok {
		return sender
	}
	var p domain.StatusUpdatePayload
	if err := env.DecodeData(&p); err == nil && p.OriginalSenderID != "" {
		return p.OriginalSenderID
	}
	return ""
}

// routeStatusUpdate delivers a delivery/read receipt to the message's
// original sender. Receipts survive the sender being offline.
func (r *Router) routeStatusUpdate(env domain.Envelope) {
	sender := r.originalSender(env)
	if sender == "" {
		r.log.WithField("message", env.MessageID).Debug("status update with unknown original sender")
		return
	}
	if sender == env.SenderID {
		return
	}
	r.fanOut(env, []string{sender}, true)
}

// routeCallSignal forwards call signaling to the explicit recipient only.
// Signaling is useless after the fact, so it is never queued.
func (r *Router) routeCallSignal(env domain.Envelope) {
	if env.RecipientID == "" {
		r.log.WithField("sender", env.SenderID).Debug("call signal without recipient")
		return
	}
	if !r.registry.Send(env.RecipientID, env) {
		r.log.WithFields(logrus.Fields{
			"sender":    env.SenderID,
			"recipient": env.RecipientID,
		}).Debug("call signal dropped, recipient offline")
	}
}

// resolveRecipients determines the audience of an envelope: an explicit
// recipient wins, then a recipients list in the payload, then the
// conversation's participants.
func (r *Router) resolveRecipients(env domain.Envelope) []string {
	if env.RecipientID != "" {
		return []string{env.RecipientID}
	}
	var rp domain.RecipientsPayload
	if err := env.DecodeData(&rp); err == nil && len(rp.Recipients) > 0 {
		return rp.Recipients
	}
	var pp domain.ParticipantsPayload
	if err := env.DecodeData(&pp); err == nil && len(pp.Participants) > 0 {
		return pp.Participants
	}
	if env.ConversationID == "" {
		return nil
	}
	conv, found, err := r.conversations.Conversation(env.ConversationID)
	if err != nil {
		r.log.WithError(err).WithField("conversation", env.ConversationID).Error("recipient lookup failed")
		return nil
	}
	if !found {
		return nil
	}
	return conv.Participants
}

// fanOut delivers the envelope to every recipient except its sender. When
// queueable and at least one recipient missed it, the envelope is stored once
// in the offline queue; replay is scoped per conversation, not per recipient.
func (r *Router) fanOut(env domain.Envelope, recipients []string, queueable bool) {
	missed := false
	for _, userID := range recipients {
		if userID == env.SenderID {
			continue
		}
		if !r.registry.Send(userID, env) {
			missed = true
		}
	}
	if !missed || !queueable {
		return
	}
	if err := r.queue.Store(env); err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"type":         env.Type,
			"conversation": env.ConversationID,
		}).Error("failed to queue envelope for offline delivery")
	}
}
