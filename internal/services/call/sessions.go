package call

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
)

// Sessions is an in-memory registry of active call sessions.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]domain.CallSession // call id -> session
	log      *logrus.Logger
}

// NewSessions returns an empty call-session registry. A nil logger falls back
// to the logrus standard logger.
func NewSessions(log *logrus.Logger) *Sessions {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sessions{sessions: make(map[string]domain.CallSession), log: log}
}

// Start opens a new ringing session between two users. Either party already
// being in an active call is a validation failure.
func (s *Sessions) Start(initiatorID, recipientID, conversationID string) (domain.CallSession, error) {
	if initiatorID == recipientID {
		return domain.CallSession{}, domain.ValidationErrorf("user %s cannot call themselves", initiatorID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		if sess.Status == domain.CallEnded {
			continue
		}
		for _, u := range []string{initiatorID, recipientID} {
			if sess.InitiatorID == u || sess.RecipientID == u {
				return domain.CallSession{}, domain.ValidationErrorf("user %s is already in call %s", u, sess.ID)
			}
		}
	}

	sess := domain.CallSession{
		ID:             uuid.NewString(),
		InitiatorID:    initiatorID,
		RecipientID:    recipientID,
		ConversationID: conversationID,
		StartedAt:      time.Now().UTC(),
		Status:         domain.CallRinging,
	}
	s.sessions[sess.ID] = sess
	s.log.WithFields(logrus.Fields{
		"call":      sess.ID,
		"initiator": initiatorID,
		"recipient": recipientID,
	}).Info("call started")
	return sess, nil
}

// SetStatus moves a session to a new lifecycle status.
func (s *Sessions) SetStatus(callID string, status domain.CallStatus) (domain.CallSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[callID]
	if !ok {
		return domain.CallSession{}, domain.NotFoundErrorf("call session %s", callID)
	}
	sess.Status = status
	s.sessions[callID] = sess
	return sess, nil
}

// End marks the session ended and removes it from the registry.
func (s *Sessions) End(callID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[callID]; !ok {
		return domain.NotFoundErrorf("call session %s", callID)
	}
	delete(s.sessions, callID)
	s.log.WithField("call", callID).Info("call ended")
	return nil
}

// ActiveCallFor returns the user's current non-ended session, if any.
func (s *Sessions) ActiveCallFor(userID string) (domain.CallSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if sess.Status == domain.CallEnded {
			continue
		}
		if sess.InitiatorID == userID || sess.RecipientID == userID {
			return sess, true
		}
	}
	return domain.CallSession{}, false
}
