package registry

import (
	"sync"

	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
)

// Registry is an in-memory map of user id to delivery handle. It implements
// domain.ConnectionRegistry.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]domain.DeliveryHandle
	log     *logrus.Logger
}

// New returns an empty registry. A nil logger falls back to the logrus
// standard logger.
func New(log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{
		handles: make(map[string]domain.DeliveryHandle),
		log:     log,
	}
}

// Add registers the handle for the user. An existing handle for the same user
// is displaced and closed; its reader observes the close and unwinds without
// touching the registry entry of the new connection.
func (r *Registry) Add(userID string, h domain.DeliveryHandle) {
	r.mu.Lock()
	old, existed := r.handles[userID]
	r.handles[userID] = h
	r.mu.Unlock()

	if existed {
		r.log.WithField("user", userID).Info("replacing existing connection")
		old.Close()
	}
	r.log.WithField("user", userID).Debug("connection registered")
}

// Remove drops the user's handle if, and only if, it is still the one given.
// A stale connection unwinding after being displaced must not evict its
// replacement.
func (r *Registry) Remove(userID string, h domain.DeliveryHandle) {
	r.mu.Lock()
	if current, ok := r.handles[userID]; ok && current == h {
		delete(r.handles, userID)
	}
	r.mu.Unlock()
}

// Send delivers the envelope to the user's current handle. It reports false
// when the user has no handle or the handle refuses delivery, in which case
// the caller treats the user as offline.
func (r *Registry) Send(userID string, env domain.Envelope) bool {
	r.mu.RLock()
	h, ok := r.handles[userID]
	r.mu.RUnlock()

	if !ok {
		return false
	}
	return h.Deliver(env)
}

// Online returns the ids of all users with a registered handle.
func (r *Registry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	return ids
}

// IsOnline reports whether the user has a registered handle.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handles[userID]
	return ok
}
