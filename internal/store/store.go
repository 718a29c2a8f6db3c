package store

import (
	clover "github.com/ostafen/clover/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
)

const (
	collConversations = "conversations"
	collMessages      = "messages"
	collEvents        = "chat_events"
)

// Store is a CloverDB-backed implementation of domain.ConversationStore,
// domain.MessageStore, and domain.EventStore.
type Store struct {
	db  *clover.DB
	log *logrus.Logger
}

// Open opens (or creates) the document store under dir and makes sure all
// collections exist. A nil logger falls back to the logrus standard logger.
func Open(dir string, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	db, err := clover.Open(dir)
	if err != nil {
		return nil, domain.DatabaseErrorf("open document store at %s: %v", dir, err)
	}
	s := &Store{db: db, log: log}
	for _, coll := range []string{collConversations, collMessages, collEvents} {
		if err := s.ensureCollection(coll); err != nil {
			db.Close()
			return nil, err
		}
	}
	log.WithField("dir", dir).Debug("document store opened")
	return s, nil
}

func (s *Store) ensureCollection(name string) error {
	has, err := s.db.HasCollection(name)
	if err != nil {
		return domain.DatabaseErrorf("check collection %s: %v", name, err)
	}
	if has {
		return nil
	}
	if err := s.db.CreateCollection(name); err != nil {
		return domain.DatabaseErrorf("create collection %s: %v", name, err)
	}
	return nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "close document store")
	}
	return nil
}

// byID builds the standard single-document query on the application-level id.
func byID(collection, id string) *clover.Query {
	return clover.NewQuery(collection).Where(clover.Field("id").Eq(id))
}

// anyValues widens a string slice for criteria that take variadic values.
func anyValues(ids []string) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
