package app

import (
	"github.com/sirupsen/logrus"

	"smartlink/internal/keys"
	"smartlink/internal/offline"
	"smartlink/internal/registry"
	"smartlink/internal/relay"
	"smartlink/internal/services/call"
	"smartlink/internal/services/chat"
	"smartlink/internal/store"
)

// Wire bundles the stores, services, and relay server of the daemon.
type Wire struct {
	Config   Config
	Log      *logrus.Logger
	Store    *store.Store
	Registry *registry.Registry
	Keyring  *keys.Keyring
	Queue    *offline.Queue
	Router   *relay.Router
	Server   *relay.Server
	Chat     *chat.Manager
	Calls    *call.Sessions
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config, log *logrus.Logger) (*Wire, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	st, err := store.Open(cfg.DataDir, log)
	if err != nil {
		return nil, err
	}

	reg := registry.New(log)
	keyring := keys.NewKeyring(log)
	queue := offline.NewQueue(st, st, log)
	router := relay.NewRouter(reg, st, queue, log)
	server := relay.NewServer(reg, router, queue, log)
	chatMgr := chat.NewManager(st, st, keyring, reg, router, log)
	calls := call.NewSessions(log)

	return &Wire{
		Config:   cfg,
		Log:      log,
		Store:    st,
		Registry: reg,
		Keyring:  keyring,
		Queue:    queue,
		Router:   router,
		Server:   server,
		Chat:     chatMgr,
		Calls:    calls,
	}, nil
}

// Close releases the wire's resources.
func (w *Wire) Close() error {
	return w.Store.Close()
}
