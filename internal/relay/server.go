package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
)

const (
	// identityWait bounds how long a fresh connection may sit silent before
	// presenting its identity claim.
	identityWait = 15 * time.Second
	// readWait is the idle read deadline, refreshed by every frame and ping.
	readWait = 120 * time.Second
	// maxFrameBytes caps a single inbound frame.
	maxFrameBytes = 1 << 20
)

// Replayer drains a user's offline backlog after they reconnect.
type Replayer interface {
	Replay(userID string, reg domain.ConnectionRegistry) (int, error)
}

// Server accepts websocket connections, authenticates the first frame as an
// identity claim, and pumps subsequent envelopes through the router.
type Server struct {
	registry domain.ConnectionRegistry
	router   *Router
	replay   Replayer
	log      *logrus.Logger

	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// NewServer wires the relay endpoint. A nil logger falls back to the logrus
// standard logger.
func NewServer(reg domain.ConnectionRegistry, router *Router, replay Replayer, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		registry: reg,
		router:   router,
		replay:   replay,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from arbitrary origins; identity is
			// established by the first-frame claim, not the origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP handler exposing the websocket endpoint at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Serve listens on addr until Shutdown is called or the listener fails.
func (s *Server) Serve(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.WithField("addr", addr).Info("relay listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return domain.TransportErrorf("relay listen on %s: %v", addr, err)
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight handlers.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	ws.SetReadLimit(maxFrameBytes)

	claim, ok := s.awaitIdentity(ws)
	if !ok {
		deadline := time.Now().Add(writeWait)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "identity claim required"), deadline)
		ws.Close()
		return
	}
	userID := claim.SenderID

	c := newConn(userID, ws, s.log)
	go c.writeLoop()
	s.registry.Add(userID, c)
	s.log.WithField("user", userID).Info("client connected")

	// The claim doubles as the user's online presence announcement.
	s.router.Route(claim)

	if n, err := s.replay.Replay(userID, s.registry); err != nil {
		s.log.WithError(err).WithField("user", userID).Error("offline replay failed")
	} else if n > 0 {
		s.log.WithFields(logrus.Fields{"user": userID, "count": n}).Debug("offline backlog replayed")
	}

	s.readLoop(userID, ws, c)

	s.registry.Remove(userID, c)
	c.Close()
	s.log.WithField("user", userID).Info("client disconnected")

	// A displaced connection unwinding while its replacement is live must
	// not announce the user as offline.
	if !s.registry.IsOnline(userID) {
		s.router.Route(presenceEnvelope(userID, "offline"))
	}
}

// awaitIdentity reads the first frame and validates it as an identity claim:
// a userStatus envelope with status "online" and a non-empty sender.
func (s *Server) awaitIdentity(ws *websocket.Conn) (domain.Envelope, bool) {
	_ = ws.SetReadDeadline(time.Now().Add(identityWait))
	_, raw, err := ws.ReadMessage()
	if err != nil {
		return domain.Envelope{}, false
	}
	env, err := domain.DecodeEnvelope(raw)
	if err != nil || !env.IsIdentityClaim() {
		s.log.Warn("rejecting connection: first frame is not an identity claim")
		return domain.Envelope{}, false
	}
	return env, true
}

// readLoop pumps inbound frames into the router until the socket errors or
// the handle is closed (for example when a newer connection displaces it).
func (s *Server) readLoop(userID string, ws *websocket.Conn, c *conn) {
	_ = ws.SetReadDeadline(time.Now().Add(readWait))
	ws.SetPingHandler(func(appData string) error {
		_ = ws.SetReadDeadline(time.Now().Add(readWait))
		return ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.WithError(err).WithField("user", userID).Debug("read loop ended")
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readWait))

		env, err := domain.DecodeEnvelope(raw)
		if err != nil {
			s.log.WithField("user", userID).Warn("dropping malformed frame")
			continue
		}
		// The claimed identity binds the connection; later frames cannot
		// speak for anyone else.
		env.SenderID = userID
		s.router.Route(env)

		select {
		case <-c.done:
			return
		default:
		}
	}
}

// presenceEnvelope builds the userStatus announcement broadcast on connect
// and disconnect.
func presenceEnvelope(userID, status string) domain.Envelope {
	env := domain.NewEnvelope(domain.EnvelopeUserStatus, userID)
	env, _ = env.WithData(domain.PresencePayload{Status: status})
	return env
}
