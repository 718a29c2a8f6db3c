package client

import (
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultReconnectDelay    = 2 * time.Second
	defaultMaxReconnects     = 5

	writeWait       = 10 * time.Second
	inboundBuffer   = 256
	identityTimeout = 10 * time.Second
)

var errManualDisconnect = errors.New("manual disconnect")

// Config carries the connection parameters a Client needs. Zero values fall
// back to defaults.
type Config struct {
	// URL is the relay websocket endpoint, e.g. ws://host:port/ws.
	URL string
	// UserID is the identity claimed on connect.
	UserID string

	HeartbeatInterval    time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

func (c *Config) applyDefaults() {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = defaultReconnectDelay
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = defaultMaxReconnects
	}
}

// Client is a relay connection with automatic reconnection. All methods are
// safe for concurrent use.
type Client struct {
	cfg    Config
	log    *logrus.Entry
	dialer *websocket.Dialer

	mu         sync.Mutex
	state      State
	ws         *websocket.Conn
	generation int
	pending    []domain.Envelope

	// wmu serializes data-frame writes; control frames go through
	// WriteControl which is safe alongside them.
	wmu sync.Mutex

	events chan domain.Envelope
}

// New builds a client. A nil logger falls back to the logrus standard logger.
func New(cfg Config, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	cfg.applyDefaults()
	return &Client{
		cfg:    cfg,
		log:    log.WithField("user", cfg.UserID),
		dialer: &websocket.Dialer{HandshakeTimeout: identityTimeout},
		events: make(chan domain.Envelope, inboundBuffer),
	}
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Events delivers inbound envelopes to the host application. Envelopes are
// dropped with a warning if the host stops draining the channel.
func (c *Client) Events() <-chan domain.Envelope { return c.events }

// Connect opens the transport and presents the identity claim. A failed
// manual connect leaves the client Disconnected and does not schedule
// retries.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		state := c.state
		c.mu.Unlock()
		return domain.ValidationErrorf("connect while %s", state)
	}
	c.state = StateConnecting
	c.mu.Unlock()

	if err := c.dial(); err != nil {
		c.setState(StateDisconnected)
		return err
	}
	return nil
}

// Disconnect tears the connection down. It is valid only from Connected or
// Reconnecting and cancels any scheduled reconnection.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.state != StateConnected && c.state != StateReconnecting {
		state := c.state
		c.mu.Unlock()
		return domain.ValidationErrorf("disconnect while %s", state)
	}
	c.state = StateDisconnected
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	if ws != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		ws.Close()
	}
	c.log.Info("disconnected")
	return nil
}

// Send writes the envelope when Connected. While not Connected the envelope
// lands in the pending buffer and is held there until Flush.
func (c *Client) Send(env domain.Envelope) error {
	c.mu.Lock()
	if c.state != StateConnected {
		c.pending = append(c.pending, env)
		n := len(c.pending)
		c.mu.Unlock()
		c.log.WithField("pending", n).Debug("buffered envelope while offline")
		return nil
	}
	ws := c.ws
	c.mu.Unlock()

	if err := c.writeJSON(ws, env); err != nil {
		return domain.TransportErrorf("send %s envelope: %v", env.Type, err)
	}
	return nil
}

// Pending reports how many envelopes are buffered locally.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Flush sends the pending buffer in compose order. It requires a Connected
// state; on a mid-flush write failure the unsent remainder stays buffered.
// It returns how many envelopes were sent.
func (c *Client) Flush() (int, error) {
	c.mu.Lock()
	if c.state != StateConnected {
		state := c.state
		c.mu.Unlock()
		return 0, domain.TransportErrorf("flush while %s", state)
	}
	batch := c.pending
	c.pending = nil
	ws := c.ws
	c.mu.Unlock()

	for i, env := range batch {
		if err := c.writeJSON(ws, env); err != nil {
			c.mu.Lock()
			c.pending = append(batch[i:], c.pending...)
			c.mu.Unlock()
			return i, domain.TransportErrorf("flush envelope %d of %d: %v", i+1, len(batch), err)
		}
	}
	if len(batch) > 0 {
		c.log.WithField("count", len(batch)).Info("flushed pending envelopes")
	}
	return len(batch), nil
}

func (c *Client) writeJSON(ws *websocket.Conn, env domain.Envelope) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteJSON(env)
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// dial opens the transport, sends the identity claim, and on success starts
// the read and heartbeat tasks for the new connection generation.
func (c *Client) dial() error {
	ws, _, err := c.dialer.Dial(c.cfg.URL, nil)
	if err != nil {
		return domain.TransportErrorf("dial %s: %v", c.cfg.URL, err)
	}

	claim := domain.NewEnvelope(domain.EnvelopeUserStatus, c.cfg.UserID)
	claim, _ = claim.WithData(domain.PresencePayload{Status: "online"})
	if err := c.writeJSON(ws, claim); err != nil {
		ws.Close()
		return domain.TransportErrorf("send identity claim: %v", err)
	}

	c.mu.Lock()
	// A Disconnect racing the handshake wins; the fresh socket is discarded
	// instead of resurrecting a connection the caller just tore down.
	if c.state != StateConnecting && c.state != StateReconnecting {
		c.mu.Unlock()
		ws.Close()
		return errManualDisconnect
	}
	c.ws = ws
	c.generation++
	gen := c.generation
	c.state = StateConnected
	c.mu.Unlock()

	go c.readLoop(ws, gen)
	go c.heartbeat(gen)
	c.log.Info("connected")
	return nil
}

// readLoop pumps inbound envelopes to the events channel until the socket
// fails or the connection is superseded.
func (c *Client) readLoop(ws *websocket.Conn, gen int) {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			c.onReadFailure(gen)
			return
		}
		env, err := domain.DecodeEnvelope(raw)
		if err != nil {
			c.log.Warn("dropping malformed inbound frame")
			continue
		}
		select {
		case c.events <- env:
		default:
			c.log.Warn("event buffer full, dropping inbound envelope")
		}
	}
}

// heartbeat sends transport-level pings while Connected. The task exits as
// soon as the state moves on or the connection generation changes.
func (c *Client) heartbeat(gen int) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		if c.generation != gen || c.state != StateConnected {
			c.mu.Unlock()
			return
		}
		ws := c.ws
		c.mu.Unlock()

		if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
			c.log.WithError(err).Debug("heartbeat failed")
			return
		}
	}
}

// onReadFailure handles a transport failure observed by the read loop. A
// stale generation or a manual disconnect is ignored; otherwise automatic
// reconnection starts.
func (c *Client) onReadFailure(gen int) {
	c.mu.Lock()
	if c.generation != gen || c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	c.state = StateReconnecting
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	if ws != nil {
		ws.Close()
	}
	c.log.Warn("connection lost, reconnecting")
	go c.autoReconnect()
}

// autoReconnect retries dial with exponential backoff up to the configured
// attempt bound. Exhaustion parks the client Disconnected until a manual
// Connect.
func (c *Client) autoReconnect() {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.ReconnectDelay
	bo.MaxElapsedTime = 0
	policy := backoff.WithMaxRetries(bo, uint64(c.cfg.MaxReconnectAttempts))

	attempt := 0
	op := func() error {
		if c.State() != StateReconnecting {
			return backoff.Permanent(errManualDisconnect)
		}
		attempt++
		if err := c.dial(); err != nil {
			if errors.Is(err, errManualDisconnect) {
				return backoff.Permanent(err)
			}
			c.log.WithError(err).WithField("attempt", attempt).Debug("reconnect attempt failed")
			return err
		}
		return nil
	}

	err := backoff.Retry(op, policy)
	if err == nil || errors.Is(err, errManualDisconnect) {
		return
	}
	c.log.WithError(err).Warn("reconnection attempts exhausted")
	c.setState(StateDisconnected)
}
