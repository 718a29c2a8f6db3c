package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second
	// outboundBuffer is the per-connection outbound backlog. A receiver that
	// cannot drain this many frames is treated as offline for the overflow.
	outboundBuffer = 256
)

// conn is the server side of one client connection. Its Deliver side is
// decoupled from the socket by a buffered channel so a slow receiver never
// blocks the router.
type conn struct {
	userID string
	ws     *websocket.Conn
	out    chan domain.Envelope
	done   chan struct{}
	once   sync.Once
	log    *logrus.Entry
}

func newConn(userID string, ws *websocket.Conn, log *logrus.Logger) *conn {
	return &conn{
		userID: userID,
		ws:     ws,
		out:    make(chan domain.Envelope, outboundBuffer),
		done:   make(chan struct{}),
		log:    log.WithField("user", userID),
	}
}

// Deliver enqueues the envelope for the write loop. It reports false once the
// connection is closed or when the outbound buffer is full; it never blocks.
func (c *conn) Deliver(env domain.Envelope) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- env:
		return true
	case <-c.done:
		return false
	default:
		c.log.Warn("outbound buffer full, treating receiver as offline")
		return false
	}
}

// Close signals the write loop to send a close frame and tear the socket
// down. It is safe to call multiple times and from any goroutine.
func (c *conn) Close() {
	c.once.Do(func() { close(c.done) })
}

// writeLoop serializes all socket writes. It exits when Close is called or a
// write fails, closing the underlying socket either way so the read loop
// unblocks.
func (c *conn) writeLoop() {
	defer c.ws.Close()
	for {
		select {
		case <-c.done:
			deadline := time.Now().Add(writeWait)
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return
		case env := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(env); err != nil {
				c.log.WithError(err).Debug("write failed, closing connection")
				c.Close()
				return
			}
		}
	}
}

var _ domain.DeliveryHandle = (*conn)(nil)
