// Package relay implements the websocket relay that fans chat envelopes out
// between connected clients.
//
// A connection moves through three states:
//   - awaiting identity: the first frame must be a userStatus envelope with
//     status "online"; anything else closes the connection.
//   - routing: decoded envelopes are handed to the Router, which resolves
//     recipients and delivers through the connection registry.
//   - closed: the handle is unregistered and its queued outbound frames are
//     dropped.
//
// The relay never inspects message content. Encrypted bodies pass through
// verbatim; only the envelope fields drive routing. Envelopes that cannot be
// delivered to an intended recipient are persisted in the offline queue and
// replayed when that recipient reconnects.
package relay
