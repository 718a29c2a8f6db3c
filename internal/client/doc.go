// Package client maintains a single logical connection from a chat client to
// the relay.
//
// The connection moves through four states: Disconnected, Connecting,
// Connected, and Reconnecting. A manual Connect that fails leaves the client
// Disconnected; a transport failure while Connected schedules automatic
// reconnection with exponential backoff, bounded by a configured attempt
// count. Exhausting the bound leaves the client Disconnected until the next
// manual Connect.
//
// While Connected a heartbeat task sends transport-level pings on a fixed
// interval. Envelopes composed while not Connected land in a local pending
// buffer; nothing is sent until the caller flushes it explicitly.
package client
