// Package call tracks in-flight call sessions for signaling purposes.
//
// Sessions are ephemeral: they live in memory only and disappear on restart.
// The actual media negotiation rides opaque webRTCSignal envelopes through
// the relay; this package only answers "is this user already in a call".
package call
