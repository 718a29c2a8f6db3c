// Package chat implements the conversation and message workflows on top of
// the store, the keyring, and the connection registry.
//
// The manager enforces membership: every operation that touches a
// conversation checks that the acting user participates in it. Message bodies
// of encrypted conversations are encrypted before they reach the store and
// decrypted per reader on the way out; the store never sees plaintext for
// those conversations.
package chat
