// Package keys manages per-user key pairs and per-(conversation, user)
// session secrets for end-to-end encrypted conversations.
//
// KeyManager caches one X25519 key pair per user. SessionKeyStore caches the
// directional shared secrets: each user encrypts with the secret keyed to
// their own identity within a conversation, so a conversation with N
// encrypted participants holds up to N*(N-1) secrets. Keyring composes the
// two and orchestrates pairwise channel establishment.
//
// Secrets live only in memory; a membership change or process restart drops
// them and channels are re-established on demand.
package keys
