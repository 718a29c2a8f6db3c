package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy. Call sites wrap these sentinels with context so callers can
// classify failures with errors.Is while logs keep the detail.
var (
	// ErrAuthentication covers a missing/invalid identity claim and actors
	// operating on conversations they do not belong to.
	ErrAuthentication = errors.New("authentication error")
	// ErrNotFound covers unknown conversations, messages, and call sessions.
	ErrNotFound = errors.New("not found")
	// ErrValidation covers malformed requests, such as a conversation with
	// fewer than two participants.
	ErrValidation = errors.New("validation error")
	// ErrEncryption is returned when a message body cannot be encrypted,
	// typically because no session key exists for the sender.
	ErrEncryption = errors.New("encryption error")
	// ErrDecrypt is returned when authenticated decryption fails: tampered
	// ciphertext, wrong key, or wrong nonce.
	ErrDecrypt = errors.New("decryption failed")
	// ErrInvalidNonce is returned when a nonce is not exactly 12 bytes.
	ErrInvalidNonce = errors.New("invalid nonce")
	// ErrDatabase covers store unavailability and failed store operations.
	ErrDatabase = errors.New("database error")
	// ErrTransport covers sends to closed handles and connect failures.
	ErrTransport = errors.New("transport error")
)

// AuthenticationErrorf wraps ErrAuthentication with a formatted message.
func AuthenticationErrorf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrAuthentication)...)
}

// NotFoundErrorf wraps ErrNotFound with a formatted message.
func NotFoundErrorf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// ValidationErrorf wraps ErrValidation with a formatted message.
func ValidationErrorf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

// EncryptionErrorf wraps ErrEncryption with a formatted message.
func EncryptionErrorf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrEncryption)...)
}

// DatabaseErrorf wraps ErrDatabase with a formatted message.
func DatabaseErrorf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrDatabase)...)
}

// TransportErrorf wraps ErrTransport with a formatted message.
func TransportErrorf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrTransport)...)
}
