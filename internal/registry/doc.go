// Package registry tracks which users currently hold a live delivery handle.
//
// The registry is the single source of truth for presence: a user is online
// exactly while their handle is registered. Registering a second handle for
// the same user replaces and closes the first, so the newest connection wins.
package registry
