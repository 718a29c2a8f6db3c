// Package commands implements the smartlink CLI: a thin relay client for
// watching inbound envelopes and sending messages from a terminal.
package commands
