// Package offline queues routing events for participants who were not
// connected when the event was routed, and replays them on reconnect.
//
// Events are persisted per conversation, not per recipient: replay resolves
// the reconnecting user's conversations and drains every queued event in
// those conversations in timestamp order. An event is deleted only after the
// registry confirms delivery, so a crash between deliver and delete causes
// redelivery, never loss. Receivers dedupe on event id.
package offline
