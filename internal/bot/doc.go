// Package bot implements the Matrix frontend for the song catalog.
//
// Incoming room messages are filtered by allowed-room list and command
// prefix, deduplicated against sync redelivery, and dispatched one
// goroutine per invocation so the sync loop never waits on a handler.
// Handlers are thin: parse arguments, apply the moderation gate where
// required, run the catalog operation through the offload pool and
// format a reply.
//
// Moderation uses room power levels: a caller at or above the
// configured level holds the configured moderator role for the
// invocation. Denials are delivered to a direct room with the caller
// so only they see the message.
//
// Edited commands (m.replace) re-run within the configured edit
// window; redelivered or unchanged events are dropped.
package bot
