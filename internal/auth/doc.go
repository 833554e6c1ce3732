// Package auth implements the role gate in front of mutating catalog
// commands.
//
// The gate is a pure predicate: an Identity (caller plus role set)
// passes iff it holds the process-wide configured moderator role. An
// invocation whose membership context could not be resolved is modeled
// as an unresolved Identity and always fails — the gate is closed by
// default rather than permissive on missing data.
//
// Guard wraps the predicate for command handlers: on denial it sends
// one caller-only reply with a fixed message and tells the handler to
// short-circuit before any store call.
package auth
