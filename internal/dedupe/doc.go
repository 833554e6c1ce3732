// Package dedupe tracks executed command invocations so sync
// redeliveries are dropped while edited commands re-run once within
// the edit window.
package dedupe
