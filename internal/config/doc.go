// Package config loads the process-wide setlist-bot configuration.
//
// Configuration is read once at startup from a TOML or YAML file
// (chosen by extension) and never re-read; components receive the
// parsed Config value rather than consulting the environment
// themselves. Secrets such as the Matrix access token are typically
// referenced as ${VAR} and expanded from the environment before
// decoding.
//
// Example (TOML):
//
//	[matrix]
//	homeserver = "https://matrix.example.org"
//	user_id = "@setlist:example.org"
//	access_token = "${SETLIST_ACCESS_TOKEN}"
//
//	[bot]
//	command_prefix = "~"
//	allowed_rooms = ["!band:example.org"]
//	moderator_role = "moderator"
//	moderator_power_level = 50
//	edit_window = "1h"
//	workers = 4
//
//	[database]
//	path = "/var/lib/setlist-bot/catalog.db"
//
//	[logging]
//	level = "info"
package config
