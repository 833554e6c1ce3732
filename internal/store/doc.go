// Package store provides persistent storage for the song catalog using SQLite.
//
// # Data Models
//
//   - Song: a title plus a free-text album field; ids are assigned by
//     the store, monotonically increasing, and never reused
//   - Album: a named grouping; the Song.Album field may reference an
//     Album's name or be an ad-hoc string, with no foreign key between
//     them (deleting an Album never cascades to Songs)
//
// # Concurrency
//
// The store owns the single database handle for the life of the
// process. A mutex serializes every operation: at most one is in
// flight at a time, and check-then-act sequences (the CreateSong
// duplicate check) execute under one lock hold. Methods block for
// their full duration, so they must be called from worker goroutines
// (see internal/offload), never from the event dispatcher itself.
//
// # Matching Rules
//
// Two different comparison disciplines coexist, mirroring the bot's
// observed behavior:
//
//   - case-insensitive: the CreateSong duplicate check and DeleteAlbum
//   - exact match: the album filter of ListSongs and SampleSongs
//   - case-sensitive prefix: SearchAlbumNames
//
// The split between the first two is a candidate defect rather than a
// feature; tests pin both sides so a unification is a deliberate act.
//
// # Error Handling
//
//   - *StorageError: any database failure, wrapping the driver error
//   - ErrDuplicateSong: CreateSong found an existing title; no insert
//   - "not found" on deletes is a false return value, never an error
//
// All methods accept context.Context, though an in-flight statement is
// not interrupted by cancellation.
//
// # SQLite Configuration
//
// WAL mode is enabled on open and the schema is created idempotently:
//
//	songs(id INTEGER PRIMARY KEY AUTOINCREMENT, title TEXT, album TEXT)
//	albums(id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT)
//
// plus NOCASE expression indexes backing the case-insensitive lookups.
package store
