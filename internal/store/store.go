// ABOUTME: Catalog types, errors and the Catalog interface for setlist-bot persistence
// ABOUTME: Defines Song, Album structs and the operations the command layer consumes

package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrDuplicateSong is returned by CreateSong when a song with the same
// title (compared case-insensitively) already exists. It signals a normal
// "already exists" outcome, not a storage failure: no row was inserted.
var ErrDuplicateSong = errors.New("song already exists")

// StorageError wraps any failure from the underlying database. Op names
// the catalog operation that failed. It unwraps to the driver error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// storageErr wraps err as a *StorageError for the given operation.
func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// Song is a catalog entry. IDs are assigned by the store and never reused.
// The Album field is free text: it may name an Album row or not, and no
// foreign-key relationship is enforced.
type Song struct {
	ID    int64
	Title string
	Album string
}

// Album is a named grouping for songs.
type Album struct {
	ID   int64
	Name string
}

// MaxSampleSize bounds how many rows SampleSongs returns per call.
const MaxSampleSize = 25

// Catalog defines the operations the command layer performs against the
// song/album catalog. Implementations serialize all operations against
// the single database handle; see SQLiteStore.
//
// DeleteAlbum and the CreateSong duplicate check compare names and titles
// case-insensitively. ListSongs and SampleSongs filter by exact album
// string. The asymmetry is deliberate and pinned by tests; see the
// package documentation before changing either side.
type Catalog interface {
	// Albums
	CreateAlbum(ctx context.Context, name string) (int64, error)
	DeleteAlbum(ctx context.Context, name string) (bool, error)
	ListAlbums(ctx context.Context) ([]Album, error)
	SearchAlbumNames(ctx context.Context, prefix string) ([]string, error)

	// Songs
	CreateSong(ctx context.Context, title, album string) (int64, error)
	DeleteSong(ctx context.Context, id int64) (bool, error)
	ListSongs(ctx context.Context, albumFilter string) ([]Song, error)
	SampleSongs(ctx context.Context, albumFilter string, count int) ([]Song, error)
}
