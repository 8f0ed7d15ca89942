// Package store is a schemaless document store. Documents are JSON
// objects keyed by UUID and grouped into collections; the store knows
// nothing about the entities inside them.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type Collection string

const (
	Movies  Collection = "movies"
	Tickets Collection = "tickets"
	Users   Collection = "users"
)

// Collections lists every collection the store manages.
var Collections = []Collection{Movies, Tickets, Users}

// UniqueKeys names the document fields that must be unique per collection.
var UniqueKeys = map[Collection][]string{
	Users: {"user_login"},
}

// KeyID is the key a DuplicateKeyError names when a document ID is reused.
const KeyID = "id"

// uniqueIndexes maps the database unique indexes to the fields they cover.
var uniqueIndexes = map[string]string{
	"users_login_unique": "user_login",
}

var (
	// ErrNoMatch is returned by writes that matched no document, including a
	// ReplaceIf whose expected state no longer holds.
	ErrNoMatch = errors.New("no document matched")
	// ErrDuplicateKey is returned when a write would break a unique key or
	// reuse an existing ID.
	ErrDuplicateKey        = errors.New("duplicate key")
	ErrUnsupportedPipeline = errors.New("unsupported pipeline")
	ErrUnknownCollection   = errors.New("unknown collection")
)

// DuplicateKeyError reports which unique key a write would break: a field
// from UniqueKeys, or KeyID.
type DuplicateKeyError struct {
	Collection Collection
	Key        string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s: %s on %s", e.Collection, ErrDuplicateKey, e.Key)
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }

// DuplicateKey returns the key named by a duplicate-key error in err's chain.
func DuplicateKey(err error) (string, bool) {
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return dup.Key, true
	}
	return "", false
}

func (c Collection) validate() error {
	for _, known := range Collections {
		if c == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownCollection, string(c))
}

// Reader is the read side of the store. FindByID returns nil, nil when the
// document does not exist.
type Reader interface {
	FindByID(ctx context.Context, coll Collection, id uuid.UUID) ([]byte, error)
	Find(ctx context.Context, coll Collection, f Filter) ([][]byte, error)
	Aggregate(ctx context.Context, coll Collection, p Pipeline) ([][]byte, error)
	Count(ctx context.Context, coll Collection, f Filter) (int64, error)
}

// Gateway is the full store. Every write is atomic on a single document.
type Gateway interface {
	Reader
	Insert(ctx context.Context, coll Collection, id uuid.UUID, doc []byte) error
	Replace(ctx context.Context, coll Collection, id uuid.UUID, doc []byte) error
	// ReplaceIf swaps the document only while it still equals expected.
	ReplaceIf(ctx context.Context, coll Collection, id uuid.UUID, expected, doc []byte) error
	Delete(ctx context.Context, coll Collection, id uuid.UUID) error
	// ReadOnly runs fn against a consistent snapshot of every collection.
	ReadOnly(ctx context.Context, fn func(ctx context.Context, r Reader) error) error
	Ping(ctx context.Context) error
	Close()
}
