package core

import "context"

// Store defines the contract for a document store.
// Adhering to this interface keeps the writer independent of the
// underlying storage mechanism (Firestore, MongoDB, Postgres, filesystem).
type Store interface {
	// Set writes the record under id, replacing any existing document entirely.
	Set(ctx context.Context, collection, id string, rec Record) error

	// Get reads the record stored under id. It returns ErrNotFound if absent.
	Get(ctx context.Context, collection, id string) (Record, error)

	// Count returns the number of documents in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// Close releases the client and credential held by the store.
	Close() error
}
