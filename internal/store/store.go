package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidPath = errors.New("invalid path")
	ErrClosed      = errors.New("store is closed")
)

// Data is the field map of a document.
type Data map[string]any

// Document is a snapshot of one stored document.
type Document struct {
	ID   string
	Path Path
	Data Data
}

// Decode decodes the document fields into out.
func (d Document) Decode(out any) error {
	return Decode(d.Data, out)
}

// DocumentEvent is one emission of a document watch. Exists is false once
// the document has been deleted (or never existed).
type DocumentEvent struct {
	Document Document
	Exists   bool
	Err      error
}

// CollectionEvent is one emission of a collection watch: the full, ID-sorted
// member list of the collection at that moment.
type CollectionEvent struct {
	Documents []Document
	Err       error
}

// Store is an observable, path-addressed document collection. Every write
// targets exactly one document; writers coordinate only through
// per-document last-write-wins.
type Store interface {
	// Get returns ErrNotFound when the document does not exist.
	Get(ctx context.Context, path Path) (Document, error)
	// List returns every document directly inside a collection. An empty or
	// missing collection yields an empty slice.
	List(ctx context.Context, collection Path) ([]Document, error)
	// Query returns the documents of a collection whose field equals value.
	Query(ctx context.Context, collection Path, field string, value any) ([]Document, error)
	// Add writes data under a store-assigned key and returns that key.
	Add(ctx context.Context, collection Path, data Data) (string, error)
	// Put creates or replaces a document.
	Put(ctx context.Context, path Path, data Data) error
	// Update merges fields into an existing document; ErrNotFound otherwise.
	Update(ctx context.Context, path Path, fields Data) error
	// Delete removes a document and everything below it. Deleting a missing
	// document is not an error.
	Delete(ctx context.Context, path Path) error
	// WatchDocument emits the current snapshot and then every change until
	// the watch is stopped or ctx is done.
	WatchDocument(ctx context.Context, path Path) (*Watch[DocumentEvent], error)
	// WatchCollection is WatchDocument for a whole collection.
	WatchCollection(ctx context.Context, collection Path) (*Watch[CollectionEvent], error)
	Close() error
}

// OpError records the operation and path that failed.
type OpError struct {
	Op   string
	Path Path
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func opErr(op string, path Path, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Path: path, Err: err}
}

// IsNotFound reports whether err means the addressed document is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
