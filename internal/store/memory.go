package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore holds every document in memory and notifies watchers
// synchronously on each write.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[Path]Data
	docWatch map[Path]map[*Watch[DocumentEvent]]struct{}
	colWatch map[Path]map[*Watch[CollectionEvent]]struct{}
	closed   bool
	newID    func() string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[Path]Data),
		docWatch: make(map[Path]map[*Watch[DocumentEvent]]struct{}),
		colWatch: make(map[Path]map[*Watch[CollectionEvent]]struct{}),
		newID:    uuid.NewString,
	}
}

// Get retrieves a document by path
func (s *MemoryStore) Get(ctx context.Context, path Path) (Document, error) {
	if err := ValidateDocumentPath(path); err != nil {
		return Document{}, opErr("get", path, err)
	}
	if err := ctx.Err(); err != nil {
		return Document{}, opErr("get", path, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Document{}, opErr("get", path, ErrClosed)
	}

	data, exists := s.docs[path]
	if !exists {
		return Document{}, opErr("get", path, ErrNotFound)
	}
	return Document{ID: path.ID(), Path: path, Data: cloneData(data)}, nil
}

func (s *MemoryStore) List(ctx context.Context, collection Path) ([]Document, error) {
	if err := ValidateCollectionPath(collection); err != nil {
		return nil, opErr("list", collection, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, opErr("list", collection, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, opErr("list", collection, ErrClosed)
	}
	return s.listLocked(collection), nil
}

func (s *MemoryStore) Query(ctx context.Context, collection Path, field string, value any) ([]Document, error) {
	if err := ValidateCollectionPath(collection); err != nil {
		return nil, opErr("query", collection, err)
	}
	want, err := normalizeValue(value)
	if err != nil {
		return nil, opErr("query", collection, err)
	}
	docs, err := s.List(ctx, collection)
	if err != nil {
		return nil, err
	}

	matched := docs[:0]
	for _, d := range docs {
		if fieldEquals(d.Data, field, want) {
			matched = append(matched, d)
		}
	}
	return matched, nil
}

func (s *MemoryStore) Add(ctx context.Context, collection Path, data Data) (string, error) {
	if err := ValidateCollectionPath(collection); err != nil {
		return "", opErr("add", collection, err)
	}
	id := s.newID()
	if err := s.Put(ctx, collection.Child(id), data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) Put(ctx context.Context, path Path, data Data) error {
	if err := ValidateDocumentPath(path); err != nil {
		return opErr("put", path, err)
	}
	if err := ctx.Err(); err != nil {
		return opErr("put", path, err)
	}
	normalized, err := Encode(data)
	if err != nil {
		return opErr("put", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return opErr("put", path, ErrClosed)
	}

	s.docs[path] = normalized
	s.notifyLocked(path)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, path Path, fields Data) error {
	if err := ValidateDocumentPath(path); err != nil {
		return opErr("update", path, err)
	}
	if err := ctx.Err(); err != nil {
		return opErr("update", path, err)
	}
	normalized, err := Encode(fields)
	if err != nil {
		return opErr("update", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return opErr("update", path, ErrClosed)
	}

	current, exists := s.docs[path]
	if !exists {
		return opErr("update", path, ErrNotFound)
	}
	merged := cloneData(current)
	for k, v := range normalized {
		merged[k] = v
	}
	s.docs[path] = merged
	s.notifyLocked(path)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, path Path) error {
	if err := ValidateDocumentPath(path); err != nil {
		return opErr("delete", path, err)
	}
	if err := ctx.Err(); err != nil {
		return opErr("delete", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return opErr("delete", path, ErrClosed)
	}

	removed := make([]Path, 0, 1)
	for p := range s.docs {
		if p == path || path.Contains(p) {
			removed = append(removed, p)
		}
	}
	// Deepest first, so the parent disappears last.
	sort.Slice(removed, func(i, j int) bool { return len(removed[i]) > len(removed[j]) })
	for _, p := range removed {
		delete(s.docs, p)
		s.notifyLocked(p)
	}
	return nil
}

func (s *MemoryStore) WatchDocument(ctx context.Context, path Path) (*Watch[DocumentEvent], error) {
	if err := ValidateDocumentPath(path); err != nil {
		return nil, opErr("watch", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, opErr("watch", path, ErrClosed)
	}

	var w *Watch[DocumentEvent]
	w = newWatch[DocumentEvent](func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.docWatch[path], w)
		if len(s.docWatch[path]) == 0 {
			delete(s.docWatch, path)
		}
	})
	if s.docWatch[path] == nil {
		s.docWatch[path] = make(map[*Watch[DocumentEvent]]struct{})
	}
	s.docWatch[path][w] = struct{}{}
	w.deliver(s.documentEventLocked(path))
	w.stopWith(ctx)
	return w, nil
}

func (s *MemoryStore) WatchCollection(ctx context.Context, collection Path) (*Watch[CollectionEvent], error) {
	if err := ValidateCollectionPath(collection); err != nil {
		return nil, opErr("watch", collection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, opErr("watch", collection, ErrClosed)
	}

	var w *Watch[CollectionEvent]
	w = newWatch[CollectionEvent](func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.colWatch[collection], w)
		if len(s.colWatch[collection]) == 0 {
			delete(s.colWatch, collection)
		}
	})
	if s.colWatch[collection] == nil {
		s.colWatch[collection] = make(map[*Watch[CollectionEvent]]struct{})
	}
	s.colWatch[collection][w] = struct{}{}
	w.deliver(CollectionEvent{Documents: s.listLocked(collection)})
	w.stopWith(ctx)
	return w, nil
}

// Close stops every watch; later calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var docWatches []*Watch[DocumentEvent]
	for _, set := range s.docWatch {
		for w := range set {
			docWatches = append(docWatches, w)
		}
	}
	var colWatches []*Watch[CollectionEvent]
	for _, set := range s.colWatch {
		for w := range set {
			colWatches = append(colWatches, w)
		}
	}
	s.mu.Unlock()

	for _, w := range docWatches {
		w.Stop()
	}
	for _, w := range colWatches {
		w.Stop()
	}
	return nil
}

func (s *MemoryStore) listLocked(collection Path) []Document {
	docs := make([]Document, 0)
	for p, data := range s.docs {
		if p.Parent() == collection {
			docs = append(docs, Document{ID: p.ID(), Path: p, Data: cloneData(data)})
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

func (s *MemoryStore) documentEventLocked(path Path) DocumentEvent {
	data, exists := s.docs[path]
	if !exists {
		return DocumentEvent{Document: Document{ID: path.ID(), Path: path}}
	}
	return DocumentEvent{
		Document: Document{ID: path.ID(), Path: path, Data: cloneData(data)},
		Exists:   true,
	}
}

func (s *MemoryStore) notifyLocked(path Path) {
	if watchers := s.docWatch[path]; len(watchers) > 0 {
		ev := s.documentEventLocked(path)
		for w := range watchers {
			w.deliver(ev)
		}
	}
	collection := path.Parent()
	if watchers := s.colWatch[collection]; len(watchers) > 0 {
		ev := CollectionEvent{Documents: s.listLocked(collection)}
		for w := range watchers {
			w.deliver(ev)
		}
	}
}
