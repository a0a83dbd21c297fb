package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeyPrefix    string
}

// maxUpdateRetries bounds optimistic-lock retries of Update.
const maxUpdateRetries = 5

// RedisStore keeps each document as a JSON string, indexes collection
// membership in a set per collection, and publishes a change notification on
// a channel per document and per collection. Watchers re-read on every
// notification, so they always emit the current state.
type RedisStore struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg RedisConfig, log *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "ninjanight:"
	}
	log.Info("redis store connected", zap.String("addr", cfg.Addr), zap.String("prefix", prefix))
	return &RedisStore{client: client, prefix: prefix, log: log}, nil
}

func (s *RedisStore) docKey(p Path) string        { return s.prefix + "doc:" + string(p) }
func (s *RedisStore) indexKey(col Path) string    { return s.prefix + "idx:" + string(col) }
func (s *RedisStore) changeChannel(p Path) string { return s.prefix + "chg:" + string(p) }

func (s *RedisStore) Get(ctx context.Context, path Path) (Document, error) {
	if err := ValidateDocumentPath(path); err != nil {
		return Document{}, opErr("get", path, err)
	}
	raw, err := s.client.Get(ctx, s.docKey(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Document{}, opErr("get", path, ErrNotFound)
	}
	if err != nil {
		return Document{}, opErr("get", path, err)
	}
	data, err := unmarshalData(raw)
	if err != nil {
		return Document{}, opErr("get", path, err)
	}
	return Document{ID: path.ID(), Path: path, Data: data}, nil
}

func (s *RedisStore) List(ctx context.Context, collection Path) ([]Document, error) {
	if err := ValidateCollectionPath(collection); err != nil {
		return nil, opErr("list", collection, err)
	}
	ids, err := s.client.SMembers(ctx, s.indexKey(collection)).Result()
	if err != nil {
		return nil, opErr("list", collection, err)
	}
	docs := make([]Document, 0, len(ids))
	if len(ids) == 0 {
		return docs, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(collection.Child(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, opErr("list", collection, err)
	}
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// Index entry outlived its document; skip it.
			continue
		}
		data, err := unmarshalData([]byte(str))
		if err != nil {
			return nil, opErr("list", collection, err)
		}
		p := collection.Child(ids[i])
		docs = append(docs, Document{ID: ids[i], Path: p, Data: data})
	}
	return docs, nil
}

func (s *RedisStore) Query(ctx context.Context, collection Path, field string, value any) ([]Document, error) {
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

func (s *RedisStore) Add(ctx context.Context, collection Path, data Data) (string, error) {
	if err := ValidateCollectionPath(collection); err != nil {
		return "", opErr("add", collection, err)
	}
	id := uuid.NewString()
	if err := s.Put(ctx, collection.Child(id), data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *RedisStore) Put(ctx context.Context, path Path, data Data) error {
	if err := ValidateDocumentPath(path); err != nil {
		return opErr("put", path, err)
	}
	normalized, err := Encode(data)
	if err != nil {
		return opErr("put", path, err)
	}
	raw, err := json.Marshal(normalized)
	if err != nil {
		return opErr("put", path, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.docKey(path), raw, 0)
		pipe.SAdd(ctx, s.indexKey(path.Parent()), path.ID())
		s.publishChange(ctx, pipe, path)
		return nil
	})
	return opErr("put", path, err)
}

func (s *RedisStore) Update(ctx context.Context, path Path, fields Data) error {
	if err := ValidateDocumentPath(path); err != nil {
		return opErr("update", path, err)
	}
	normalized, err := Encode(fields)
	if err != nil {
		return opErr("update", path, err)
	}

	key := s.docKey(path)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		current, err := unmarshalData(raw)
		if err != nil {
			return err
		}
		for k, v := range normalized {
			current[k] = v
		}
		merged, err := json.Marshal(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, merged, 0)
			s.publishChange(ctx, pipe, path)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return opErr("update", path, err)
		}
	}
	return opErr("update", path, fmt.Errorf("too much contention: %w", err))
}

func (s *RedisStore) Delete(ctx context.Context, path Path) error {
	if err := ValidateDocumentPath(path); err != nil {
		return opErr("delete", path, err)
	}

	removed := []Path{path}
	pattern := s.docKey(path) + "/*"
	iter := s.client.Scan(ctx, 0, escapeGlob(s.docKey(path))+"/*", 100).Iterator()
	for iter.Next(ctx) {
		removed = append(removed, Path(strings.TrimPrefix(iter.Val(), s.prefix+"doc:")))
	}
	if err := iter.Err(); err != nil {
		return opErr("delete", path, fmt.Errorf("scan %s: %w", pattern, err))
	}
	sort.Slice(removed, func(i, j int) bool { return len(removed[i]) > len(removed[j]) })

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range removed {
			if !p.IsDocument() {
				continue
			}
			pipe.Del(ctx, s.docKey(p))
			pipe.SRem(ctx, s.indexKey(p.Parent()), p.ID())
			s.publishChange(ctx, pipe, p)
		}
		return nil
	})
	return opErr("delete", path, err)
}

func (s *RedisStore) WatchDocument(ctx context.Context, path Path) (*Watch[DocumentEvent], error) {
	if err := ValidateDocumentPath(path); err != nil {
		return nil, opErr("watch", path, err)
	}
	read := func(ctx context.Context) DocumentEvent {
		doc, err := s.Get(ctx, path)
		switch {
		case err == nil:
			return DocumentEvent{Document: doc, Exists: true}
		case IsNotFound(err):
			return DocumentEvent{Document: Document{ID: path.ID(), Path: path}}
		default:
			return DocumentEvent{Err: err}
		}
	}
	return watchChannel(ctx, s, path, read)
}

func (s *RedisStore) WatchCollection(ctx context.Context, collection Path) (*Watch[CollectionEvent], error) {
	if err := ValidateCollectionPath(collection); err != nil {
		return nil, opErr("watch", collection, err)
	}
	read := func(ctx context.Context) CollectionEvent {
		docs, err := s.List(ctx, collection)
		if err != nil {
			return CollectionEvent{Err: err}
		}
		return CollectionEvent{Documents: docs}
	}
	return watchChannel(ctx, s, collection, read)
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// publishChange notifies watchers of the document and of its collection.
func (s *RedisStore) publishChange(ctx context.Context, pipe redis.Pipeliner, p Path) {
	pipe.Publish(ctx, s.changeChannel(p), "changed")
	pipe.Publish(ctx, s.changeChannel(p.Parent()), string(p))
}

func watchChannel[T any](ctx context.Context, s *RedisStore, p Path, read func(context.Context) T) (*Watch[T], error) {
	sub := s.client.Subscribe(ctx, s.changeChannel(p))
	// Wait for the subscription to be confirmed so no change between the
	// initial read and the first message is missed.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, opErr("watch", p, err)
	}

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w := newWatch[T](func() {
		cancel()
		sub.Close()
	})
	w.stopWith(ctx)

	messages := sub.Channel()
	go func() {
		w.deliver(read(watchCtx))
		for {
			select {
			case <-w.Done():
				return
			case _, ok := <-messages:
				if !ok {
					w.Stop()
					return
				}
				w.deliver(read(watchCtx))
			}
		}
	}()
	return w, nil
}

func unmarshalData(raw []byte) (Data, error) {
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("corrupt document: %w", err)
	}
	if data == nil {
		data = Data{}
	}
	return data, nil
}

// escapeGlob quotes the characters SCAN MATCH treats specially.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
