package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/expr"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "paneltree:doc:"

// Store implements ports.DocumentStore on Redis.
//
// Each document is a JSON string under prefix+id. The ids are also kept in a
// sorted set (prefix+"index") scored by expiry time, so List can drop
// expired entries without scanning the keyspace.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	codec  domain.Codec
}

// Option configures the Store.
type Option func(*Store)

// WithTTL expires documents after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithCodec sets the expression codec used to encode documents.
func WithCodec(c domain.Codec) Option {
	return func(s *Store) {
		s.codec = c
	}
}

// New connects to the Redis server at addr.
func New(addr string, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{Addr: addr}), opts...)
}

// NewFromClient creates a store over an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
		codec:  expr.Codec{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() *backend.Client { return s.client }

func (s *Store) key(id string) string { return s.prefix + id }
func (s *Store) indexKey() string     { return s.prefix + "index" }

// Save writes the document and refreshes its index entry.
func (s *Store) Save(ctx context.Context, doc *domain.Document) error {
	data, err := domain.MarshalDocument(doc, s.codec)
	if err != nil {
		return err
	}

	score := math.Inf(1)
	if s.ttl > 0 {
		score = float64(time.Now().Add(s.ttl).Unix())
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(doc.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: doc.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save %s: %w", doc.ID, err)
	}
	return nil
}

// Load reads a document.
func (s *Store) Load(ctx context.Context, id string) (*domain.Document, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis load %s: %w", id, err)
	}
	return domain.UnmarshalDocument(data, s.codec)
}

// Delete removes the document and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete %s: %w", id, err)
	}
	return nil
}

// List returns the ids of live documents. Expired index entries are pruned lazily.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", "("+now).Err(); err != nil {
		return nil, fmt.Errorf("redis prune index: %w", err)
	}
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	return ids, nil
}
