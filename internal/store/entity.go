package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// maxConflictRetries bounds Mutate retries when badger reports a write
// conflict between concurrent transactions on the same keys.
const maxConflictRetries = 5

// Entity provides generic CRUD operations for any domain type.
//
// Key layout for an entity with prefix "recipe:":
//
//	recipe:<id>                          → JSON document
//	recipe:idx:<name>:<value>            → <id>   (unique index)
//	recipe:midx:<name>:<value>:<id>      → empty  (multi-value index)
type Entity[T any] struct {
	store   *Store
	prefix  string
	indexes []Index[T]
	multi   []Index[T]
}

// Index defines a secondary index on an entity.
type Index[T any] struct {
	name            string
	keyGen          func(*T) []string
	lookupTransform func(string) string // Optional transformation for lookups
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{
		store:   s,
		prefix:  prefix,
		indexes: make([]Index[T], 0),
	}
}

// WithIndex adds a unique secondary index to the entity.
// Empty keys produced by keyGen are not indexed.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{
		name:   name,
		keyGen: keyGen,
	})
	return e
}

// WithIndexTransform adds a unique secondary index with lookup transformation.
// The lookupTransform function is applied to search values before index lookup,
// enabling case-insensitive searches, normalization, etc.
func (e *Entity[T]) WithIndexTransform(name string, keyGen func(*T) []string, lookupTransform func(string) string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{
		name:            name,
		keyGen:          keyGen,
		lookupTransform: lookupTransform,
	})
	return e
}

// WithMultiIndex adds a non-unique secondary index. Many entities may share
// a value; ListIDsByIndex returns all of them.
func (e *Entity[T]) WithMultiIndex(name string, keyGen func(*T) []string, lookupTransform func(string) string) *Entity[T] {
	e.multi = append(e.multi, Index[T]{
		name:            name,
		keyGen:          keyGen,
		lookupTransform: lookupTransform,
	})
	return e
}

func (e *Entity[T]) uniqueKey(name, value string) []byte {
	return []byte(e.prefix + "idx:" + name + ":" + value)
}

func (e *Entity[T]) multiPrefix(name, value string) string {
	return e.prefix + "midx:" + name + ":" + value + ":"
}

// keys returns the non-empty, de-duplicated keys an index produces.
func keys[T any](idx Index[T], entity *T) []string {
	if entity == nil {
		return nil
	}
	raw := idx.keyGen(entity)
	out := raw[:0:0]
	seen := make(map[string]struct{}, len(raw))
	for _, k := range raw {
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// write stores entity under id inside txn, replacing the index entries of
// old (nil on create). Unique index conflicts with other entities return
// ErrAlreadyExists.
func (e *Entity[T]) write(txn *badger.Txn, id string, old, entity *T) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	for _, idx := range e.indexes {
		oldKeys := make(map[string]bool)
		for _, k := range keys(idx, old) {
			oldKeys[k] = true
		}
		for _, k := range keys(idx, entity) {
			if oldKeys[k] {
				continue
			}
			_, err := txn.Get(e.uniqueKey(idx.name, k))
			if err == nil {
				return fmt.Errorf("index %s conflict on key %s: %w", idx.name, k, ErrAlreadyExists)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("failed to check index key: %w", err)
			}
		}
	}

	if err := e.dropIndexes(txn, id, old); err != nil {
		return err
	}

	if err := txn.Set([]byte(e.prefix+id), data); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	for _, idx := range e.indexes {
		for _, k := range keys(idx, entity) {
			if err := txn.Set(e.uniqueKey(idx.name, k), []byte(id)); err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
	}
	for _, idx := range e.multi {
		for _, k := range keys(idx, entity) {
			if err := txn.Set([]byte(e.multiPrefix(idx.name, k)+id), []byte{}); err != nil {
				return fmt.Errorf("failed to set multi index key: %w", err)
			}
		}
	}
	return nil
}

// dropIndexes deletes every index entry derived from entity.
func (e *Entity[T]) dropIndexes(txn *badger.Txn, id string, entity *T) error {
	if entity == nil {
		return nil
	}
	for _, idx := range e.indexes {
		for _, k := range keys(idx, entity) {
			if err := txn.Delete(e.uniqueKey(idx.name, k)); err != nil {
				return fmt.Errorf("failed to delete index key: %w", err)
			}
		}
	}
	for _, idx := range e.multi {
		for _, k := range keys(idx, entity) {
			if err := txn.Delete([]byte(e.multiPrefix(idx.name, k) + id)); err != nil {
				return fmt.Errorf("failed to delete multi index key: %w", err)
			}
		}
	}
	return nil
}

// read loads the entity stored under id inside txn.
func (e *Entity[T]) read(txn *badger.Txn, id string) (*T, error) {
	item, err := txn.Get([]byte(e.prefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var entity T
	err = item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, &entity); err != nil {
			return fmt.Errorf("failed to unmarshal entity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// Create creates a new entity with the given ID.
// Returns ErrAlreadyExists if an entity with this ID or a unique index value
// already exists.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(e.prefix + id))
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check existing key: %w", err)
		}
		return e.write(txn, id, nil, entity)
	})
}

// Get retrieves an entity by ID.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		var err error
		entity, err = e.read(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// transform applies the lookup transform registered for indexName, if any.
func (e *Entity[T]) transform(indexes []Index[T], indexName, value string) string {
	for _, idx := range indexes {
		if idx.name == indexName && idx.lookupTransform != nil {
			return idx.lookupTransform(value)
		}
	}
	return value
}

// GetByIndex retrieves an entity by unique secondary index.
// If the index has a lookup transform, it will be applied to the value before lookup.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	value = e.transform(e.indexes, indexName, value)
	if value == "" {
		return nil, ErrNotFound
	}

	var entity *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(e.uniqueKey(indexName, value))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var id string
		if err := item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}

		entity, err = e.read(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// ListIDsByIndex returns the ids of every entity whose multi-value index
// name contains value, in key order.
func (e *Entity[T]) ListIDsByIndex(ctx context.Context, indexName, value string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	value = e.transform(e.multi, indexName, value)
	if value == "" {
		return nil, nil
	}

	prefix := []byte(e.multiPrefix(indexName, value))
	var ids []string
	err := e.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListByIndex returns every entity whose multi-value index contains value.
func (e *Entity[T]) ListByIndex(ctx context.Context, indexName, value string) ([]*T, error) {
	ids, err := e.ListIDsByIndex(ctx, indexName, value)
	if err != nil {
		return nil, err
	}
	return e.GetMany(ctx, ids)
}

// GetMany loads the entities for ids, skipping ids that no longer exist.
func (e *Entity[T]) GetMany(ctx context.Context, ids []string) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(ids))
	err := e.store.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			entity, err := e.read(txn, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, entity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces an existing entity.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Update(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		old, err := e.read(txn, id)
		if err != nil {
			return err
		}
		return e.write(txn, id, old, entity)
	})
}

// Mutate reads the entity, applies fn and writes the result in a single
// transaction. fn may be called more than once when concurrent writers
// conflict, so it must only touch the entity it is given. Returning an error
// from fn aborts without writing.
func (e *Entity[T]) Mutate(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	var result *T
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		err = e.store.db.Update(func(txn *badger.Txn) error {
			old, err := e.read(txn, id)
			if err != nil {
				return err
			}
			// Decode a second copy so fn cannot alias the index state of old.
			current, err := e.read(txn, id)
			if err != nil {
				return err
			}
			if err := fn(current); err != nil {
				return err
			}
			result = current
			return e.write(txn, id, old, current)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete deletes an entity by ID.
// This operation is idempotent - it does not return an error if the entity does not exist.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		old, err := e.read(txn, id)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := e.dropIndexes(txn, id, old); err != nil {
			return err
		}
		if err := txn.Delete([]byte(e.prefix + id)); err != nil {
			return fmt.Errorf("failed to delete key: %w", err)
		}
		return nil
	})
}

// List returns an iterator over all entities.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		_ = e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)
			opts.PrefetchValues = true

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek([]byte(e.prefix)); it.ValidForPrefix([]byte(e.prefix)); it.Next() {
				if ctx.Err() != nil {
					yield(nil, ctx.Err())
					return ctx.Err()
				}

				// Skip index keys
				remainder := string(it.Item().Key()[len(e.prefix):])
				if strings.HasPrefix(remainder, "idx:") || strings.HasPrefix(remainder, "midx:") {
					continue
				}

				var entity T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				})
				if err != nil {
					yield(nil, err)
					return err
				}

				if !yield(&entity, nil) {
					return nil // Consumer stopped early
				}
			}

			return nil
		})
	}
}

// All collects List into a slice.
func (e *Entity[T]) All(ctx context.Context) ([]*T, error) {
	var out []*T
	for entity, err := range e.List(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}
