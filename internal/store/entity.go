package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// maxTxnRetries bounds retries of read-modify-write transactions that lost
// an optimistic concurrency race.
const maxTxnRetries = 5

// Entity provides generic CRUD operations for any domain type, keeping its
// secondary indexes consistent inside the same Badger transaction.
type Entity[T any] struct {
	store   *Store
	prefix  string
	indexes []Index[T]
}

// Index defines a non-unique secondary index on an entity. keyGen returns
// the index values a record is filed under.
type Index[T any] struct {
	name   string
	keyGen func(*T) []string
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{
		store:   s,
		prefix:  prefix,
		indexes: make([]Index[T], 0),
	}
}

// WithIndex adds a secondary index to the entity.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen})
	return e
}

// Create creates a new entity with the given ID.
// Returns ErrAlreadyExists if an entity with this ID already exists.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	return e.store.update(func(txn *badger.Txn) error {
		_, err := txn.Get(recordKey(e.prefix, id))
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check existing key: %w", err)
		}

		if err := txn.Set(recordKey(e.prefix, id), data); err != nil {
			return fmt.Errorf("failed to set key: %w", err)
		}
		return e.writeIndexes(txn, id, nil, entity)
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
		entity, err = e.load(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// Update applies fn to the stored entity and writes the result back in one
// transaction. Returns ErrNotFound if the entity does not exist. An error
// from fn aborts the write.
func (e *Entity[T]) Update(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	var result *T
	_, err := e.Upsert(ctx, id, func(current *T) (*T, error) {
		if current == nil {
			return nil, ErrNotFound
		}
		if err := fn(current); err != nil {
			return nil, err
		}
		result = current
		return current, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Upsert reads the entity (nil when absent), passes it to fn and stores
// whatever fn returns. Returning nil from fn skips the write. The read and
// the write happen in one transaction, so concurrent writers to the same id
// are serialized. Reports whether a write happened.
func (e *Entity[T]) Upsert(ctx context.Context, id string, fn func(current *T) (*T, error)) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var written bool
	err := e.store.update(func(txn *badger.Txn) error {
		written = false

		current, err := e.load(txn, id)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}

		var old *T
		if current != nil {
			// Keep a pristine copy for index cleanup; fn may mutate current.
			old, err = e.load(txn, id)
			if err != nil {
				return err
			}
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal entity: %w", err)
		}
		if err := txn.Set(recordKey(e.prefix, id), data); err != nil {
			return fmt.Errorf("failed to set key: %w", err)
		}
		if err := e.writeIndexes(txn, id, old, next); err != nil {
			return err
		}

		written = true
		return nil
	})
	return written, err
}

// List returns an iterator over all entities.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		prefix := []byte(e.prefix)

		//nolint:errcheck // Errors are delivered through yield.
		e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			opts.PrefetchValues = true

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if ctx.Err() != nil {
					yield(nil, ctx.Err())
					return ctx.Err()
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
					return nil
				}
			}
			return nil
		})
	}
}

// ListByIndex returns an iterator over entities filed under value in the
// named index. Order follows the record ids.
func (e *Entity[T]) ListByIndex(ctx context.Context, name, value string) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		prefix := indexPrefix(e.prefix, name, value)

		//nolint:errcheck // Errors are delivered through yield.
		e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			opts.PrefetchValues = false

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if ctx.Err() != nil {
					yield(nil, ctx.Err())
					return ctx.Err()
				}

				id := string(bytes.TrimPrefix(it.Item().Key(), prefix))
				entity, err := e.load(txn, id)
				if errors.Is(err, ErrNotFound) {
					// Dangling entry; the record was removed without its index.
					continue
				}
				if err != nil {
					yield(nil, err)
					return err
				}

				if !yield(entity, nil) {
					return nil
				}
			}
			return nil
		})
	}
}

// DropAll removes every entity and index entry of this type.
func (e *Entity[T]) DropAll() error {
	return e.store.db.DropPrefix([]byte(e.prefix), []byte(indexRoot+e.prefix))
}

// load reads and decodes one entity inside txn.
func (e *Entity[T]) load(txn *badger.Txn, id string) (*T, error) {
	item, err := txn.Get(recordKey(e.prefix, id))
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

// writeIndexes moves index entries from old to next. Either may be nil.
// Entries shared by both are left in place.
func (e *Entity[T]) writeIndexes(txn *badger.Txn, id string, old, next *T) error {
	for _, idx := range e.indexes {
		keep := make(map[string]bool)
		if next != nil {
			for _, v := range idx.keyGen(next) {
				keep[v] = true
			}
		}

		if old != nil {
			for _, v := range idx.keyGen(old) {
				if keep[v] {
					delete(keep, v)
					continue
				}
				if err := txn.Delete(indexKey(e.prefix, idx.name, v, id)); err != nil {
					return fmt.Errorf("failed to delete index key: %w", err)
				}
			}
		}

		for v := range keep {
			if err := txn.Set(indexKey(e.prefix, idx.name, v, id), nil); err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
	}
	return nil
}
