// Package badgerstore implements the store boundary on an embedded Badger
// database. Documents are JSON values at "<collection>/<id>" keys; every
// update is applied inside a single Badger transaction.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/minsu-cho/plaza/internal/errs"
	"github.com/minsu-cho/plaza/internal/store"
)

// Store is a Badger-backed document store.
type Store struct {
	db     *badger.DB
	logger *zap.Logger
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the debug logger.
func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.logger = l } }

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// Open opens (or creates) the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(path).
		WithLogger(nil).
		WithNumVersionsToKeep(1))
	if err != nil {
		return nil, errs.Store("open", err)
	}
	s := &Store{db: db, logger: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func key(collection, id string) []byte {
	return []byte(collection + "/" + id)
}

// Insert assigns a fresh ID and server timestamps, then writes the document.
func (s *Store) Insert(_ context.Context, collection string, doc *store.Document) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", errs.Store("insert", err)
	}
	now := s.now().UTC()

	d := *doc
	d.ID = id.String()
	d.CreatedAt = now
	d.UpdatedAt = now
	if d.LikedBy == nil {
		d.LikedBy = []string{}
	}

	data, err := json.Marshal(&d)
	if err != nil {
		return "", errs.Store("insert", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(collection, d.ID), data)
	})
	if err != nil {
		return "", errs.Store("insert", err)
	}
	s.logger.Debug("document inserted",
		zap.String("collection", collection), zap.String("id", d.ID))
	return d.ID, nil
}

// GetOne loads a single document or errs.ErrNotFound.
func (s *Store) GetOne(_ context.Context, collection, id string) (*store.Document, error) {
	var doc store.Document
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(collection, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errs.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errs.Store("get", err)
	}
	return &doc, nil
}

// ListOrdered scans the collection prefix and orders the result in memory.
// Only the createdAt field is orderable.
func (s *Store) ListOrdered(_ context.Context, collection, orderField string, dir store.Direction, filter *store.Filter) ([]store.Document, error) {
	if orderField != store.FieldCreatedAt {
		return nil, errs.Store("list", fmt.Errorf("unsupported order field %q", orderField))
	}

	var docs []store.Document
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(collection + "/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var doc store.Document
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			})
			if err != nil {
				return err
			}
			if filter != nil && !matches(&doc, filter) {
				continue
			}
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return nil, errs.Store("list", err)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if dir == store.Desc {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
	return docs, nil
}

func matches(doc *store.Document, f *store.Filter) bool {
	switch f.Field {
	case store.FieldPostID:
		return doc.PostID == f.Value
	default:
		return false
	}
}

// Update applies the merge and atomic primitives as one read-modify-write
// transaction. The set-add is a membership no-op while the counter delta
// still applies, mirroring the backend primitives the toggle depends on.
func (s *Store) Update(_ context.Context, collection, id string, u store.Update) error {
	if u.Empty() {
		return nil
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		k := key(collection, id)
		item, err := txn.Get(k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errs.ErrNotFound
		}
		if err != nil {
			return err
		}
		var doc store.Document
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		}); err != nil {
			return err
		}

		applyUpdate(&doc, u)
		doc.UpdatedAt = s.now().UTC()

		data, err := json.Marshal(&doc)
		if err != nil {
			return err
		}
		return txn.Set(k, data)
	})
	if errors.Is(err, errs.ErrNotFound) {
		return errs.ErrNotFound
	}
	return errs.Store("update", err)
}

func applyUpdate(doc *store.Document, u store.Update) {
	for field, v := range u.Set {
		switch field {
		case "title":
			doc.Title = v
		case "content":
			doc.Content = v
		}
	}
	if u.IncLikes != nil {
		doc.Likes += *u.IncLikes
	}
	if u.AddLiked != nil {
		member := false
		for _, m := range doc.LikedBy {
			if m == *u.AddLiked {
				member = true
				break
			}
		}
		if !member {
			doc.LikedBy = append(doc.LikedBy, *u.AddLiked)
		}
	}
	if u.DelLiked != nil {
		kept := doc.LikedBy[:0]
		for _, m := range doc.LikedBy {
			if m != *u.DelLiked {
				kept = append(kept, m)
			}
		}
		doc.LikedBy = kept
	}
}

// Delete removes the document. Absent documents are not an error.
func (s *Store) Delete(_ context.Context, collection, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(collection, id))
	})
	return errs.Store("delete", err)
}
