package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/minsu-cho/plaza/internal/errs"
	"github.com/minsu-cho/plaza/internal/model"
	"github.com/minsu-cho/plaza/internal/store"
)

// fakeSession returns a fixed principal.
type fakeSession struct{ user *model.Principal }

var _ Session = (*fakeSession)(nil)

func (f *fakeSession) CurrentUser() *model.Principal {
	if f.user == nil {
		return nil
	}
	cur := *f.user
	return &cur
}

// fakeStore is an in-memory store that counts calls and advances a fake
// clock one second per insert so creation order is observable.
type fakeStore struct {
	docs  map[string]map[string]*store.Document
	seq   int
	clock time.Time

	insertCalls int
	getCalls    int
	listCalls   int
	updateCalls int
	deleteCalls int

	insertErr error
	updateErr error
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:  map[string]map[string]*store.Document{},
		clock: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) calls() int {
	return f.insertCalls + f.getCalls + f.listCalls + f.updateCalls + f.deleteCalls
}

func (f *fakeStore) put(collection string, doc *store.Document) {
	if f.docs[collection] == nil {
		f.docs[collection] = map[string]*store.Document{}
	}
	f.docs[collection][doc.ID] = doc
}

func (f *fakeStore) Insert(_ context.Context, collection string, doc *store.Document) (string, error) {
	f.insertCalls++
	if f.insertErr != nil {
		return "", f.insertErr
	}
	f.seq++
	f.clock = f.clock.Add(time.Second)
	d := *doc
	d.ID = fmt.Sprintf("doc-%d", f.seq)
	d.CreatedAt = f.clock
	d.UpdatedAt = f.clock
	if d.LikedBy == nil {
		d.LikedBy = []string{}
	}
	f.put(collection, &d)
	return d.ID, nil
}

func (f *fakeStore) GetOne(_ context.Context, collection, id string) (*store.Document, error) {
	f.getCalls++
	doc, ok := f.docs[collection][id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cpy := *doc
	cpy.LikedBy = append([]string(nil), doc.LikedBy...)
	return &cpy, nil
}

func (f *fakeStore) ListOrdered(_ context.Context, collection, orderField string, dir store.Direction, filter *store.Filter) ([]store.Document, error) {
	f.listCalls++
	if orderField != store.FieldCreatedAt {
		return nil, errs.Store("list", fmt.Errorf("order field %q", orderField))
	}
	var out []store.Document
	for _, doc := range f.docs[collection] {
		if filter != nil && doc.PostID != filter.Value {
			continue
		}
		out = append(out, *doc)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if dir == store.Desc {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, collection, id string, u store.Update) error {
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	doc, ok := f.docs[collection][id]
	if !ok {
		return errs.ErrNotFound
	}
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
	doc.UpdatedAt = f.clock
	return nil
}

func (f *fakeStore) Delete(_ context.Context, collection, id string) error {
	f.deleteCalls++
	delete(f.docs[collection], id)
	return nil
}
