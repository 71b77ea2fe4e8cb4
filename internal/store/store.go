// Package store defines the content-store boundary: collection-parameterized
// CRUD with ordered queries and the atomic mutation primitives the like
// toggle relies on. Concrete backends live in subpackages.
package store

import (
	"context"
	"time"
)

// Collection names used by the board.
const (
	Posts    = "posts"
	Comments = "comments"
)

// Queryable/orderable document fields.
const (
	FieldCreatedAt = "createdAt"
	FieldPostID    = "postId"
)

// Direction orders a listing by the order field.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Filter is a single-field equality filter.
type Filter struct {
	Field string
	Value string
}

// Document is the union record shape stored in the posts and comments
// collections. PostID is empty for posts. ID and both timestamps are assigned
// by the store on insert.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	PostID    string    `json:"postId,omitempty"`
	Author    string    `json:"author"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Likes     int64     `json:"likes"`
	LikedBy   []string  `json:"likedBy"`
}

// Update is a partial-field merge plus the atomic mutation primitives, all
// applied by the backend as one individually-atomic request. AddLiked is a
// set-add: a no-op on membership while IncLikes still applies, matching the
// documented toggle race semantics.
type Update struct {
	Set      map[string]string // partial merge of text fields (title, content)
	IncLikes *int64            // atomic delta on the likes counter
	AddLiked *string           // atomic set-add to likedBy
	DelLiked *string           // atomic set-remove from likedBy
}

// Empty reports whether the update carries no mutation at all.
func (u Update) Empty() bool {
	return len(u.Set) == 0 && u.IncLikes == nil && u.AddLiked == nil && u.DelLiked == nil
}

// Store is the document-store facade consumed by the services. Every call
// suspends the caller until the backend resolves; errors surface as
// errs.ErrNotFound or wrapped StoreError values, never retried here.
type Store interface {
	// Insert writes a new document, assigning its ID and timestamps, and
	// returns the assigned ID.
	Insert(ctx context.Context, collection string, doc *Document) (string, error)
	// GetOne loads a single document or errs.ErrNotFound.
	GetOne(ctx context.Context, collection, id string) (*Document, error)
	// ListOrdered returns the entire matching set ordered by orderField.
	// filter may be nil. Re-listing re-executes the query.
	ListOrdered(ctx context.Context, collection, orderField string, dir Direction, filter *Filter) ([]Document, error)
	// Update applies a partial merge and/or atomic primitives in one request.
	Update(ctx context.Context, collection, id string, u Update) error
	// Delete removes a document. Deleting an absent document is not an error.
	Delete(ctx context.Context, collection, id string) error
}
