package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/minsu-cho/plaza/internal/errs"
	"github.com/minsu-cho/plaza/internal/store"
)

// DocumentStore implements store.Store on a single documents table.
// Each Update call is one SQL statement, so the counter delta and the
// liker-set mutation it carries apply atomically per request.
type DocumentStore struct{ db *DB }

var _ store.Store = (*DocumentStore)(nil)

// NewDocumentStore constructs a document store.
func NewDocumentStore(db *DB) *DocumentStore { return &DocumentStore{db: db} }

const docColumns = `id, title, content, post_id, author, author_id, created_at, updated_at, likes, liked_by`

// mergeCols maps partial-merge field names to table columns.
var mergeCols = map[string]string{
	"title":   "title",
	"content": "content",
}

// Insert writes a new document. Timestamps come from the database defaults;
// the assigned ID is returned.
func (s *DocumentStore) Insert(ctx context.Context, collection string, doc *store.Document) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", errs.Store("insert", err)
	}
	const q = `
INSERT INTO documents (id, collection, title, content, post_id, author, author_id, likes, liked_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = s.db.Pool.Exec(ctx, q,
		id.String(), collection, doc.Title, doc.Content, doc.PostID,
		doc.Author, doc.AuthorID, doc.Likes, doc.LikedBy)
	if err != nil {
		return "", errs.Store("insert", err)
	}
	return id.String(), nil
}

// GetOne loads a single document or errs.ErrNotFound.
func (s *DocumentStore) GetOne(ctx context.Context, collection, id string) (*store.Document, error) {
	q := `SELECT ` + docColumns + ` FROM documents WHERE collection=$1 AND id=$2`
	row := s.db.Pool.QueryRow(ctx, q, collection, id)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errs.Store("get", err)
	}
	return doc, nil
}

// ListOrdered returns the entire matching set ordered by created_at.
func (s *DocumentStore) ListOrdered(ctx context.Context, collection, orderField string, dir store.Direction, filter *store.Filter) ([]store.Document, error) {
	if orderField != store.FieldCreatedAt {
		return nil, errs.Store("list", fmt.Errorf("unsupported order field %q", orderField))
	}
	q := `SELECT ` + docColumns + ` FROM documents WHERE collection=$1`
	args := []any{collection}
	if filter != nil {
		if filter.Field != store.FieldPostID {
			return nil, errs.Store("list", fmt.Errorf("unsupported filter field %q", filter.Field))
		}
		args = append(args, filter.Value)
		q += fmt.Sprintf(" AND post_id=$%d", len(args))
	}
	q += " ORDER BY created_at " + sqlDirection(dir)

	rows, err := s.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, errs.Store("list", err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, errs.Store("list", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Store("list", err)
	}
	return docs, nil
}

// Update applies the partial merge and atomic primitives as one UPDATE
// statement. A set-add on an existing member leaves the array untouched
// while the counter delta still applies.
func (s *DocumentStore) Update(ctx context.Context, collection, id string, u store.Update) error {
	if u.Empty() {
		return nil
	}
	if u.AddLiked != nil && u.DelLiked != nil {
		return errs.Store("update", errors.New("set-add and set-remove in one request"))
	}

	sets := []string{"updated_at = now()"}
	args := []any{collection, id}
	arg := func(v any) int {
		args = append(args, v)
		return len(args)
	}

	fields := make([]string, 0, len(u.Set))
	for f := range u.Set {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		col, ok := mergeCols[f]
		if !ok {
			return errs.Store("update", fmt.Errorf("unsupported merge field %q", f))
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, arg(u.Set[f])))
	}
	if u.IncLikes != nil {
		sets = append(sets, fmt.Sprintf("likes = likes + $%d", arg(*u.IncLikes)))
	}
	if u.AddLiked != nil {
		n := arg(*u.AddLiked)
		sets = append(sets, fmt.Sprintf(
			"liked_by = CASE WHEN $%d = ANY(liked_by) THEN liked_by ELSE array_append(liked_by, $%d) END", n, n))
	}
	if u.DelLiked != nil {
		sets = append(sets, fmt.Sprintf("liked_by = array_remove(liked_by, $%d)", arg(*u.DelLiked)))
	}

	q := fmt.Sprintf("UPDATE documents SET %s WHERE collection=$1 AND id=$2", strings.Join(sets, ", "))
	tag, err := s.db.Pool.Exec(ctx, q, args...)
	if err != nil {
		return errs.Store("update", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes a document. Deleting an absent document is not an error.
func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	const q = `DELETE FROM documents WHERE collection=$1 AND id=$2`
	_, err := s.db.Pool.Exec(ctx, q, collection, id)
	return errs.Store("delete", err)
}

func sqlDirection(dir store.Direction) string {
	if dir == store.Desc {
		return "DESC"
	}
	return "ASC"
}

func scanDocument(row pgx.Row) (*store.Document, error) {
	var doc store.Document
	err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.PostID,
		&doc.Author, &doc.AuthorID, &doc.CreatedAt, &doc.UpdatedAt,
		&doc.Likes, &doc.LikedBy)
	if err != nil {
		return nil, err
	}
	if doc.LikedBy == nil {
		doc.LikedBy = []string{}
	}
	return &doc, nil
}
