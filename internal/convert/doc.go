// Package convert maps between stored documents and domain entities.
package convert

import (
	"github.com/minsu-cho/plaza/internal/model"
	"github.com/minsu-cho/plaza/internal/store"
)

// ToPost converts a posts-collection document to the domain type.
func ToPost(d *store.Document) model.Post {
	return model.Post{
		ID:        d.ID,
		Title:     d.Title,
		Content:   d.Content,
		Author:    d.Author,
		AuthorID:  d.AuthorID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		Likes:     d.Likes,
		LikedBy:   likedBy(d),
	}
}

// ToComment converts a comments-collection document to the domain type.
func ToComment(d *store.Document) model.Comment {
	return model.Comment{
		ID:        d.ID,
		PostID:    d.PostID,
		Content:   d.Content,
		Author:    d.Author,
		AuthorID:  d.AuthorID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		Likes:     d.Likes,
		LikedBy:   likedBy(d),
	}
}

// FromPostInput builds the document for a new post.
func FromPostInput(in model.CreatePost, author, authorID string) *store.Document {
	return &store.Document{
		Title:    in.Title,
		Content:  in.Content,
		Author:   author,
		AuthorID: authorID,
		Likes:    0,
		LikedBy:  []string{},
	}
}

// FromCommentInput builds the document for a new comment under postID.
func FromCommentInput(in model.CreateComment, postID, author, authorID string) *store.Document {
	return &store.Document{
		Content:  in.Content,
		PostID:   postID,
		Author:   author,
		AuthorID: authorID,
		Likes:    0,
		LikedBy:  []string{},
	}
}

func likedBy(d *store.Document) []string {
	if d.LikedBy == nil {
		return []string{}
	}
	return d.LikedBy
}
