// Package model defines domain entities used by services and store backends.
package model

import (
	"strings"
	"time"
)

// Principal is an authenticated identity.
type Principal struct {
	UID         string
	Email       string
	DisplayName string
}

// Label returns the human-readable name to stamp on authored content.
// Falls back to the email when no display name is set.
func (p *Principal) Label() string {
	if p == nil {
		return ""
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Email
}

// Post is a board post. Author is a display-name snapshot taken at creation
// time and never reconciled against later profile changes. Likes is derived:
// outside the documented toggle race it equals len(LikedBy).
type Post struct {
	ID        string
	Title     string
	Content   string
	Author    string
	AuthorID  string
	CreatedAt time.Time
	UpdatedAt time.Time
	Likes     int64
	LikedBy   []string
}

// LikedByUser reports whether uid is a member of the post's liker set.
func (p *Post) LikedByUser(uid string) bool { return containsUID(p.LikedBy, uid) }

// Comment is a comment on a post. PostID is set at creation and immutable;
// comments survive deletion of their parent post.
type Comment struct {
	ID        string
	PostID    string
	Content   string
	Author    string
	AuthorID  string
	CreatedAt time.Time
	UpdatedAt time.Time
	Likes     int64
	LikedBy   []string
}

// LikedByUser reports whether uid is a member of the comment's liker set.
func (c *Comment) LikedByUser(uid string) bool { return containsUID(c.LikedBy, uid) }

func containsUID(set []string, uid string) bool {
	if uid == "" {
		return false
	}
	for _, m := range set {
		if m == uid {
			return true
		}
	}
	return false
}

// CreatePost is the author-supplied payload for a new post.
type CreatePost struct {
	Title   string `validate:"required"`
	Content string `validate:"required"`
}

// Trim strips surrounding whitespace so whitespace-only input fails the
// required check.
func (in *CreatePost) Trim() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
}

// CreateComment is the author-supplied payload for a new comment.
type CreateComment struct {
	Content string `validate:"required"`
}

func (in *CreateComment) Trim() {
	in.Content = strings.TrimSpace(in.Content)
}

// SignUp is the payload for account creation. Secret length policy matches
// the backend provider's minimum.
type SignUp struct {
	Email       string `validate:"required,email"`
	Secret      string `validate:"required,min=6"`
	DisplayName string `validate:"required"`
}

// SignIn is the payload for authentication.
type SignIn struct {
	Email  string `validate:"required,email"`
	Secret string `validate:"required"`
}
