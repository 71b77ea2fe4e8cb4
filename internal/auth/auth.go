// Package auth defines the authentication-provider boundary consumed by the
// session manager, plus a local provider implementation backed by an account
// repository.
package auth

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/minsu-cho/plaza/internal/model"
)

// Account is a stored board account. Secrets are kept only as salted
// Argon2id hashes.
type Account struct {
	ID          uuid.UUID
	Email       string // unique
	DisplayName string
	SecretHash  []byte
	Salt        []byte
	CreatedAt   time.Time
}

// Principal converts the account to its identity snapshot.
func (a *Account) Principal() *model.Principal {
	return &model.Principal{UID: a.ID.String(), Email: a.Email, DisplayName: a.DisplayName}
}

// AccountRepo provides CRUD access for accounts.
type AccountRepo interface {
	// Create inserts a new account. errs.ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, a *Account) error
	// GetByEmail loads an account by email. errs.ErrNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*Account, error)
	// GetByID loads an account by ID. errs.ErrNotFound when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	// SetDisplayName updates the account's display name.
	SetDisplayName(ctx context.Context, id uuid.UUID, name string) error
}

// Provider is the external auth boundary: credential verification, account
// creation, the process-wide current principal, and change notification.
type Provider interface {
	// SignIn authenticates and makes the principal current. AuthError on
	// invalid credentials.
	SignIn(ctx context.Context, identifier, secret string) (*model.Principal, error)
	// CreateAccount registers a new principal and makes it current. AuthError
	// on duplicate identifier or a secret below the provider's minimum length.
	CreateAccount(ctx context.Context, identifier, secret string) (*model.Principal, error)
	// SetDisplayName updates the principal's display name.
	SetDisplayName(ctx context.Context, p *model.Principal, name string) error
	// SignOut clears the current principal.
	SignOut(ctx context.Context) error
	// Current returns a snapshot of the authenticated principal, nil when
	// signed out.
	Current() *model.Principal
	// OnStateChange registers a listener invoked on every identity change.
	// The returned func unsubscribes it.
	OnStateChange(fn func(*model.Principal)) (unsubscribe func())
}
