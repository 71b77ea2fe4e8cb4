package badgerstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/gofrs/uuid/v5"

	"github.com/minsu-cho/plaza/internal/auth"
	"github.com/minsu-cho/plaza/internal/errs"
)

// Accounts implements auth.AccountRepo on the same embedded database as the
// document store. Accounts live at "accounts/<id>" with an email index at
// "accounts_email/<email>".
type Accounts struct{ s *Store }

var _ auth.AccountRepo = (*Accounts)(nil)

// NewAccounts constructs the account repository over an open Store.
func NewAccounts(s *Store) *Accounts { return &Accounts{s: s} }

func accountKey(id string) []byte  { return []byte("accounts/" + id) }
func emailKey(email string) []byte { return []byte("accounts_email/" + email) }

// Create inserts a new account; the email index enforces uniqueness.
func (r *Accounts) Create(_ context.Context, a *auth.Account) error {
	rec := *a
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.s.now().UTC()
	}
	data, err := json.Marshal(&rec)
	if err != nil {
		return err
	}
	err = r.s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey(rec.Email)); err == nil {
			return errs.ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(accountKey(rec.ID.String()), data); err != nil {
			return err
		}
		return txn.Set(emailKey(rec.Email), []byte(rec.ID.String()))
	})
	if err == nil {
		a.CreatedAt = rec.CreatedAt
	}
	return err
}

// GetByEmail resolves the email index and loads the account.
func (r *Accounts) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	var acc auth.Account
	err := r.s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errs.ErrNotFound
		}
		if err != nil {
			return err
		}
		var id []byte
		if id, err = item.ValueCopy(nil); err != nil {
			return err
		}
		return loadAccount(txn, accountKey(string(id)), &acc)
	})
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// GetByID loads an account by ID.
func (r *Accounts) GetByID(_ context.Context, id uuid.UUID) (*auth.Account, error) {
	var acc auth.Account
	err := r.s.db.View(func(txn *badger.Txn) error {
		return loadAccount(txn, accountKey(id.String()), &acc)
	})
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// SetDisplayName rewrites the account with the new name.
func (r *Accounts) SetDisplayName(_ context.Context, id uuid.UUID, name string) error {
	return r.s.db.Update(func(txn *badger.Txn) error {
		var acc auth.Account
		if err := loadAccount(txn, accountKey(id.String()), &acc); err != nil {
			return err
		}
		acc.DisplayName = name
		data, err := json.Marshal(&acc)
		if err != nil {
			return err
		}
		return txn.Set(accountKey(id.String()), data)
	})
}

func loadAccount(txn *badger.Txn, key []byte, acc *auth.Account) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errs.ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, acc)
	})
}
