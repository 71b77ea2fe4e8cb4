package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/minsu-cho/plaza/internal/auth"
	"github.com/minsu-cho/plaza/internal/errs"
)

func TestAccountRepo_Create_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)

	id := uuid.Must(uuid.NewV4())
	mock.ExpectExec(`INSERT INTO accounts \(id, email, display_name, secret_hash, salt\)`).
		WithArgs(id, "a@b.com", "minsu", []byte("hash"), []byte("salt")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := r.Create(context.Background(), &auth.Account{
		ID: id, Email: "a@b.com", DisplayName: "minsu",
		SecretHash: []byte("hash"), Salt: []byte("salt"),
	})
	require.NoError(t, err)
}

func TestAccountRepo_Create_DuplicateEmail(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)

	id := uuid.Must(uuid.NewV4())
	mock.ExpectExec(`INSERT INTO accounts`).
		WithArgs(id, "a@b.com", "", []byte("h"), []byte("s")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := r.Create(context.Background(), &auth.Account{
		ID: id, Email: "a@b.com", SecretHash: []byte("h"), Salt: []byte("s"),
	})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestAccountRepo_GetByEmail_OK_And_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()

	id := uuid.Must(uuid.NewV4())
	ts := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, email, display_name, secret_hash, salt, created_at FROM accounts WHERE email=\$1`).
		WithArgs("a@b.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "display_name", "secret_hash", "salt", "created_at"}).
			AddRow(id, "a@b.com", "minsu", []byte("hash"), []byte("salt"), ts))
	acc, err := r.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.Equal(t, id, acc.ID)
	require.Equal(t, "minsu", acc.DisplayName)

	mock.ExpectQuery(`SELECT id, email, display_name, secret_hash, salt, created_at FROM accounts WHERE email=\$1`).
		WithArgs("ghost@b.com").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByEmail(ctx, "ghost@b.com")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAccountRepo_GetByID_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)

	id := uuid.Must(uuid.NewV4())
	ts := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, email, display_name, secret_hash, salt, created_at FROM accounts WHERE id=\$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "display_name", "secret_hash", "salt", "created_at"}).
			AddRow(id, "a@b.com", "", []byte("h"), []byte("s"), ts))

	acc, err := r.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "a@b.com", acc.Email)
}

func TestAccountRepo_SetDisplayName(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()

	id := uuid.Must(uuid.NewV4())
	mock.ExpectExec(`UPDATE accounts SET display_name=\$2 WHERE id=\$1`).
		WithArgs(id, "minsu").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.SetDisplayName(ctx, id, "minsu"))

	mock.ExpectExec(`UPDATE accounts SET display_name=\$2 WHERE id=\$1`).
		WithArgs(id, "nobody").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, r.SetDisplayName(ctx, id, "nobody"), errs.ErrNotFound)
}

func TestAccountRepo_SetDisplayName_ExecErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)

	id := uuid.Must(uuid.NewV4())
	mock.ExpectExec(`UPDATE accounts SET display_name=\$2 WHERE id=\$1`).
		WithArgs(id, "x").
		WillReturnError(errors.New("boom"))

	require.Error(t, r.SetDisplayName(context.Background(), id, "x"))
}
