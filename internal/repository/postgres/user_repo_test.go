package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/avagner/authcore/internal/errs"
	"github.com/avagner/authcore/internal/model"
	"github.com/avagner/authcore/internal/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func testUser() *model.User {
	return &model.User{
		ID:         uuid.Must(uuid.NewV4()),
		Username:   "alice",
		Email:      "alice@example.com",
		Credential: model.Credential("$argon2id$v=19$m=65536,t=3,p=1$salt$hash"),
		Active:     true,
	}
}

const userCols = `id, username, email, credential, active, created_at, updated_at`

func userRows(u *model.User) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{"id", "username", "email", "credential", "active", "created_at", "updated_at"}).
		AddRow(u.ID, u.Username, u.Email, []byte(u.Credential), u.Active, now, now)
}

func TestUserRepo_Create_OK_and_Duplicate(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	u := testUser()

	mock.ExpectExec(`INSERT INTO users \(id, username, email, credential, active\) VALUES \(\$1, \$2, \$3, \$4, \$5\)`).
		WithArgs(u.ID, u.Username, u.Email, []byte(u.Credential), u.Active).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, u))

	mock.ExpectExec(`INSERT INTO users \(id, username, email, credential, active\) VALUES \(\$1, \$2, \$3, \$4, \$5\)`).
		WithArgs(u.ID, u.Username, u.Email, []byte(u.Credential), u.Active).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(ctx, u), errs.ErrAlreadyExists)
}

func TestUserRepo_GetByID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	u := testUser()

	mock.ExpectQuery(`SELECT ` + userCols + ` FROM users WHERE id=\$1`).
		WithArgs(u.ID).
		WillReturnRows(userRows(u))
	got, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, u.Credential, got.Credential)

	mock.ExpectQuery(`SELECT ` + userCols + ` FROM users WHERE id=\$1`).
		WithArgs(u.ID).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByID(ctx, u.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_GetByUsername(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	u := testUser()

	mock.ExpectQuery(`SELECT ` + userCols + ` FROM users WHERE username=\$1`).
		WithArgs(u.Username).
		WillReturnRows(userRows(u))
	got, err := r.GetByUsername(ctx, u.Username)
	require.NoError(t, err)
	require.Equal(t, u.Username, got.Username)

	mock.ExpectQuery(`SELECT ` + userCols + ` FROM users WHERE username=\$1`).
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByUsername(ctx, "nobody")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_GetByEmail(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	u := testUser()

	mock.ExpectQuery(`SELECT ` + userCols + ` FROM users WHERE email=\$1`).
		WithArgs(u.Email).
		WillReturnRows(userRows(u))
	got, err := r.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	require.Equal(t, u.Email, got.Email)
}

func TestUserRepo_List(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	a, b := testUser(), testUser()
	b.Username, b.Email = "bob", "bob@example.com"
	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "username", "email", "credential", "active", "created_at", "updated_at"}).
		AddRow(a.ID, a.Username, a.Email, []byte(a.Credential), a.Active, now, now).
		AddRow(b.ID, b.Username, b.Email, []byte(b.Credential), b.Active, now, now)

	mock.ExpectQuery(`SELECT ` + userCols + ` FROM users ORDER BY created_at, id OFFSET \$1 LIMIT \$2`).
		WithArgs(0, 50).
		WillReturnRows(rows)

	got, err := r.List(ctx, 0, 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "alice", got[0].Username)
	require.Equal(t, "bob", got[1].Username)
}

func TestUserRepo_UpdateCredential(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	cred := model.Credential("$argon2id$v=19$m=65536,t=3,p=1$s2$h2")

	mock.ExpectExec(`UPDATE users SET credential=\$2, updated_at=now\(\) WHERE id=\$1`).
		WithArgs(id, []byte(cred)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.UpdateCredential(ctx, id, cred))

	mock.ExpectExec(`UPDATE users SET credential=\$2, updated_at=now\(\) WHERE id=\$1`).
		WithArgs(id, []byte(cred)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, r.UpdateCredential(ctx, id, cred), errs.ErrNotFound)
}

func TestUserRepo_SetActive(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`UPDATE users SET active=\$2, updated_at=now\(\) WHERE id=\$1`).
		WithArgs(id, false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.SetActive(ctx, id, false))

	mock.ExpectExec(`UPDATE users SET active=\$2, updated_at=now\(\) WHERE id=\$1`).
		WithArgs(id, true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, r.SetActive(ctx, id, true), errs.ErrNotFound)
}

func TestUserRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`DELETE FROM users WHERE id=\$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Delete(ctx, id))

	mock.ExpectExec(`DELETE FROM users WHERE id=\$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, r.Delete(ctx, id), errs.ErrNotFound)
}
