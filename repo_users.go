package users

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NOTE: Updates that clear columns go through raw SQL, the ORM skips
// zero-valued fields on update and would leave stale tokens behind.
var RefreshUserTokenSQL = `UPDATE "users" AS "usr"
SET
	"token" = ?,
	"token_expires" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

var ReopenUserTokenSQL = `UPDATE "users" AS "usr"
SET
	"token" = ?,
	"token_expires" = ?,
	"active" = FALSE,
	"activation_date" = NULL
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

var ActivateUserSQL = `UPDATE "users" AS "usr"
SET
	"active" = TRUE,
	"activation_date" = ?,
	"token" = NULL,
	"token_expires" = NULL
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

var ChangeUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"token" = NULL,
	"token_expires" = NULL
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

// Users is the primary account store. The token mutators run inside the
// caller's transaction and return the updated record.
type Users interface {
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*User, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (*User, error)
	GetByReference(ctx context.Context, reference string) (*User, error)
	GetByReferenceTx(ctx context.Context, tx bun.IDB, reference string) (*User, error)
	GetByToken(ctx context.Context, token string) (*User, error)
	GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
	RefreshTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, expires time.Time, deactivate bool) (*User, error)
	ActivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) (*User, error)
	ChangePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) (*User, error)
}

type usersRepo struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*usersRepo)(nil)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &usersRepo{
		Repository: repo,
		db:         db,
	}
}

func (a *usersRepo) GetByReference(ctx context.Context, reference string) (*User, error) {
	return a.GetByReferenceTx(ctx, a.db, reference)
}

// GetByReferenceTx matches the reference against username OR email. With
// duplicate references across both columns the first row wins, the schema
// keeps each column unique but not the pair of them.
func (a *usersRepo) GetByReferenceTx(ctx context.Context, tx bun.IDB, reference string) (*User, error) {
	record := &User{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.username = ? OR ?TableAlias.email = ?", reference, reference).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"reference": reference,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *usersRepo) GetByToken(ctx context.Context, token string) (*User, error) {
	return a.GetByTokenTx(ctx, a.db, token)
}

func (a *usersRepo) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error) {
	record := &User{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

func (a *usersRepo) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *usersRepo) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *usersRepo) RefreshTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, expires time.Time, deactivate bool) (*User, error) {
	query := RefreshUserTokenSQL
	if deactivate {
		query = ReopenUserTokenSQL
	}
	return a.rawOne(ctx, tx, query, token, expires, id.String())
}

func (a *usersRepo) ActivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) (*User, error) {
	return a.rawOne(ctx, tx, ActivateUserSQL, at, id.String())
}

func (a *usersRepo) ChangePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) (*User, error) {
	return a.rawOne(ctx, tx, ChangeUserPasswordSQL, passwordHash, id.String())
}

func (a *usersRepo) rawOne(ctx context.Context, tx bun.IDB, query string, args ...any) (*User, error) {
	res, err := a.Repository.RawTx(ctx, tx, query, args...)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound()
	}

	return res[0], nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
