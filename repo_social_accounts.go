package users

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SocialAccountHook runs synchronously after a social account row is
// persisted. Hook failures are logged and swallowed, the insert already
// committed and a missed notification must not undo it.
type SocialAccountHook func(ctx context.Context, account *SocialAccount) error

// SocialAccounts is the linked-identity store.
type SocialAccounts interface {
	GetByProviderReference(ctx context.Context, provider, reference string) (*SocialAccount, error)
	GetByProviderReferenceTx(ctx context.Context, tx bun.IDB, provider, reference string) (*SocialAccount, error)
	GetWithOwner(ctx context.Context, provider, reference string) (*SocialAccount, error)
	GetWithOwnerTx(ctx context.Context, tx bun.IDB, provider, reference string) (*SocialAccount, error)
	Create(ctx context.Context, record *SocialAccount) (*SocialAccount, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *SocialAccount) (*SocialAccount, error)
	ActivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*SocialAccount, error)
}

type socialAccountsRepo struct {
	db     *bun.DB
	hooks  []SocialAccountHook
	logger Logger
}

var _ SocialAccounts = (*socialAccountsRepo)(nil)

// SocialAccountsOption customizes the repository.
type SocialAccountsOption func(*socialAccountsRepo)

// WithAfterCreateHook appends hooks invoked after every Create. Replaces
// the framework afterSave event with an explicit observer list.
func WithAfterCreateHook(hooks ...SocialAccountHook) SocialAccountsOption {
	return func(r *socialAccountsRepo) {
		for _, h := range hooks {
			if h != nil {
				r.hooks = append(r.hooks, h)
			}
		}
	}
}

// WithSocialAccountsLogger overrides the repository logger.
func WithSocialAccountsLogger(logger Logger) SocialAccountsOption {
	return func(r *socialAccountsRepo) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewSocialAccountsRepository(db *bun.DB, opts ...SocialAccountsOption) SocialAccounts {
	repo := &socialAccountsRepo{
		db:     db,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

func (r *socialAccountsRepo) GetByProviderReference(ctx context.Context, provider, reference string) (*SocialAccount, error) {
	return r.GetByProviderReferenceTx(ctx, r.db, provider, reference)
}

func (r *socialAccountsRepo) GetByProviderReferenceTx(ctx context.Context, tx bun.IDB, provider, reference string) (*SocialAccount, error) {
	return r.get(ctx, tx, provider, reference, false)
}

func (r *socialAccountsRepo) GetWithOwner(ctx context.Context, provider, reference string) (*SocialAccount, error) {
	return r.GetWithOwnerTx(ctx, r.db, provider, reference)
}

func (r *socialAccountsRepo) GetWithOwnerTx(ctx context.Context, tx bun.IDB, provider, reference string) (*SocialAccount, error) {
	return r.get(ctx, tx, provider, reference, true)
}

func (r *socialAccountsRepo) get(ctx context.Context, tx bun.IDB, provider, reference string, withOwner bool) (*SocialAccount, error) {
	record := &SocialAccount{}

	q := tx.NewSelect().
		Model(record).
		Where("?TableAlias.provider = ? AND ?TableAlias.reference = ?", provider, reference)

	if withOwner {
		q = q.Relation("User")
	}

	if err := q.Limit(1).Scan(ctx); err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"provider":  provider,
					"reference": reference,
				})
		}
		return nil, err
	}

	return record, nil
}

func (r *socialAccountsRepo) Create(ctx context.Context, record *SocialAccount) (*SocialAccount, error) {
	return r.CreateTx(ctx, r.db, record)
}

// CreateTx inserts the record and fires the after-create hooks. Uniqueness
// violations on (provider, reference) surface as the driver's constraint
// error untouched so callers can tell them apart.
func (r *socialAccountsRepo) CreateTx(ctx context.Context, tx bun.IDB, record *SocialAccount) (*SocialAccount, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}

	for _, hook := range r.hooks {
		if err := hook(ctx, record); err != nil {
			r.logger.Error("social account after-create hook: %v", err)
		}
	}

	return record, nil
}

func (r *socialAccountsRepo) ActivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*SocialAccount, error) {
	res, err := tx.NewUpdate().
		Model((*SocialAccount)(nil)).
		Set("active = ?", true).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, repository.NewRecordNotFound()
	}

	record := &SocialAccount{}
	if err := tx.NewSelect().Model(record).Where("?TableAlias.id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}

	return record, nil
}
