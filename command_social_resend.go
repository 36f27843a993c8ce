package users

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// ResendSocialValidationMessage re-sends the social validation email for a
// pending linked identity. The message goes to the owning user's email,
// never to a provider side address.
type ResendSocialValidationMessage struct {
	Provider   string `json:"provider" example:"github"`
	Reference  string `json:"reference" doc:"Provider scoped external user id."`
	OnResponse func(resp *ResendSocialValidationResponse)
}

func (m ResendSocialValidationMessage) Type() string { return "social_account.resend_validation" }

type ResendSocialValidationResponse struct {
	Account *SocialAccount
	Owner   *User
}

type ResendSocialValidationHandler struct {
	repo     RepositoryManager
	notifier Notifier
	logger   Logger
}

// NewResendSocialValidationHandler creates a handler with sane defaults.
func NewResendSocialValidationHandler(repo RepositoryManager) *ResendSocialValidationHandler {
	return &ResendSocialValidationHandler{
		repo:     repo,
		notifier: noopNotifier{},
		logger:   defLogger{},
	}
}

// WithNotifier sets the outbound notifier.
func (h *ResendSocialValidationHandler) WithNotifier(notifier Notifier) *ResendSocialValidationHandler {
	h.notifier = normalizeNotifier(notifier)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ResendSocialValidationHandler) WithLogger(logger Logger) *ResendSocialValidationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ResendSocialValidationHandler) Execute(ctx context.Context, event ResendSocialValidationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during social validation resend",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResendSocialValidationHandler) execute(ctx context.Context, event ResendSocialValidationMessage) error {
	resp := &ResendSocialValidationResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := h.repo.SocialAccounts().GetWithOwnerTx(ctx, tx, event.Provider, event.Reference)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrSocialAccountNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve social account")
		}

		if account.Active {
			return ErrSocialAlreadyActive
		}

		owner := account.User
		if owner == nil {
			owner, err = h.repo.Users().GetByIDTx(ctx, tx, account.UserID.String())
			if err != nil {
				if repository.IsRecordNotFound(err) {
					return ErrSocialAccountNotFound
				}
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve owning user")
			}
		}

		resp.Account = account
		resp.Owner = owner
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resend social validation")
	}

	// Unlike the token issuance flows the dispatch result IS the outcome
	// here, the caller asked for exactly this send.
	msg := SocialValidationNotification(resp.Owner, resp.Account)
	if err := h.notifier.Send(ctx, msg); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send social validation email")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
