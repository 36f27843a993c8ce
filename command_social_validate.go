package users

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// ValidateSocialAccountMessage validates a linked social identity with the
// token mailed to the owning user.
type ValidateSocialAccountMessage struct {
	Provider   string `json:"provider" example:"github"`
	Reference  string `json:"reference" doc:"Provider scoped external user id."`
	Token      string `json:"token"`
	OnResponse func(resp *ValidateSocialAccountResponse)
}

func (m ValidateSocialAccountMessage) Type() string { return "social_account.validate" }

type ValidateSocialAccountResponse struct {
	Account *SocialAccount
}

type ValidateSocialAccountHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
	now      Clock
}

// NewValidateSocialAccountHandler creates a handler with sane defaults.
func NewValidateSocialAccountHandler(repo RepositoryManager) *ValidateSocialAccountHandler {
	return &ValidateSocialAccountHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithActivitySink sets the sink used to emit validation events.
func (h *ValidateSocialAccountHandler) WithActivitySink(sink ActivitySink) *ValidateSocialAccountHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ValidateSocialAccountHandler) WithLogger(logger Logger) *ValidateSocialAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *ValidateSocialAccountHandler) WithClock(clock Clock) *ValidateSocialAccountHandler {
	h.now = normalizeClock(clock)
	return h
}

func (h *ValidateSocialAccountHandler) Execute(ctx context.Context, event ValidateSocialAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during social account validation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ValidateSocialAccountHandler) execute(ctx context.Context, event ValidateSocialAccountMessage) error {
	resp := &ValidateSocialAccountResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := h.repo.SocialAccounts().GetByProviderReferenceTx(ctx, tx, event.Provider, event.Reference)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrSocialAccountNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve social account")
		}

		// A token mismatch must read exactly like a missing account so the
		// endpoint cannot confirm which half of the lookup failed.
		if account.Token != event.Token {
			return ErrSocialAccountNotFound
		}

		if account.Active {
			return ErrSocialAlreadyActive
		}

		// The token stays on the record for audit, Active guards against
		// replaying it.
		updated, err := h.repo.SocialAccounts().ActivateTx(ctx, tx, account.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate social account")
		}

		resp.Account = updated
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to validate social account")
	}

	h.recordActivity(ctx, resp.Account)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *ValidateSocialAccountHandler) recordActivity(ctx context.Context, account *SocialAccount) {
	if account == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventSocialValidated,
		Actor: ActorRef{
			ID:   account.UserID.String(),
			Type: "user",
		},
		UserID: account.UserID.String(),
		Metadata: map[string]any{
			"provider":  account.Provider,
			"reference": account.Reference,
		},
		OccurredAt: h.now(),
	}

	if err := h.activity.Record(ctx, event); err != nil {
		h.logger.Error("activity sink error during social validation: %v", err)
	}
}
