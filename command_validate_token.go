package users

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// TokenMode selects what a validated token unlocks.
type TokenMode = string

const (
	// ModeActivateAccount flips the account active and consumes the token.
	ModeActivateAccount TokenMode = "activate_account"
	// ModeResetPassword proves ownership without mutating the account, the
	// token stays in place until the password change completes.
	ModeResetPassword TokenMode = "reset_password"
)

// ValidateTokenMessage checks a token a user received by email.
type ValidateTokenMessage struct {
	Token      string    `json:"token" doc:"Opaque token from the validation link."`
	Mode       TokenMode `json:"mode" example:"activate_account"`
	OnResponse func(resp *ValidateTokenResponse)
}

func (m ValidateTokenMessage) Type() string { return "user.token_validate" }

type ValidateTokenResponse struct {
	User *User
}

type ValidateTokenHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
	now      Clock
}

// NewValidateTokenHandler creates a handler with sane defaults.
func NewValidateTokenHandler(repo RepositoryManager) *ValidateTokenHandler {
	return &ValidateTokenHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithActivitySink sets the sink used to emit activation events.
func (h *ValidateTokenHandler) WithActivitySink(sink ActivitySink) *ValidateTokenHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ValidateTokenHandler) WithLogger(logger Logger) *ValidateTokenHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *ValidateTokenHandler) WithClock(clock Clock) *ValidateTokenHandler {
	h.now = normalizeClock(clock)
	return h
}

func (h *ValidateTokenHandler) Execute(ctx context.Context, event ValidateTokenMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during token validation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ValidateTokenHandler) execute(ctx context.Context, event ValidateTokenMessage) error {
	if event.Token == "" {
		return ErrInvalidInput
	}

	if event.Mode != ModeActivateAccount && event.Mode != ModeResetPassword {
		return ErrInvalidInput
	}

	resp := &ValidateTokenResponse{}
	activated := false

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByTokenTx(ctx, tx, event.Token)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrUserNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user by token")
		}

		// An expired token is reported but not purged, matching the
		// historical behavior of the flow.
		if user.TokenExpiredAt(h.now()) {
			return ErrTokenExpired
		}

		if event.Mode == ModeResetPassword {
			resp.User = user
			return nil
		}

		if user.Active {
			return ErrUserAlreadyActive
		}

		updated, err := h.repo.Users().ActivateTx(ctx, tx, user.ID, h.now())
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate user account")
		}

		resp.User = updated
		activated = true
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to validate token")
	}

	if activated {
		h.recordActivity(ctx, resp.User)
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *ValidateTokenHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventAccountActive,
		Actor: ActorRef{
			ID:   user.ID.String(),
			Type: "user",
		},
		UserID:     user.ID.String(),
		OccurredAt: h.now(),
	}

	if err := h.activity.Record(ctx, event); err != nil {
		h.logger.Error("activity sink error during account activation: %v", err)
	}
}
