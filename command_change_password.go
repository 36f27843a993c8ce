package users

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ChangePasswordMessage replaces an account's password. CurrentPassword is
// optional: the reset flow arrives with a validated token instead, the
// profile flow must supply it.
type ChangePasswordMessage struct {
	UserID          uuid.UUID `json:"user_id"`
	Password        string    `json:"password" example:"some_secret_word" doc:"New password."`
	CurrentPassword string    `json:"current_password,omitempty"`
	OnResponse      func(resp *ChangePasswordResponse)
}

func (m ChangePasswordMessage) Type() string { return "user.password_change" }

type ChangePasswordResponse struct {
	User *User
}

type ChangePasswordHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
	now      Clock
}

// NewChangePasswordHandler creates a handler with sane defaults.
func NewChangePasswordHandler(repo RepositoryManager) *ChangePasswordHandler {
	return &ChangePasswordHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithActivitySink sets the sink used to emit password change events.
func (h *ChangePasswordHandler) WithActivitySink(sink ActivitySink) *ChangePasswordHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ChangePasswordHandler) WithLogger(logger Logger) *ChangePasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *ChangePasswordHandler) WithClock(clock Clock) *ChangePasswordHandler {
	h.now = normalizeClock(clock)
	return h
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	if event.UserID == uuid.Nil {
		return ErrInvalidInput
	}

	resp := &ChangePasswordResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// The comparison runs against the persisted record, never against
		// caller supplied entity state.
		current, err := h.repo.Users().GetByIDTx(ctx, tx, event.UserID.String())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrUserNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password change")
		}

		if event.CurrentPassword != "" {
			if err := ComparePasswordAndHash(event.CurrentPassword, current.PasswordHash); err != nil {
				return ErrWrongPassword
			}
		}

		passwordHash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		updated, err := h.repo.Users().ChangePasswordTx(ctx, tx, current.ID, passwordHash)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password")
		}

		resp.User = updated
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to change password")
	}

	h.recordActivity(ctx, resp.User)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *ChangePasswordHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventPasswordChanged,
		Actor: ActorRef{
			ID:   user.ID.String(),
			Type: "user",
		},
		UserID:     user.ID.String(),
		OccurredAt: h.now(),
	}

	if err := h.activity.Record(ctx, event); err != nil {
		h.logger.Error("activity sink error during password change: %v", err)
	}
}
