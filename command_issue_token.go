package users

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// IssueTokenMessage requests a fresh validation or reset token for the
// account matching Reference (username or email).
type IssueTokenMessage struct {
	Reference string `json:"reference" example:"pepe.rone@example.com" doc:"Account username or email."`
	// Expiration is the token lifetime, it must be positive.
	Expiration time.Duration `json:"expiration"`
	// RequireInactive fails for already validated accounts and re-opens
	// the account (active false, activation date cleared) otherwise.
	RequireInactive bool `json:"require_inactive"`
	// SendEmail dispatches the token notification after the update commits.
	SendEmail  bool   `json:"send_email"`
	Template   string `json:"template" example:"reset_password" doc:"Notification template name."`
	OnResponse func(resp *IssueTokenResponse)
}

func (m IssueTokenMessage) Type() string { return "user.token_issue" }

type IssueTokenResponse struct {
	User     *User
	Notified bool
}

type IssueTokenHandler struct {
	repo     RepositoryManager
	tokens   TokenSource
	notifier Notifier
	activity ActivitySink
	logger   Logger
	now      Clock
}

// NewIssueTokenHandler creates a handler with sane defaults.
func NewIssueTokenHandler(repo RepositoryManager) *IssueTokenHandler {
	return &IssueTokenHandler{
		repo:     repo,
		tokens:   NewTokenSource(DefaultTokenLength),
		notifier: noopNotifier{},
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithTokenSource overrides the token generator.
func (h *IssueTokenHandler) WithTokenSource(source TokenSource) *IssueTokenHandler {
	if source != nil {
		h.tokens = source
	}
	return h
}

// WithNotifier sets the outbound notifier.
func (h *IssueTokenHandler) WithNotifier(notifier Notifier) *IssueTokenHandler {
	h.notifier = normalizeNotifier(notifier)
	return h
}

// WithActivitySink sets the sink used to emit token events.
func (h *IssueTokenHandler) WithActivitySink(sink ActivitySink) *IssueTokenHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *IssueTokenHandler) WithLogger(logger Logger) *IssueTokenHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *IssueTokenHandler) WithClock(clock Clock) *IssueTokenHandler {
	h.now = normalizeClock(clock)
	return h
}

func (h *IssueTokenHandler) Execute(ctx context.Context, event IssueTokenMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during token issuance",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *IssueTokenHandler) execute(ctx context.Context, event IssueTokenMessage) error {
	if event.Reference == "" {
		return ErrInvalidInput
	}

	if event.Expiration <= 0 {
		return ErrInvalidInput
	}

	resp := &IssueTokenResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByReferenceTx(ctx, tx, event.Reference)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrUserNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for token issuance")
		}

		if event.RequireInactive && user.Active {
			return ErrUserAlreadyActive
		}

		token, err := h.tokens.Generate()
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate token")
		}

		expires := h.now().Add(event.Expiration)

		updated, err := h.repo.Users().RefreshTokenTx(ctx, tx, user.ID, token, expires, event.RequireInactive)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist token")
		}

		resp.User = updated
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue token")
	}

	// Notification runs after the update committed, a failed send must not
	// undo the token.
	if event.SendEmail {
		msg := ResetPasswordNotification(resp.User, h.template(event.Template))
		if err := h.notifier.Send(ctx, msg); err != nil {
			h.logger.Error("token notification dispatch: %v", err)
		} else {
			resp.Notified = true
		}
	}

	h.recordActivity(ctx, resp.User)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *IssueTokenHandler) template(name string) string {
	if name != "" {
		return name
	}
	return TemplateResetPassword
}

func (h *IssueTokenHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventTokenIssued,
		Actor: ActorRef{
			ID:   user.ID.String(),
			Type: "user",
		},
		UserID:     user.ID.String(),
		OccurredAt: h.now(),
	}

	if err := h.activity.Record(ctx, event); err != nil {
		h.logger.Error("activity sink error during token issuance: %v", err)
	}
}
