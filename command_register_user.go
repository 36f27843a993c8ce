package users

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// RegisterUserMessage creates a new account. With email validation enabled
// the account starts inactive carrying a fresh validation token.
type RegisterUserMessage struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
	UseHashid  bool
	OnResponse func(resp *RegisterUserResponse)
}

func (m RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserResponse struct {
	User     *User
	Notified bool
}

type RegisterUserHandler struct {
	repo     RepositoryManager
	cfg      Config
	tokens   TokenSource
	notifier Notifier
	logger   Logger
	now      Clock
}

// NewRegisterUserHandler creates a handler with sane defaults.
func NewRegisterUserHandler(repo RepositoryManager, cfg Config) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:     repo,
		cfg:      cfg.WithDefaults(),
		tokens:   NewTokenSource(DefaultTokenLength),
		notifier: noopNotifier{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithTokenSource overrides the token generator.
func (h *RegisterUserHandler) WithTokenSource(source TokenSource) *RegisterUserHandler {
	if source != nil {
		h.tokens = source
	}
	return h
}

// WithNotifier sets the outbound notifier.
func (h *RegisterUserHandler) WithNotifier(notifier Notifier) *RegisterUserHandler {
	h.notifier = normalizeNotifier(notifier)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *RegisterUserHandler) WithClock(clock Clock) *RegisterUserHandler {
	h.now = normalizeClock(clock)
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	resp := &RegisterUserResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user := &User{}
		user.PasswordHash = hash
		user.Email = event.Email
		user.Phone = event.Phone
		user.FirstName = event.FirstName
		user.LastName = event.LastName
		user.Username = getUsername(event.Username, event.Email)
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if h.cfg.ValidateEmail {
			token, err := h.tokens.Generate()
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate validation token")
			}
			expires := h.now().Add(h.cfg.TokenExpiration)
			user.Token = token
			user.TokenExpires = &expires
		} else {
			now := h.now()
			user.Active = true
			user.ActivationDate = &now
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		resp.User = user
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	if h.cfg.ValidateEmail {
		msg := ResetPasswordNotification(resp.User, h.cfg.ValidationTemplate)
		if err := h.notifier.Send(ctx, msg); err != nil {
			h.logger.Error("validation notification dispatch: %v", err)
		} else {
			resp.Notified = true
		}
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
