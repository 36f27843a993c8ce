package users_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	users "github.com/goliatone/go-users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestIssueTokenHandlerIssuesAndNotifies(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	usersRepo := &MockUsers{}
	notifier := &MockNotifier{}
	sink := &MockActivitySink{}

	userID := uuid.New()
	fixedNow := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	account := &users.User{
		ID:       userID,
		Email:    "pepe.rone@example.com",
		Username: "pepe.rone",
		Active:   true,
	}

	issued := &users.User{
		ID:       userID,
		Email:    account.Email,
		Username: account.Username,
		Active:   true,
		Token:    "issued-token",
	}

	repo.On("Users").Return(usersRepo)
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil).Once()

	usersRepo.On("GetByReferenceTx", mock.Anything, mock.Anything, "pepe.rone@example.com").
		Return(account, nil).Once()
	usersRepo.On("RefreshTokenTx",
		mock.Anything, mock.Anything, userID, "issued-token", fixedNow.Add(time.Hour), false,
	).Return(issued, nil).Once()

	notifier.On("Send", mock.Anything, mock.MatchedBy(func(msg users.Notification) bool {
		return msg.To == account.Email && msg.Template == users.TemplateResetPassword
	})).Return(nil).Once()

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt users.ActivityEvent) bool {
		return evt.EventType == users.ActivityEventTokenIssued &&
			evt.UserID == userID.String()
	})).Return(nil).Once()

	var res *users.IssueTokenResponse
	event := users.IssueTokenMessage{
		Reference:  "pepe.rone@example.com",
		Expiration: time.Hour,
		SendEmail:  true,
		OnResponse: func(resp *users.IssueTokenResponse) {
			res = resp
		},
	}

	handler := users.NewIssueTokenHandler(repo).
		WithTokenSource(users.TokenSourceFunc(func() (string, error) {
			return "issued-token", nil
		})).
		WithNotifier(notifier).
		WithActivitySink(sink).
		WithLogger(testLogger{}).
		WithClock(func() time.Time { return fixedNow })

	err := handler.Execute(ctx, event)
	require.NoError(t, err)

	require.NotNil(t, res)
	assert.True(t, res.Notified)
	assert.Equal(t, "issued-token", res.User.Token)

	// A failed send is the only way to get more or fewer than one email per
	// issuance.
	notifier.AssertNumberOfCalls(t, "Send", 1)

	repo.AssertExpectations(t)
	usersRepo.AssertExpectations(t)
	notifier.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestIssueTokenHandlerValidatesInput(t *testing.T) {
	repo := &MockRepositoryManager{}
	handler := users.NewIssueTokenHandler(repo).WithLogger(testLogger{})

	err := handler.Execute(context.Background(), users.IssueTokenMessage{
		Reference:  "",
		Expiration: time.Hour,
	})
	assert.ErrorIs(t, err, users.ErrInvalidInput)

	err = handler.Execute(context.Background(), users.IssueTokenMessage{
		Reference:  "pepe.rone@example.com",
		Expiration: 0,
	})
	assert.ErrorIs(t, err, users.ErrInvalidInput)

	repo.AssertNotCalled(t, "RunInTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestIssueTokenHandlerUnknownReference(t *testing.T) {
	repo := &MockRepositoryManager{}
	usersRepo := &MockUsers{}

	repo.On("Users").Return(usersRepo)
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil).Once()

	usersRepo.On("GetByReferenceTx", mock.Anything, mock.Anything, "nobody").
		Return(nil, repository.NewRecordNotFound()).Once()

	handler := users.NewIssueTokenHandler(repo).WithLogger(testLogger{})

	err := handler.Execute(context.Background(), users.IssueTokenMessage{
		Reference:  "nobody",
		Expiration: time.Hour,
	})

	assert.ErrorIs(t, err, users.ErrUserNotFound)
	usersRepo.AssertNotCalled(t, "RefreshTokenTx",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIssueTokenHandlerRequireInactiveRejectsActive(t *testing.T) {
	repo := &MockRepositoryManager{}
	usersRepo := &MockUsers{}

	account := &users.User{
		ID:     uuid.New(),
		Email:  "pepe.rone@example.com",
		Active: true,
	}

	repo.On("Users").Return(usersRepo)
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil).Once()

	usersRepo.On("GetByReferenceTx", mock.Anything, mock.Anything, account.Email).
		Return(account, nil).Once()

	handler := users.NewIssueTokenHandler(repo).WithLogger(testLogger{})

	err := handler.Execute(context.Background(), users.IssueTokenMessage{
		Reference:       account.Email,
		Expiration:      time.Hour,
		RequireInactive: true,
	})

	assert.ErrorIs(t, err, users.ErrUserAlreadyActive)
	usersRepo.AssertNotCalled(t, "RefreshTokenTx",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIssueTokenHandlerReopensInactiveAccounts(t *testing.T) {
	repo := &MockRepositoryManager{}
	usersRepo := &MockUsers{}

	userID := uuid.New()
	account := &users.User{
		ID:     userID,
		Email:  "pepe.rone@example.com",
		Active: false,
	}

	repo.On("Users").Return(usersRepo)
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil).Once()

	usersRepo.On("GetByReferenceTx", mock.Anything, mock.Anything, account.Email).
		Return(account, nil).Once()
	usersRepo.On("RefreshTokenTx",
		mock.Anything, mock.Anything, userID, mock.Anything, mock.Anything, true,
	).Return(account, nil).Once()

	handler := users.NewIssueTokenHandler(repo).WithLogger(testLogger{})

	err := handler.Execute(context.Background(), users.IssueTokenMessage{
		Reference:       account.Email,
		Expiration:      time.Hour,
		RequireInactive: true,
	})

	require.NoError(t, err)
	usersRepo.AssertExpectations(t)
}

func TestIssueTokenHandlerNotifierFailureKeepsToken(t *testing.T) {
	repo := &MockRepositoryManager{}
	usersRepo := &MockUsers{}
	notifier := &MockNotifier{}

	userID := uuid.New()
	account := &users.User{ID: userID, Email: "pepe.rone@example.com"}

	repo.On("Users").Return(usersRepo)
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil).Once()

	usersRepo.On("GetByReferenceTx", mock.Anything, mock.Anything, account.Email).
		Return(account, nil).Once()
	usersRepo.On("RefreshTokenTx",
		mock.Anything, mock.Anything, userID, mock.Anything, mock.Anything, false,
	).Return(account, nil).Once()

	notifier.On("Send", mock.Anything, mock.Anything).
		Return(goerrors.New("smtp unreachable", goerrors.CategoryOperation)).Once()

	var res *users.IssueTokenResponse
	handler := users.NewIssueTokenHandler(repo).
		WithNotifier(notifier).
		WithLogger(testLogger{})

	err := handler.Execute(context.Background(), users.IssueTokenMessage{
		Reference:  account.Email,
		Expiration: time.Hour,
		SendEmail:  true,
		OnResponse: func(resp *users.IssueTokenResponse) {
			res = resp
		},
	})

	// The token committed before the send, a failed email never unwinds it.
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.Notified)
}

func TestIssueTokenHandlerDistinctTokens(t *testing.T) {
	repo := &MockRepositoryManager{}
	usersRepo := &MockUsers{}

	userID := uuid.New()
	account := &users.User{ID: userID, Email: "pepe.rone@example.com"}

	seen := map[string]bool{}

	repo.On("Users").Return(usersRepo)
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil)

	usersRepo.On("GetByReferenceTx", mock.Anything, mock.Anything, account.Email).
		Return(account, nil)
	usersRepo.On("RefreshTokenTx",
		mock.Anything, mock.Anything, userID, mock.Anything, mock.Anything, false,
	).Return(account, nil).Run(func(args mock.Arguments) {
		seen[args.String(3)] = true
	})

	handler := users.NewIssueTokenHandler(repo).WithLogger(testLogger{})

	for i := 0; i < 5; i++ {
		err := handler.Execute(context.Background(), users.IssueTokenMessage{
			Reference:  account.Email,
			Expiration: time.Hour,
		})
		require.NoError(t, err)
	}

	assert.Len(t, seen, 5, "every issuance gets a fresh token")
}
