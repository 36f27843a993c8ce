package users_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	users "github.com/goliatone/go-users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockRepositoryManager implements users.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

// RunInTx invokes the transaction body with a zero bun.Tx and surfaces its
// error, the way the real manager would. A stubbed non-nil return skips the
// body entirely.
func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	if err := args.Error(0); err != nil {
		return err
	}
	var tx bun.Tx
	return f(ctx, tx)
}

func (m *MockRepositoryManager) Users() users.Users {
	args := m.Called()
	return args.Get(0).(users.Users)
}

func (m *MockRepositoryManager) SocialAccounts() users.SocialAccounts {
	args := m.Called()
	return args.Get(0).(users.SocialAccounts)
}

// MockUsers implements users.Users
type MockUsers struct {
	mock.Mock
}

func userResult(args mock.Arguments) (*users.User, error) {
	if u, ok := args.Get(0).(*users.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*users.User, error) {
	args := m.Called(ctx, id, criteria)
	return userResult(args)
}

func (m *MockUsers) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (*users.User, error) {
	args := m.Called(ctx, tx, id, criteria)
	return userResult(args)
}

func (m *MockUsers) GetByReference(ctx context.Context, reference string) (*users.User, error) {
	args := m.Called(ctx, reference)
	return userResult(args)
}

func (m *MockUsers) GetByReferenceTx(ctx context.Context, tx bun.IDB, reference string) (*users.User, error) {
	args := m.Called(ctx, tx, reference)
	return userResult(args)
}

func (m *MockUsers) GetByToken(ctx context.Context, token string) (*users.User, error) {
	args := m.Called(ctx, token)
	return userResult(args)
}

func (m *MockUsers) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*users.User, error) {
	args := m.Called(ctx, tx, token)
	return userResult(args)
}

func (m *MockUsers) Create(ctx context.Context, record *users.User, criteria ...repository.InsertCriteria) (*users.User, error) {
	args := m.Called(ctx, record, criteria)
	return userResult(args)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *users.User, criteria ...repository.InsertCriteria) (*users.User, error) {
	args := m.Called(ctx, tx, record, criteria)
	return userResult(args)
}

func (m *MockUsers) RefreshTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, expires time.Time, deactivate bool) (*users.User, error) {
	args := m.Called(ctx, tx, id, token, expires, deactivate)
	return userResult(args)
}

func (m *MockUsers) ActivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) (*users.User, error) {
	args := m.Called(ctx, tx, id, at)
	return userResult(args)
}

func (m *MockUsers) ChangePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) (*users.User, error) {
	args := m.Called(ctx, tx, id, passwordHash)
	return userResult(args)
}

// MockSocialAccounts implements users.SocialAccounts
type MockSocialAccounts struct {
	mock.Mock
}

func accountResult(args mock.Arguments) (*users.SocialAccount, error) {
	if a, ok := args.Get(0).(*users.SocialAccount); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSocialAccounts) GetByProviderReference(ctx context.Context, provider, reference string) (*users.SocialAccount, error) {
	args := m.Called(ctx, provider, reference)
	return accountResult(args)
}

func (m *MockSocialAccounts) GetByProviderReferenceTx(ctx context.Context, tx bun.IDB, provider, reference string) (*users.SocialAccount, error) {
	args := m.Called(ctx, tx, provider, reference)
	return accountResult(args)
}

func (m *MockSocialAccounts) GetWithOwner(ctx context.Context, provider, reference string) (*users.SocialAccount, error) {
	args := m.Called(ctx, provider, reference)
	return accountResult(args)
}

func (m *MockSocialAccounts) GetWithOwnerTx(ctx context.Context, tx bun.IDB, provider, reference string) (*users.SocialAccount, error) {
	args := m.Called(ctx, tx, provider, reference)
	return accountResult(args)
}

func (m *MockSocialAccounts) Create(ctx context.Context, record *users.SocialAccount) (*users.SocialAccount, error) {
	args := m.Called(ctx, record)
	return accountResult(args)
}

func (m *MockSocialAccounts) CreateTx(ctx context.Context, tx bun.IDB, record *users.SocialAccount) (*users.SocialAccount, error) {
	args := m.Called(ctx, tx, record)
	return accountResult(args)
}

func (m *MockSocialAccounts) ActivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*users.SocialAccount, error) {
	args := m.Called(ctx, tx, id)
	return accountResult(args)
}

// MockNotifier implements users.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, msg users.Notification) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockActivitySink implements users.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event users.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// MockContext mocks router.Context
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}
