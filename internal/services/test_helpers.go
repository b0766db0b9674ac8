package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gestaoconhecimento/gc-auth/internal/auth"
	"github.com/gestaoconhecimento/gc-auth/internal/geoip"
	"github.com/gestaoconhecimento/gc-auth/internal/models"
	"github.com/gestaoconhecimento/gc-auth/internal/testutil"
	pkgauth "github.com/gestaoconhecimento/gc-auth/pkg/auth"
)

const (
	testPassword    = "Correta#2024x"
	brazilIP        = "200.160.2.3"
	foreignIP       = "8.8.8.8"
	testTokenSecret = "test-secret-with-enough-length-for-hs256!!"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestUser creates an active user with the USER role
func NewTestUser(id, email, name string) *models.User {
	return &models.User{
		ID:       id,
		Email:    email,
		Name:     &name,
		Role:     models.RoleUser,
		IsActive: true,
	}
}

// testClock is a manually advanced clock shared by the services under test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeGeo maps IPs to locations and defaults to Brazil
type fakeGeo struct {
	mu        sync.Mutex
	locations map[string]geoip.Location
	calls     int
}

func newFakeGeo() *fakeGeo {
	return &fakeGeo{locations: map[string]geoip.Location{
		foreignIP: {Status: "success", Country: "United States", CountryCode: "US", City: "Ashburn"},
	}}
}

func (g *fakeGeo) Locate(ctx context.Context, ip string) geoip.Location {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls++
	if loc, ok := g.locations[ip]; ok {
		return loc
	}
	return geoip.Location{Status: "success", Country: "Brazil", CountryCode: "BR", City: "São Paulo"}
}

// MockEmailSender records sent codes
type MockEmailSender struct {
	mu       sync.Mutex
	SendFunc func(ctx context.Context, email, name, code string, expiresAt time.Time) error
	Codes    map[string]string // last code per email
}

func (m *MockEmailSender) SendVerificationCode(ctx context.Context, email, name, code string, expiresAt time.Time) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, email, name, code, expiresAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Codes == nil {
		m.Codes = make(map[string]string)
	}
	m.Codes[email] = code
	return nil
}

func (m *MockEmailSender) LastCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Codes[email]
}

// MockLoginAttemptRepository implements LoginAttemptRepository for error-path tests
type MockLoginAttemptRepository struct {
	CreateFunc             func(ctx context.Context, attempt *models.LoginAttempt) error
	CountFailedSinceFunc   func(ctx context.Context, email string, since time.Time) (int, error)
	LatestFailureSinceFunc func(ctx context.Context, email string, since time.Time) (*time.Time, error)
	DeleteFailedFunc       func(ctx context.Context, email string) (int64, error)
}

func (m *MockLoginAttemptRepository) Create(ctx context.Context, attempt *models.LoginAttempt) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, attempt)
	}
	return nil
}

func (m *MockLoginAttemptRepository) CountFailedSince(ctx context.Context, email string, since time.Time) (int, error) {
	if m.CountFailedSinceFunc != nil {
		return m.CountFailedSinceFunc(ctx, email, since)
	}
	return 0, nil
}

func (m *MockLoginAttemptRepository) LatestFailureSince(ctx context.Context, email string, since time.Time) (*time.Time, error) {
	if m.LatestFailureSinceFunc != nil {
		return m.LatestFailureSinceFunc(ctx, email, since)
	}
	return nil, nil
}

func (m *MockLoginAttemptRepository) DeleteFailed(ctx context.Context, email string) (int64, error) {
	if m.DeleteFailedFunc != nil {
		return m.DeleteFailedFunc(ctx, email)
	}
	return 0, nil
}

func (m *MockLoginAttemptRepository) ListRecent(ctx context.Context, limit int) ([]*models.LoginAttempt, error) {
	return []*models.LoginAttempt{}, nil
}

func (m *MockLoginAttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// MockSessionRepository implements SessionRepository on top of the memory store,
// with per-method overrides for failure injection
type MockSessionRepository struct {
	SessionRepository
	GetActiveByTokenHashFunc func(ctx context.Context, tokenHash string) (*models.Session, error)
	TouchActivityFunc        func(ctx context.Context, id string, at time.Time) error
	touches                  int
}

func (m *MockSessionRepository) GetActiveByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	if m.GetActiveByTokenHashFunc != nil {
		return m.GetActiveByTokenHashFunc(ctx, tokenHash)
	}
	return m.SessionRepository.GetActiveByTokenHash(ctx, tokenHash)
}

func (m *MockSessionRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	m.touches++
	if m.TouchActivityFunc != nil {
		return m.TouchActivityFunc(ctx, id, at)
	}
	return m.SessionRepository.TouchActivity(ctx, id, at)
}

// testEnv wires every service over one in-memory store and one clock
type testEnv struct {
	store       *testutil.MemoryStore
	clock       *testClock
	geo         *fakeGeo
	sender      *MockEmailSender
	sessionRepo *MockSessionRepository

	rateLimiter *RateLimitService
	ipAccess    *IPAccessService
	accounts    *AccountBlockService
	audit       *AuditService
	sessions    *SessionService
	login       *LoginService
	firstAccess *FirstAccessService
	users       *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := newTestLogger()
	store := testutil.NewMemoryStore()
	clock := newTestClock()
	geo := newFakeGeo()
	sender := &MockEmailSender{}
	sessionRepo := &MockSessionRepository{SessionRepository: store.SessionRepo()}

	env := &testEnv{store: store, clock: clock, geo: geo, sender: sender, sessionRepo: sessionRepo}

	env.rateLimiter = NewRateLimitService(store.AttemptRepo(), store.BlockedUserRepo(), store.UserRepo(), logger)
	env.rateLimiter.now = clock.Now

	env.ipAccess = NewIPAccessService(store.IPListRepo(), logger)
	env.ipAccess.now = clock.Now

	env.accounts = NewAccountBlockService(store.BlockedUserRepo(), store.UserRepo(), env.rateLimiter, logger)
	env.accounts.now = clock.Now

	env.audit = NewAuditService(store.AuditRepo(), logger)

	env.sessions = NewSessionService(sessionRepo, store.UserRepo(), geo, env.audit, SessionConfig{
		MaxAge:      24 * time.Hour,
		IdleTimeout: 60 * time.Minute,
	}, logger)
	env.sessions.now = clock.Now

	env.login = NewLoginService(LoginDependencies{
		Users:       store.UserRepo(),
		Passwords:   store.PasswordRepo(),
		IPAccess:    env.ipAccess,
		Accounts:    env.accounts,
		RateLimiter: env.rateLimiter,
		Geo:         geo,
		Sessions:    env.sessions,
		Auditor:     env.audit,
	}, logger)
	env.login.now = clock.Now

	env.firstAccess = NewFirstAccessService(FirstAccessDependencies{
		Users:      store.UserRepo(),
		Passwords:  store.PasswordRepo(),
		Codes:      store.CodeRepo(),
		Resets:     store.ResetRepo(),
		Tokens:     auth.NewVerificationTokenIssuer(testTokenSecret, 15*time.Minute),
		Sender:     sender,
		Sessions:   env.sessions,
		Auditor:    env.audit,
		CodeExpiry: 15 * time.Minute,
	}, logger)
	env.firstAccess.now = clock.Now

	env.users = NewUserService(store.UserRepo(), store.PasswordRepo(), logger)

	return env
}

var (
	testHashOnce sync.Once
	testHash     string
)

// passwordHash returns a cached Argon2 hash of testPassword
func passwordHash(t *testing.T) string {
	t.Helper()
	testHashOnce.Do(func() {
		hash, err := pkgauth.HashPassword(testPassword)
		if err == nil {
			testHash = hash
		}
	})
	require.NotEmpty(t, testHash)
	return testHash
}

// addUser stores an active user with testPassword
func (e *testEnv) addUser(t *testing.T, email string, firstLogin bool) *models.User {
	t.Helper()
	return e.store.AddUser(NewTestUser("", email, "Usuário Teste"), passwordHash(t), firstLogin)
}

func (e *testEnv) attempt(email, password, ip string) (*LoginResult, *models.LoginError) {
	result, err := e.login.Login(context.Background(), LoginRequest{
		Email:     email,
		Password:  password,
		IPAddress: ip,
		UserAgent: "test-agent",
	})
	if err == nil {
		return result, nil
	}
	loginErr, ok := err.(*models.LoginError)
	if !ok {
		panic(err)
	}
	return nil, loginErr
}

// MockUserRepository implements UserRepository with per-method overrides
type MockUserRepository struct {
	GetByIDFunc                func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc             func(ctx context.Context, email string) (*models.User, error)
	ListFunc                   func(ctx context.Context, limit, offset int) ([]*models.User, error)
	CreateFunc                 func(ctx context.Context, user *models.User) (*models.User, error)
	SetInternationalAccessFunc func(ctx context.Context, userID string, allow bool) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return user, nil
}

func (m *MockUserRepository) SetInternationalAccess(ctx context.Context, userID string, allow bool) error {
	if m.SetInternationalAccessFunc != nil {
		return m.SetInternationalAccessFunc(ctx, userID, allow)
	}
	return nil
}
