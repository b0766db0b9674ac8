package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gestaoconhecimento/gc-auth/internal/auth"
	"github.com/gestaoconhecimento/gc-auth/internal/geoip"
	"github.com/gestaoconhecimento/gc-auth/internal/metrics"
	"github.com/gestaoconhecimento/gc-auth/internal/models"
	pkgauth "github.com/gestaoconhecimento/gc-auth/pkg/auth"
)

// LoginUserRepository defines the user operations used by the login pipeline
type LoginUserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID string, login models.LastLogin) error
}

// PasswordReader loads local credential records
type PasswordReader interface {
	GetByUserID(ctx context.Context, userID string) (*models.UserPassword, error)
}

// IPAccessChecker answers IP blocklist and whitelist membership
type IPAccessChecker interface {
	IsBlocked(ctx context.Context, ip string) (bool, error)
	IsWhitelisted(ctx context.Context, ip string) (bool, error)
}

// AccountBlockChecker answers account blocklist membership
type AccountBlockChecker interface {
	IsBlocked(ctx context.Context, email string) (bool, error)
}

// LoginRateLimiter is the rate limiter as seen by the login pipeline
type LoginRateLimiter interface {
	CheckLoginAttempts(ctx context.Context, email, ipAddress string) (*RateLimitResult, error)
	RecordLoginAttempt(ctx context.Context, email, ipAddress string, success bool, meta models.AttemptMeta) error
}

// SessionCreator issues sessions
type SessionCreator interface {
	CreateSession(ctx context.Context, userID, ipAddress, userAgent string) (*models.Session, string, error)
}

// LoginRequest is one submitted credential check
type LoginRequest struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginResult is an accepted login. Code is SUCCESS or FIRST_LOGIN; Session
// and Token are only set for SUCCESS.
type LoginResult struct {
	Code    string
	User    *models.User
	Session *models.Session
	Token   string
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// dummyPasswordHash returns a valid hash used to keep the cost of checks for
// unknown users equal to the cost of a wrong password.
func dummyPasswordHash() string {
	dummyHashOnce.Do(func() {
		hash, err := pkgauth.HashPassword("dummy-password-for-timing")
		if err == nil {
			dummyHash = hash
		}
	})
	return dummyHash
}

// LoginService runs the ordered security pipeline for a login attempt and
// issues a session on success. The first failing check short-circuits.
type LoginService struct {
	users       LoginUserRepository
	passwords   PasswordReader
	ipAccess    IPAccessChecker
	accounts    AccountBlockChecker
	rateLimiter LoginRateLimiter
	geo         GeoLocator
	sessions    SessionCreator
	auditor     Auditor
	timing      *auth.TimingDelay
	logger      *slog.Logger
	now         func() time.Time
}

// LoginDependencies groups the collaborators of LoginService
type LoginDependencies struct {
	Users       LoginUserRepository
	Passwords   PasswordReader
	IPAccess    IPAccessChecker
	Accounts    AccountBlockChecker
	RateLimiter LoginRateLimiter
	Geo         GeoLocator
	Sessions    SessionCreator
	Auditor     Auditor
	Timing      *auth.TimingDelay
}

// NewLoginService creates a new LoginService
func NewLoginService(deps LoginDependencies, logger *slog.Logger) *LoginService {
	return &LoginService{
		users:       deps.Users,
		passwords:   deps.Passwords,
		ipAccess:    deps.IPAccess,
		accounts:    deps.Accounts,
		rateLimiter: deps.RateLimiter,
		geo:         deps.Geo,
		sessions:    deps.Sessions,
		auditor:     deps.Auditor,
		timing:      deps.Timing,
		logger:      logger,
		now:         time.Now,
	}
}

// loginAttempt carries the per-request state shared by the pipeline steps
type loginAttempt struct {
	req      LoginRequest
	email    string
	user     *models.User
	location *geoip.Location
}

func (s *LoginService) locate(ctx context.Context, a *loginAttempt) geoip.Location {
	if a.location == nil {
		loc := s.geo.Locate(ctx, a.req.IPAddress)
		a.location = &loc
	}
	return *a.location
}

// Login evaluates the request. Rejections are returned as *models.LoginError.
func (s *LoginService) Login(ctx context.Context, req LoginRequest) (result *LoginResult, err error) {
	a := &loginAttempt{req: req, email: normalizeEmail(req.Email)}

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, s.systemError(ctx, a, fmt.Errorf("panic in login pipeline: %v", r))
		}

		code := models.CodeSystemError
		var loginErr *models.LoginError
		switch {
		case err == nil && result != nil:
			code = result.Code
		case errors.As(err, &loginErr):
			code = loginErr.Code
		}
		metrics.LoginOutcomesTotal.WithLabelValues(code).Inc()
	}()

	return s.login(ctx, a)
}

func (s *LoginService) login(ctx context.Context, a *loginAttempt) (*LoginResult, error) {
	// 1. presence
	if a.email == "" || a.req.Password == "" {
		s.audit(ctx, a, false, models.CodeInvalidCredentials, "")
		return nil, models.NewLoginError(models.CodeInvalidCredentials)
	}

	// 2. ip blocklist
	blocked, err := s.ipAccess.IsBlocked(ctx, a.req.IPAddress)
	if err != nil {
		return nil, s.systemError(ctx, a, fmt.Errorf("ip blocklist lookup: %w", err))
	}
	if blocked {
		return nil, s.reject(ctx, a, models.NewLoginError(models.CodeIPBlocked), true)
	}

	// 3. whitelist, only exempts from the geo check
	whitelisted, err := s.ipAccess.IsWhitelisted(ctx, a.req.IPAddress)
	if err != nil {
		return nil, s.systemError(ctx, a, fmt.Errorf("ip whitelist lookup: %w", err))
	}

	user, err := s.users.GetByEmail(ctx, a.email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, s.systemError(ctx, a, fmt.Errorf("user lookup: %w", err))
	}
	a.user = user

	// 4. geo restriction; unknown emails are checked as users without the flag
	if !whitelisted {
		loc := s.locate(ctx, a)
		allowInternational := a.user != nil && a.user.AllowInternationalAccess
		if !loc.IsBrazil() && !allowInternational {
			loginErr := models.NewLoginError(models.CodeCountryBlocked)
			loginErr.Country = loc.Country
			return nil, s.reject(ctx, a, loginErr, true)
		}
	}

	// 5. rate limiting
	limit, err := s.rateLimiter.CheckLoginAttempts(ctx, a.email, a.req.IPAddress)
	if err != nil {
		return nil, s.systemError(ctx, a, fmt.Errorf("rate limit check: %w", err))
	}
	if !limit.Allowed {
		if limit.PermanentlyBlocked {
			loginErr := models.NewLoginError(models.CodeUserBlocked)
			loginErr.AttemptsLeft = intPtr(0)
			return nil, s.reject(ctx, a, loginErr, false)
		}
		loginErr := models.NewLoginError(models.CodeRateLimit)
		loginErr.AttemptsLeft = intPtr(0)
		loginErr.CooldownUntil = limit.CooldownUntil
		return nil, s.reject(ctx, a, loginErr, true)
	}

	// 6. account blocklist
	accountBlocked, err := s.accounts.IsBlocked(ctx, a.email)
	if err != nil {
		return nil, s.systemError(ctx, a, fmt.Errorf("account blocklist lookup: %w", err))
	}
	if accountBlocked {
		return nil, s.reject(ctx, a, models.NewLoginError(models.CodeUserBlocked), true)
	}

	// 7. credentials
	startTime := s.now()
	password, err := s.checkCredentials(ctx, a)
	if err != nil {
		return nil, s.systemError(ctx, a, err)
	}
	if password == nil {
		s.timing.WaitFrom(ctx, startTime, false)
		return nil, s.rejectCredentials(ctx, a)
	}
	s.timing.WaitFrom(ctx, startTime, true)

	// 8. success
	return s.succeed(ctx, a, password)
}

// checkCredentials returns the password record when the password matches an
// active user, nil otherwise. The hash is verified even for unknown users.
func (s *LoginService) checkCredentials(ctx context.Context, a *loginAttempt) (*models.UserPassword, error) {
	var password *models.UserPassword
	if a.user != nil {
		pw, err := s.passwords.GetByUserID(ctx, a.user.ID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("password lookup: %w", err)
		}
		password = pw
	}

	if password == nil {
		pkgauth.VerifyPassword(dummyPasswordHash(), a.req.Password)
		return nil, nil
	}

	if !pkgauth.VerifyPassword(password.PasswordHash, a.req.Password) || !a.user.IsActive {
		return nil, nil
	}

	return password, nil
}

func (s *LoginService) rejectCredentials(ctx context.Context, a *loginAttempt) error {
	s.locate(ctx, a)
	loginErr := models.NewLoginError(models.CodeInvalidCredentials)
	s.recordAttempt(ctx, a, false, models.CodeInvalidCredentials)

	attemptsLeft := 0
	if limit, err := s.rateLimiter.CheckLoginAttempts(ctx, a.email, a.req.IPAddress); err != nil {
		s.logger.Error("failed to refresh attempts left", slog.Any("error", err))
	} else {
		attemptsLeft = limit.AttemptsLeft
	}
	loginErr.AttemptsLeft = &attemptsLeft

	s.audit(ctx, a, false, models.CodeInvalidCredentials, "")
	return loginErr
}

func (s *LoginService) succeed(ctx context.Context, a *loginAttempt, password *models.UserPassword) (*LoginResult, error) {
	loc := s.locate(ctx, a)

	if err := s.rateLimiter.RecordLoginAttempt(ctx, a.email, a.req.IPAddress, true, s.meta(a, "")); err != nil {
		s.logger.Error("failed to record successful login attempt", slog.Any("error", err))
	}

	lastLogin := models.LastLogin{At: s.now(), IP: a.req.IPAddress, Country: loc.Country}
	if err := s.users.UpdateLastLogin(ctx, a.user.ID, lastLogin); err != nil {
		s.logger.Error("failed to update last login", slog.String("user_id", a.user.ID), slog.Any("error", err))
	}

	if password.IsFirstLogin {
		s.audit(ctx, a, true, models.CodeFirstLogin, "")
		return &LoginResult{Code: models.CodeFirstLogin, User: a.user}, nil
	}

	session, token, err := s.sessions.CreateSession(ctx, a.user.ID, a.req.IPAddress, a.req.UserAgent)
	if err != nil {
		return nil, s.systemError(ctx, a, err)
	}

	s.audit(ctx, a, true, models.CodeSuccess, session.ID)
	return &LoginResult{Code: models.CodeSuccess, User: a.user, Session: session, Token: token}, nil
}

// reject audits a rejection and, when record is set, appends a failed attempt
// carrying the rejection code.
func (s *LoginService) reject(ctx context.Context, a *loginAttempt, loginErr *models.LoginError, record bool) error {
	if record {
		s.recordAttempt(ctx, a, false, loginErr.Code)
	}
	s.audit(ctx, a, false, loginErr.Code, "")
	return loginErr
}

// systemError maps an unexpected failure to SYSTEM_ERROR and still makes a
// best-effort attempt record.
func (s *LoginService) systemError(ctx context.Context, a *loginAttempt, cause error) error {
	s.logger.Error("login pipeline failed", slog.Any("error", cause))

	ctx = context.WithoutCancel(ctx)
	if a.email != "" {
		s.bestEffort("record attempt", func() { s.recordAttempt(ctx, a, false, models.CodeSystemError) })
	}
	s.bestEffort("audit", func() { s.audit(ctx, a, false, models.CodeSystemError, "") })

	loginErr := models.NewLoginError(models.CodeSystemError)
	loginErr.Err = cause
	return loginErr
}

// bestEffort runs a side write of the failure path. A panic there is logged and dropped
// so the caller still returns SYSTEM_ERROR.
func (s *LoginService) bestEffort(step string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("login failure bookkeeping panicked", slog.String("step", step), slog.Any("panic", r))
		}
	}()
	fn()
}

func (s *LoginService) meta(a *loginAttempt, reason string) models.AttemptMeta {
	meta := models.AttemptMeta{UserAgent: a.req.UserAgent, ErrorReason: reason}
	if a.location != nil {
		meta.Country = a.location.Country
		meta.City = a.location.City
	}
	return meta
}

func (s *LoginService) recordAttempt(ctx context.Context, a *loginAttempt, success bool, reason string) {
	if err := s.rateLimiter.RecordLoginAttempt(ctx, a.email, a.req.IPAddress, success, s.meta(a, reason)); err != nil {
		s.logger.Error("failed to record login attempt", slog.String("reason", reason), slog.Any("error", err))
	}
}

func (s *LoginService) audit(ctx context.Context, a *loginAttempt, success bool, reason, sessionID string) {
	event := AuditEvent{
		ActionType: models.AuditActionLogin,
		Email:      a.email,
		Success:    success,
		Reason:     reason,
		IPAddress:  a.req.IPAddress,
		UserAgent:  a.req.UserAgent,
		SessionID:  sessionID,
	}
	if a.user != nil {
		event.UserID = a.user.ID
	}
	if a.location != nil {
		event.Location = a.location.String()
	}
	s.auditor.Record(ctx, event)
}

func intPtr(v int) *int {
	return &v
}
