// Package testutil provides an in-memory implementation of the repositories
// used by the services and handlers, for tests that exercise full flows.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gestaoconhecimento/gc-auth/internal/models"
)

// MemoryStore mirrors the semantics of the PostgreSQL repositories,
// including conditional updates and natural-key upserts.
type MemoryStore struct {
	mu sync.Mutex

	Users        map[string]*models.User
	Passwords    map[string]*models.UserPassword
	Sessions     map[string]*models.Session
	Attempts     []*models.LoginAttempt
	BlockedUsers map[string]*models.BlockedUser // keyed by lower-case email
	BlockedIPs   map[string]*models.BlockedIP
	Whitelist    map[string]*models.WhitelistedIP
	Audit        []*models.LoginAudit
	Codes        []*models.EmailVerificationCode
	Resets       []*models.PasswordReset

	// FailWith, when set, is returned by every read used in access checks
	FailWith error
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Users:        make(map[string]*models.User),
		Passwords:    make(map[string]*models.UserPassword),
		Sessions:     make(map[string]*models.Session),
		BlockedUsers: make(map[string]*models.BlockedUser),
		BlockedIPs:   make(map[string]*models.BlockedIP),
		Whitelist:    make(map[string]*models.WhitelistedIP),
	}
}

// Repository views. Each view satisfies the interface of the matching
// PostgreSQL repository.
type (
	UserStore        struct{ m *MemoryStore }
	PasswordStore    struct{ m *MemoryStore }
	SessionStore     struct{ m *MemoryStore }
	AttemptStore     struct{ m *MemoryStore }
	BlockedUserStore struct{ m *MemoryStore }
	IPListStore      struct{ m *MemoryStore }
	AuditStore       struct{ m *MemoryStore }
	CodeStore        struct{ m *MemoryStore }
	ResetStore       struct{ m *MemoryStore }
)

func (m *MemoryStore) UserRepo() *UserStore               { return &UserStore{m} }
func (m *MemoryStore) PasswordRepo() *PasswordStore       { return &PasswordStore{m} }
func (m *MemoryStore) SessionRepo() *SessionStore         { return &SessionStore{m} }
func (m *MemoryStore) AttemptRepo() *AttemptStore         { return &AttemptStore{m} }
func (m *MemoryStore) BlockedUserRepo() *BlockedUserStore { return &BlockedUserStore{m} }
func (m *MemoryStore) IPListRepo() *IPListStore           { return &IPListStore{m} }
func (m *MemoryStore) AuditRepo() *AuditStore             { return &AuditStore{m} }
func (m *MemoryStore) CodeRepo() *CodeStore               { return &CodeStore{m} }
func (m *MemoryStore) ResetRepo() *ResetStore             { return &ResetStore{m} }

func cloneUser(u *models.User) *models.User {
	c := *u
	return &c
}

func cloneSession(s *models.Session) *models.Session {
	c := *s
	return &c
}

// AddUser stores a user and, when passwordHash is non-empty, its password record
func (m *MemoryStore) AddUser(user *models.User, passwordHash string, firstLogin bool) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(user.Email)
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	m.Users[user.ID] = cloneUser(user)

	if passwordHash != "" {
		m.Passwords[user.ID] = &models.UserPassword{
			UserID:       user.ID,
			PasswordHash: passwordHash,
			IsFirstLogin: firstLogin,
			MustChange:   firstLogin,
			CreatedAt:    time.Now(),
		}
	}
	return user
}

// AuditActions returns the action types of every audit entry, in write order
func (m *MemoryStore) AuditActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	actions := make([]string, 0, len(m.Audit))
	for _, a := range m.Audit {
		actions = append(actions, a.ActionType)
	}
	return actions
}

// --- users ---

func (r *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if u, ok := r.m.Users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, models.ErrNotFound
}

func (r *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if r.m.FailWith != nil {
		return nil, r.m.FailWith
	}
	for _, u := range r.m.Users {
		if u.Email == strings.ToLower(email) {
			return cloneUser(u), nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *UserStore) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	users := make([]*models.User, 0, len(r.m.Users))
	for _, u := range r.m.Users {
		users = append(users, cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	if offset >= len(users) {
		return []*models.User{}, nil
	}
	users = users[offset:]
	if limit > 0 && limit < len(users) {
		users = users[:limit]
	}
	return users, nil
}

func (r *UserStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, u := range r.m.Users {
		if u.Email == strings.ToLower(user.Email) {
			return nil, models.ErrConflict
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(user.Email)
	r.m.Users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *UserStore) UpdateLastLogin(ctx context.Context, userID string, login models.LastLogin) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	u, ok := r.m.Users[userID]
	if !ok {
		return models.ErrNotFound
	}
	at, ip, country := login.At, login.IP, login.Country
	u.LastLoginAt, u.LastLoginIP, u.LastLoginCountry = &at, &ip, &country
	return nil
}

func (r *UserStore) SetInternationalAccess(ctx context.Context, userID string, allow bool) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	u, ok := r.m.Users[userID]
	if !ok {
		return models.ErrNotFound
	}
	u.AllowInternationalAccess = allow
	return nil
}

// SetActive toggles a user's active flag
func (m *MemoryStore) SetActive(userID string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.Users[userID]; ok {
		u.IsActive = active
	}
}

// --- passwords ---

func (r *PasswordStore) GetByUserID(ctx context.Context, userID string) (*models.UserPassword, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if p, ok := r.m.Passwords[userID]; ok {
		c := *p
		return &c, nil
	}
	return nil, models.ErrNotFound
}

func (r *PasswordStore) Upsert(ctx context.Context, pw *models.UserPassword) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	c := *pw
	r.m.Passwords[pw.UserID] = &c
	return nil
}

func (r *PasswordStore) RedeemReset(ctx context.Context, tokenHash, userID, passwordHash string, now time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var reset *models.PasswordReset
	for _, r := range r.m.Resets {
		if r.TokenHash == tokenHash && r.UserID == userID && r.IsValid(now) {
			reset = r
			break
		}
	}
	if reset == nil {
		return models.ErrInvalidVerificationToken
	}
	used := now
	reset.UsedAt = &used

	r.m.Passwords[userID] = &models.UserPassword{
		UserID:            userID,
		PasswordHash:      passwordHash,
		PasswordUpdatedAt: &used,
		CreatedAt:         now,
	}
	return nil
}

// --- sessions ---

func (r *SessionStore) Create(ctx context.Context, s *models.Session) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, existing := range r.m.Sessions {
		if existing.TokenHash == s.TokenHash {
			return nil, models.ErrConflict
		}
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.IsActive = true
	r.m.Sessions[s.ID] = cloneSession(s)
	return cloneSession(s), nil
}

func (r *SessionStore) GetActiveByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if r.m.FailWith != nil {
		return nil, r.m.FailWith
	}
	for _, s := range r.m.Sessions {
		if s.TokenHash == tokenHash && s.IsActive && s.RevokedAt == nil {
			return cloneSession(s), nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *SessionStore) GetByID(ctx context.Context, id string) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if s, ok := r.m.Sessions[id]; ok {
		return cloneSession(s), nil
	}
	return nil, models.ErrNotFound
}

func (r *SessionStore) TouchActivity(ctx context.Context, id string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if s, ok := r.m.Sessions[id]; ok && s.IsActive {
		s.LastActivity = at
	}
	return nil
}

func (r *SessionStore) Revoke(ctx context.Context, id string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	s, ok := r.m.Sessions[id]
	if !ok {
		return models.ErrNotFound
	}
	s.IsActive = false
	if s.RevokedAt == nil {
		revokedAt := at
		s.RevokedAt = &revokedAt
	}
	return nil
}

func (r *SessionStore) RevokeAllForUser(ctx context.Context, userID, exceptID string, at time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var n int64
	for _, s := range r.m.Sessions {
		if s.UserID == userID && s.IsActive && s.ID != exceptID {
			revokedAt := at
			s.IsActive = false
			s.RevokedAt = &revokedAt
			n++
		}
	}
	return n, nil
}

func (r *SessionStore) ListActive(ctx context.Context, userID string, now time.Time) ([]*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	sessions := make([]*models.Session, 0)
	for _, s := range r.m.Sessions {
		if !s.IsActive || s.RevokedAt != nil || !s.ExpiresAt.After(now) {
			continue
		}
		if userID != "" && s.UserID != userID {
			continue
		}
		sessions = append(sessions, cloneSession(s))
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].LastActivity.After(sessions[j].LastActivity) })
	return sessions, nil
}

func (r *SessionStore) DeactivateExpired(ctx context.Context, now, idleCutoff time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var n int64
	for _, s := range r.m.Sessions {
		if s.IsActive && (!s.ExpiresAt.After(now) || !s.LastActivity.After(idleCutoff)) {
			revokedAt := now
			s.IsActive = false
			s.RevokedAt = &revokedAt
			n++
		}
	}
	return n, nil
}

// --- login attempts ---

func (r *AttemptStore) Create(ctx context.Context, attempt *models.LoginAttempt) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	c := *attempt
	c.ID = uuid.New().String()
	c.Email = strings.ToLower(c.Email)
	r.m.Attempts = append(r.m.Attempts, &c)
	return nil
}

func (r *AttemptStore) CountFailedSince(ctx context.Context, email string, since time.Time) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if r.m.FailWith != nil {
		return 0, r.m.FailWith
	}
	count := 0
	for _, a := range r.m.Attempts {
		if a.Email == strings.ToLower(email) && !a.Success && !a.AttemptedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *AttemptStore) LatestFailureSince(ctx context.Context, email string, since time.Time) (*time.Time, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var latest *time.Time
	for _, a := range r.m.Attempts {
		if a.Email == strings.ToLower(email) && !a.Success && !a.AttemptedAt.Before(since) {
			if latest == nil || a.AttemptedAt.After(*latest) {
				t := a.AttemptedAt
				latest = &t
			}
		}
	}
	return latest, nil
}

func (r *AttemptStore) DeleteFailed(ctx context.Context, email string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	kept := r.m.Attempts[:0]
	var n int64
	for _, a := range r.m.Attempts {
		if a.Email == strings.ToLower(email) && !a.Success {
			n++
			continue
		}
		kept = append(kept, a)
	}
	r.m.Attempts = kept
	return n, nil
}

func (r *AttemptStore) ListRecent(ctx context.Context, limit int) ([]*models.LoginAttempt, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	attempts := make([]*models.LoginAttempt, len(r.m.Attempts))
	copy(attempts, r.m.Attempts)
	sort.SliceStable(attempts, func(i, j int) bool { return attempts[i].AttemptedAt.After(attempts[j].AttemptedAt) })
	if limit > 0 && limit < len(attempts) {
		attempts = attempts[:limit]
	}
	return attempts, nil
}

func (r *AttemptStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	kept := r.m.Attempts[:0]
	var n int64
	for _, a := range r.m.Attempts {
		if a.AttemptedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, a)
	}
	r.m.Attempts = kept
	return n, nil
}

// FailedAttempts returns the failed attempts recorded for email
func (m *MemoryStore) FailedAttempts(email string) []*models.LoginAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()

	failed := make([]*models.LoginAttempt, 0)
	for _, a := range m.Attempts {
		if a.Email == strings.ToLower(email) && !a.Success {
			failed = append(failed, a)
		}
	}
	return failed
}

// --- blocked users ---

func (r *BlockedUserStore) GetActiveByEmail(ctx context.Context, email string) (*models.BlockedUser, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if r.m.FailWith != nil {
		return nil, r.m.FailWith
	}
	if b, ok := r.m.BlockedUsers[strings.ToLower(email)]; ok && b.IsActive {
		c := *b
		return &c, nil
	}
	return nil, models.ErrNotFound
}

func (r *BlockedUserStore) Upsert(ctx context.Context, b *models.BlockedUser) (*models.BlockedUser, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	key := strings.ToLower(b.Email)
	existing, ok := r.m.BlockedUsers[key]
	if !ok {
		existing = &models.BlockedUser{ID: uuid.New().String(), Email: key}
		r.m.BlockedUsers[key] = existing
	}
	existing.UserID = b.UserID
	existing.Reason = b.Reason
	existing.BlockedBy = b.BlockedBy
	existing.BlockedAt = b.BlockedAt
	existing.IsActive = true

	c := *existing
	return &c, nil
}

func (r *BlockedUserStore) CreateAutomatic(ctx context.Context, userID, email, reason string, at time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	key := strings.ToLower(email)
	existing, ok := r.m.BlockedUsers[key]
	if ok && existing.IsActive {
		return false, nil
	}
	if !ok {
		existing = &models.BlockedUser{ID: uuid.New().String(), Email: key}
		r.m.BlockedUsers[key] = existing
	}
	existing.UserID = userID
	existing.Reason = reason
	existing.BlockedBy = nil
	existing.BlockedAt = at
	existing.IsActive = true
	return true, nil
}

func (r *BlockedUserStore) DeactivateByEmail(ctx context.Context, email string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if b, ok := r.m.BlockedUsers[strings.ToLower(email)]; ok && b.IsActive {
		b.IsActive = false
		return 1, nil
	}
	return 0, nil
}

func (r *BlockedUserStore) ListActive(ctx context.Context) ([]*models.BlockedUser, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	blocks := make([]*models.BlockedUser, 0)
	for _, b := range r.m.BlockedUsers {
		if b.IsActive {
			c := *b
			blocks = append(blocks, &c)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].BlockedAt.After(blocks[j].BlockedAt) })
	return blocks, nil
}

// ActiveBlockCount returns the number of active account blocks
func (m *MemoryStore) ActiveBlockCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, b := range m.BlockedUsers {
		if b.IsActive {
			n++
		}
	}
	return n
}

// --- ip lists ---

func (r *IPListStore) IsBlocked(ctx context.Context, ip string, now time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if r.m.FailWith != nil {
		return false, r.m.FailWith
	}
	b, ok := r.m.BlockedIPs[ip]
	return ok && b.IsEffective(now), nil
}

func (r *IPListStore) UpsertBlock(ctx context.Context, b *models.BlockedIP) (*models.BlockedIP, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	existing, ok := r.m.BlockedIPs[b.IPAddress]
	if !ok {
		existing = &models.BlockedIP{ID: uuid.New().String(), IPAddress: b.IPAddress}
		r.m.BlockedIPs[b.IPAddress] = existing
	}
	existing.Reason = b.Reason
	existing.BlockedBy = b.BlockedBy
	existing.BlockedAt = b.BlockedAt
	existing.ExpiresAt = b.ExpiresAt
	existing.IsActive = true

	c := *existing
	return &c, nil
}

func (r *IPListStore) DeactivateBlock(ctx context.Context, ip string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if b, ok := r.m.BlockedIPs[ip]; ok && b.IsActive {
		b.IsActive = false
		return 1, nil
	}
	return 0, nil
}

func (r *IPListStore) ListBlocked(ctx context.Context) ([]*models.BlockedIP, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	blocks := make([]*models.BlockedIP, 0)
	for _, b := range r.m.BlockedIPs {
		if b.IsActive {
			c := *b
			blocks = append(blocks, &c)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].BlockedAt.After(blocks[j].BlockedAt) })
	return blocks, nil
}

func (r *IPListStore) IsWhitelisted(ctx context.Context, ip string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if r.m.FailWith != nil {
		return false, r.m.FailWith
	}
	w, ok := r.m.Whitelist[ip]
	return ok && w.IsActive, nil
}

func (r *IPListStore) UpsertWhitelist(ctx context.Context, w *models.WhitelistedIP) (*models.WhitelistedIP, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	existing, ok := r.m.Whitelist[w.IPAddress]
	if !ok {
		existing = &models.WhitelistedIP{ID: uuid.New().String(), IPAddress: w.IPAddress}
		r.m.Whitelist[w.IPAddress] = existing
	}
	existing.Description = w.Description
	existing.AddedBy = w.AddedBy
	existing.AddedAt = w.AddedAt
	existing.IsActive = true

	c := *existing
	return &c, nil
}

func (r *IPListStore) DeactivateWhitelist(ctx context.Context, ip string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if w, ok := r.m.Whitelist[ip]; ok && w.IsActive {
		w.IsActive = false
		return 1, nil
	}
	return 0, nil
}

func (r *IPListStore) ListWhitelisted(ctx context.Context) ([]*models.WhitelistedIP, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	entries := make([]*models.WhitelistedIP, 0)
	for _, w := range r.m.Whitelist {
		if w.IsActive {
			c := *w
			entries = append(entries, &c)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].AddedAt.After(entries[j].AddedAt) })
	return entries, nil
}

// --- login audit ---

func (r *AuditStore) Create(ctx context.Context, entry *models.LoginAudit) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	c := *entry
	c.ID = uuid.New().String()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	r.m.Audit = append(r.m.Audit, &c)
	return nil
}

func matchAudit(a *models.LoginAudit, filter models.LoginAuditFilter) bool {
	if filter.UserID != "" && (a.UserID == nil || *a.UserID != filter.UserID) {
		return false
	}
	if filter.Action != "" && a.ActionType != filter.Action {
		return false
	}
	if filter.Success != nil && a.Success != *filter.Success {
		return false
	}
	if filter.StartDate != nil && a.CreatedAt.Before(*filter.StartDate) {
		return false
	}
	if filter.EndDate != nil && a.CreatedAt.After(*filter.EndDate) {
		return false
	}
	return true
}

func (r *AuditStore) List(ctx context.Context, filter models.LoginAuditFilter) ([]*models.LoginAudit, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	matched := make([]*models.LoginAudit, 0)
	for i := len(r.m.Audit) - 1; i >= 0; i-- {
		if matchAudit(r.m.Audit[i], filter) {
			matched = append(matched, r.m.Audit[i])
		}
	}
	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return []*models.LoginAudit{}, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (r *AuditStore) Stats(ctx context.Context, userID string) (*models.LoginAuditStats, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	stats := &models.LoginAuditStats{}
	ips := make(map[string]struct{})
	for _, a := range r.m.Audit {
		if a.ActionType != models.AuditActionLogin {
			continue
		}
		if userID != "" && (a.UserID == nil || *a.UserID != userID) {
			continue
		}
		stats.TotalLogins++
		if a.Success {
			stats.SuccessLogins++
		} else {
			stats.FailedLogins++
		}
		if a.IPAddress != nil {
			ips[*a.IPAddress] = struct{}{}
		}
	}
	stats.UniqueIPs = int64(len(ips))
	if stats.TotalLogins > 0 {
		stats.SuccessRate = float64(stats.SuccessLogins) / float64(stats.TotalLogins) * 100
	}
	return stats, nil
}

// --- verification codes and password resets ---

func (r *CodeStore) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.EmailVerificationCode, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	code := &models.EmailVerificationCode{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	r.m.Codes = append(r.m.Codes, code)
	c := *code
	return &c, nil
}

func (r *CodeStore) Consume(ctx context.Context, userID, tokenHash string, now time.Time) (*models.EmailVerificationCode, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for i := len(r.m.Codes) - 1; i >= 0; i-- {
		code := r.m.Codes[i]
		if code.UserID == userID && code.TokenHash == tokenHash && !code.IsUsed() && !code.IsExpired(now) {
			used := now
			code.UsedAt = &used
			c := *code
			return &c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *ResetStore) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.m.Resets = append(r.m.Resets, &models.PasswordReset{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	})
	return nil
}

func (r *CodeStore) CleanupExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	kept := r.m.Codes[:0]
	var n int64
	for _, c := range r.m.Codes {
		if c.ExpiresAt.Before(cutoff) || (c.UsedAt != nil && c.UsedAt.Before(cutoff)) {
			n++
			continue
		}
		kept = append(kept, c)
	}
	r.m.Codes = kept
	return n, nil
}

func (r *ResetStore) CleanupExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	kept := r.m.Resets[:0]
	var n int64
	for _, p := range r.m.Resets {
		if p.ExpiresAt.Before(cutoff) || (p.UsedAt != nil && p.UsedAt.Before(cutoff)) {
			n++
			continue
		}
		kept = append(kept, p)
	}
	r.m.Resets = kept
	return n, nil
}
