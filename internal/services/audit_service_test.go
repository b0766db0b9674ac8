package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestaoconhecimento/gc-auth/internal/models"
)

// failingAuditRepository rejects every write
type failingAuditRepository struct {
	LoginAuditRepository
}

func (failingAuditRepository) Create(ctx context.Context, entry *models.LoginAudit) error {
	return assert.AnError
}

func TestAuditService_Record(t *testing.T) {
	env := newTestEnv(t)

	env.audit.Record(context.Background(), AuditEvent{
		ActionType: models.AuditActionLogin,
		UserID:     "user-1",
		Email:      " User@Example.com ",
		Success:    false,
		Reason:     models.CodeCountryBlocked,
		IPAddress:  foreignIP,
		Location:   "Ashburn, United States",
	})

	require.Len(t, env.store.Audit, 1)
	entry := env.store.Audit[0]
	assert.Equal(t, "user-1", *entry.UserID)
	assert.Equal(t, "user@example.com", *entry.EmailInput)
	assert.Equal(t, models.CodeCountryBlocked, *entry.Reason)
	assert.Equal(t, models.AuditProviderLocal, entry.Provider)
	assert.Nil(t, entry.SessionID)
	assert.Nil(t, entry.UserAgent)
}

func TestAuditService_RecordSwallowsStoreErrors(t *testing.T) {
	svc := NewAuditService(failingAuditRepository{}, newTestLogger())

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), AuditEvent{ActionType: models.AuditActionLogout})
	})
}

func TestAuditService_ListAndStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.addUser(t, "user@example.com", false)

	env.attempt("user@example.com", "Errada#2024x", brazilIP)
	env.attempt("user@example.com", testPassword, brazilIP)
	env.attempt("user@example.com", testPassword, "200.160.2.4")

	failed := false
	logs, total, err := env.audit.List(ctx, models.LoginAuditFilter{UserID: user.ID, Success: &failed})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, logs, 1)
	assert.Equal(t, models.CodeInvalidCredentials, *logs[0].Reason)

	logs, total, err = env.audit.List(ctx, models.LoginAuditFilter{Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, logs, 1)

	stats, err := env.audit.Stats(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalLogins)
	assert.EqualValues(t, 2, stats.SuccessLogins)
	assert.EqualValues(t, 1, stats.FailedLogins)
	assert.EqualValues(t, 2, stats.UniqueIPs)
	assert.InDelta(t, 66.67, stats.SuccessRate, 0.01)
}
