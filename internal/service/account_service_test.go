package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/osms-business/osms_server/internal/model"
	"github.com/osms-business/osms_server/internal/repository"
	"github.com/osms-business/osms_server/internal/testutil"
)

func setupAccountService(t *testing.T) (*AccountService, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	service := NewAccountService(repository.NewUserRepository(db), repository.NewTransactionRepository(db))

	return service, db, func() { testutil.CleanupTestDB(t, db) }
}

func TestAccountService_CreditAndDebit(t *testing.T) {
	service, db, cleanup := setupAccountService(t)
	defer cleanup()
	ctx := context.Background()

	user := testutil.TestUser(t, db)

	balance, err := service.Credit(ctx, user.ID, 100, "manual")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	balance, err = service.Debit(ctx, user.ID, 40, "manual")
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance)

	balance, err = service.Debit(ctx, user.ID, 60, "manual")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestAccountService_Debit_Insufficient(t *testing.T) {
	service, db, cleanup := setupAccountService(t)
	defer cleanup()
	ctx := context.Background()

	user := testutil.TestUser(t, db, testutil.WithCredits(5))

	_, err := service.Debit(ctx, user.ID, 6, "manual")
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	balance, err := service.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)
}

func TestAccountService_ZeroAndNegativeAmounts(t *testing.T) {
	service, db, cleanup := setupAccountService(t)
	defer cleanup()
	ctx := context.Background()

	user := testutil.TestUser(t, db, testutil.WithCredits(7))

	balance, err := service.Credit(ctx, user.ID, 0, "noop")
	require.NoError(t, err)
	assert.Equal(t, int64(7), balance)

	balance, err = service.Debit(ctx, user.ID, 0, "noop")
	require.NoError(t, err)
	assert.Equal(t, int64(7), balance)

	_, err = service.Credit(ctx, user.ID, -1, "bad")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = service.Debit(ctx, user.ID, -1, "bad")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	var count int64
	db.Model(&model.CreditTransaction{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestAccountService_UnknownAccount(t *testing.T) {
	service, _, cleanup := setupAccountService(t)
	defer cleanup()

	_, err := service.Credit(context.Background(), 424242, 10, "x")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = service.Profile(424242)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestAccountService_ListTransactions(t *testing.T) {
	service, db, cleanup := setupAccountService(t)
	defer cleanup()
	ctx := context.Background()

	user := testutil.TestUser(t, db)
	for i := 0; i < 3; i++ {
		_, err := service.Credit(ctx, user.ID, 10, "topup")
		require.NoError(t, err)
	}
	_, err := service.Debit(ctx, user.ID, 5, "spend")
	require.NoError(t, err)

	items, total, err := service.ListTransactions(user.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, items, 2)

	info, err := service.Profile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), info.Credits)
}
