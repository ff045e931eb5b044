package profiles

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/omarvides/restyle-backend/pkg/db/models"
	"github.com/omarvides/restyle-backend/pkg/enums"
)

func setupProfilesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS profiles (
  id TEXT PRIMARY KEY,
  credits INTEGER NOT NULL DEFAULT 0,
  subscription_status TEXT NOT NULL DEFAULT 'none',
  billing_customer_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestGetOrCreateInsertsZeroCreditProfile(t *testing.T) {
	db := setupProfilesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	profile, err := repo.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, userID, profile.ID)
	assert.Equal(t, 0, profile.Credits)
	assert.Equal(t, enums.SubscriptionStatusNone, profile.SubscriptionStatus)

	// second call returns the same row
	again, err := repo.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&models.Profile{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDecrementCreditsFloorsAtZero(t *testing.T) {
	db := setupProfilesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, db.Create(&models.Profile{ID: userID, Credits: 1}).Error)

	require.NoError(t, repo.DecrementCredits(ctx, userID))
	profile, err := repo.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, profile.Credits)

	// decrement at zero is a no-op, never negative
	require.NoError(t, repo.DecrementCredits(ctx, userID))
	profile, err = repo.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, profile.Credits)
}

func TestActivateSubscriptionSetsSentinelCredits(t *testing.T) {
	db := setupProfilesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, repo.ActivateSubscription(ctx, userID, 100000, "cust_42"))

	profile, err := repo.FindByID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, enums.SubscriptionStatusActive, profile.SubscriptionStatus)
	assert.Equal(t, 100000, profile.Credits)
	require.NotNil(t, profile.BillingCustomerID)
	assert.Equal(t, "cust_42", *profile.BillingCustomerID)

	// reapplying the same transition leaves the profile unchanged
	require.NoError(t, repo.ActivateSubscription(ctx, userID, 100000, "cust_42"))
	profile, err = repo.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusActive, profile.SubscriptionStatus)
	assert.Equal(t, 100000, profile.Credits)
}

func TestFindByIDReturnsNilWhenMissing(t *testing.T) {
	db := setupProfilesTestDB(t)
	repo := NewRepository(db)

	profile, err := repo.FindByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, profile)
}
