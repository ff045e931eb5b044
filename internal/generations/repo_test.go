package generations

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/omarvides/restyle-backend/pkg/db/models"
	"github.com/omarvides/restyle-backend/pkg/enums"
	"github.com/omarvides/restyle-backend/pkg/pagination"
)

func setupGenerationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS generations (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  image_url TEXT NOT NULL,
  prompt TEXT NOT NULL,
  style TEXT,
  room_type TEXT,
  purpose TEXT NOT NULL DEFAULT 'redesign',
  parent_id TEXT,
  seed INTEGER,
  storage_key TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedGeneration(t *testing.T, db *gorm.DB, userID uuid.UUID, createdAt time.Time) *models.Generation {
	t.Helper()
	row := &models.Generation{
		ID:        uuid.New(),
		UserID:    userID,
		ImageURL:  "https://cdn.example/img.png",
		Prompt:    "prompt",
		Purpose:   enums.GenerationPurposeRedesign,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

func TestCountForUserSinceBoundary(t *testing.T) {
	db := setupGenerationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	midnight := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	seedGeneration(t, db, userID, midnight.Add(-time.Minute)) // yesterday
	seedGeneration(t, db, userID, midnight)                   // exactly at boundary counts
	seedGeneration(t, db, userID, midnight.Add(3*time.Hour))
	seedGeneration(t, db, uuid.New(), midnight.Add(time.Hour)) // other user

	count, err := repo.CountForUserSince(ctx, userID, midnight)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestListByUserPaginates(t *testing.T) {
	db := setupGenerationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	var newest *models.Generation
	for i := 0; i < 3; i++ {
		newest = seedGeneration(t, db, userID, base.Add(time.Duration(i)*time.Minute))
	}

	page, next, err := repo.ListByUser(ctx, ListQuery{UserID: userID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, newest.ID, page[0].ID) // newest first
	require.NotNil(t, next)

	rest, next, err := repo.ListByUser(ctx, ListQuery{UserID: userID, Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Nil(t, next)
	assert.NotEqual(t, page[0].ID, rest[0].ID)
	assert.NotEqual(t, page[1].ID, rest[0].ID)
}

func TestListByUserPageWalkLosesNoRows(t *testing.T) {
	db := setupGenerationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	seeded := map[uuid.UUID]bool{}
	for i := 0; i < 5; i++ {
		row := seedGeneration(t, db, userID, base.Add(time.Duration(i)*time.Minute))
		seeded[row.ID] = true
	}

	var cursor *pagination.Cursor
	seen := map[uuid.UUID]bool{}
	for pages := 0; ; pages++ {
		require.Less(t, pages, 10, "pagination did not terminate")
		page, next, err := repo.ListByUser(ctx, ListQuery{UserID: userID, Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, row := range page {
			require.False(t, seen[row.ID], "row %s returned twice", row.ID)
			seen[row.ID] = true
		}
		if next == nil {
			break
		}
		cursor = next
	}

	assert.Equal(t, seeded, seen)
}

func TestDeleteRemovesRow(t *testing.T) {
	db := setupGenerationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	row := seedGeneration(t, db, uuid.New(), time.Now().UTC())

	require.NoError(t, repo.Delete(ctx, row.ID))

	found, err := repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}
