package testutil

import (
	"fmt"
	"strings"
	"testing"

	"git.solsynth.dev/hypernet/livepoll/pkg/internal/database"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/hub"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupTestDB points database.C at a fresh in-memory sqlite database for the duration of the test.
// It also gives the test an empty overlay registry.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)

	db, err := database.Open(sqlite.Open(dsn), "", false)
	require.NoError(t, err)

	conn, err := db.DB()
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)

	require.NoError(t, database.RunMigration(db))

	previousDB, previousHub := database.C, hub.R
	database.C, hub.R = db, hub.NewRegistry()
	t.Cleanup(func() {
		database.C, hub.R = previousDB, previousHub
		_ = conn.Close()
	})

	return db
}

func CreateTestAccount(t *testing.T, externalID string) models.Account {
	t.Helper()

	account := models.Account{
		ExternalID:      externalID,
		Name:            "streamer_" + externalID,
		Nick:            "Streamer " + externalID,
		AccessToken:     "access-" + externalID,
		RefreshToken:    "refresh-" + externalID,
		DistributionKey: uuid.NewString(),
	}
	require.NoError(t, database.C.Create(&account).Error)
	return account
}

// CreateTestPoll stores a poll record. A nil externalID makes it a draft.
func CreateTestPoll(t *testing.T, account models.Account, externalID *string, status string, choices ...string) models.Poll {
	t.Helper()

	if len(choices) == 0 {
		choices = []string{"A", "B"}
	}
	poll := models.Poll{
		ExternalID:  externalID,
		Title:       "Test poll",
		Choices:     choices,
		DurationSec: 60,
		Status:      status,
		AccountID:   account.ID,
	}
	require.NoError(t, database.C.Create(&poll).Error)
	return poll
}

func Ptr[T any](v T) *T {
	return &v
}
