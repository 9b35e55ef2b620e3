package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"git.solsynth.dev/hypernet/livepoll/pkg/internal/database"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/models"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services/twitch"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestReconcileIsolatesTenantFailures(t *testing.T) {
	fake := setupProvider(t)
	tenantA := testutil.CreateTestAccount(t, "1001")
	tenantB := testutil.CreateTestAccount(t, "1002")
	testutil.CreateTestPoll(t, tenantA, testutil.Ptr("pa"), models.PollStatusActive)
	pollB := testutil.CreateTestPoll(t, tenantB, testutil.Ptr("pb"), models.PollStatusActive, "X", "Y")
	subA := subscribe(t, tenantA)
	subB := subscribe(t, tenantB)

	fake.OnGetPoll = func(token, broadcasterID, pollID string) (twitch.Poll, error) {
		if broadcasterID == tenantA.ExternalID {
			return twitch.Poll{}, context.DeadlineExceeded
		}
		return twitch.Poll{
			ID:     pollID,
			Status: "ACTIVE",
			Choices: []twitch.PollChoice{
				{Title: "X", Votes: 3},
				{Title: "Y", Votes: 1},
			},
		}, nil
	}

	report := ReconcilePollsWithContext(context.Background())
	assert.Equal(t, TickReport{Tenants: 2, Emitted: 1, Failed: 1}, report)

	assert.Empty(t, subA.Snapshots(t))
	snapshots := subB.Snapshots(t)
	require.Len(t, snapshots, 1)
	assert.Equal(t, models.NewPollSnapshot("pb", "", "active", []models.PollChoice{
		{Title: "X", Votes: 3},
		{Title: "Y", Votes: 1},
	}), snapshots[0])

	stored, err := GetPoll(tenantB, pollB.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PollStatusActive, stored.Status)
}

func TestReconcileRecoversPanickingTenant(t *testing.T) {
	fake := setupProvider(t)
	tenantA := testutil.CreateTestAccount(t, "1001")
	tenantB := testutil.CreateTestAccount(t, "1002")
	testutil.CreateTestPoll(t, tenantA, testutil.Ptr("pa"), models.PollStatusActive)
	testutil.CreateTestPoll(t, tenantB, testutil.Ptr("pb"), models.PollStatusActive)
	subB := subscribe(t, tenantB)

	fake.OnGetPoll = func(token, broadcasterID, pollID string) (twitch.Poll, error) {
		if broadcasterID == tenantA.ExternalID {
			panic("unexpected payload")
		}
		return twitch.Poll{ID: pollID, Status: "ACTIVE"}, nil
	}

	var observed TickReport
	TickObserver = func(report TickReport) {
		observed = report
	}
	t.Cleanup(func() {
		TickObserver = nil
	})

	report := ReconcilePollsWithContext(context.Background())
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Emitted)
	assert.Equal(t, report, observed)
	assert.Len(t, subB.Snapshots(t), 1)
}

func TestReconcileUsesLatestSubmittedPoll(t *testing.T) {
	fake := setupProvider(t)
	account := testutil.CreateTestAccount(t, "1001")
	testutil.CreateTestPoll(t, account, testutil.Ptr("old"), models.PollStatusCompleted)
	testutil.CreateTestPoll(t, account, testutil.Ptr("new"), models.PollStatusActive)
	testutil.CreateTestPoll(t, account, nil, models.PollStatusDraft)

	var requested []string
	fake.OnGetPoll = func(token, broadcasterID, pollID string) (twitch.Poll, error) {
		requested = append(requested, pollID)
		return twitch.Poll{ID: pollID, Status: "ACTIVE"}, nil
	}

	outcome, err := ReconcileAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, ReconcileEmitted, outcome)
	assert.Equal(t, []string{"new"}, requested)
}

func TestReconcileSkipsTenantInFlight(t *testing.T) {
	fake := setupProvider(t)
	account := testutil.CreateTestAccount(t, "1001")
	testutil.CreateTestPoll(t, account, testutil.Ptr("p1"), models.PollStatusActive)

	require.True(t, acquireTenant(account.ID))
	outcome, err := ReconcileAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, ReconcileSkipped, outcome)
	assert.Zero(t, fake.CallCount("get"))

	releaseTenant(account.ID)
	outcome, err = ReconcileAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, ReconcileEmitted, outcome)
}

func TestReconcileNeverOverlapsPerTenant(t *testing.T) {
	fake := setupProvider(t)
	account := testutil.CreateTestAccount(t, "1001")
	testutil.CreateTestPoll(t, account, testutil.Ptr("p1"), models.PollStatusActive)

	entered := make(chan struct{})
	release := make(chan struct{})
	fake.OnGetPoll = func(token, broadcasterID, pollID string) (twitch.Poll, error) {
		close(entered)
		<-release
		return twitch.Poll{ID: pollID, Status: "ACTIVE"}, nil
	}

	done := make(chan ReconcileOutcome, 1)
	go func() {
		outcome, _ := ReconcileAccount(context.Background(), account.ID)
		done <- outcome
	}()
	<-entered

	outcome, err := ReconcileAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, ReconcileSkipped, outcome)

	close(release)
	assert.Equal(t, ReconcileEmitted, <-done)
	assert.Equal(t, 1, fake.CallCount("get"))
}

func TestReconcileRefreshesCredential(t *testing.T) {
	fake := setupProvider(t)
	account := testutil.CreateTestAccount(t, "1001")
	testutil.CreateTestPoll(t, account, testutil.Ptr("p1"), models.PollStatusActive)
	sub := subscribe(t, account)

	fake.OnGetPoll = func(token, broadcasterID, pollID string) (twitch.Poll, error) {
		if token != "refreshed-access" {
			return twitch.Poll{}, &twitch.APIError{StatusCode: 401, Body: []byte(`{"message":"Invalid OAuth token"}`)}
		}
		return twitch.Poll{ID: pollID, Status: "ACTIVE"}, nil
	}

	outcome, err := ReconcileAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, ReconcileEmitted, outcome)
	assert.Equal(t, 1, fake.CallCount("refresh"))
	assert.Equal(t, 2, fake.CallCount("get"))
	assert.Len(t, sub.Snapshots(t), 1)

	stored, err := GetAccount(account.ID)
	require.NoError(t, err)
	assert.Equal(t, "refreshed-access", stored.AccessToken)
	assert.Equal(t, "refreshed-refresh", stored.RefreshToken)
}

func TestReconcileRefreshFailure(t *testing.T) {
	fake := setupProvider(t)
	account := testutil.CreateTestAccount(t, "1001")
	poll := testutil.CreateTestPoll(t, account, testutil.Ptr("p1"), models.PollStatusActive)
	sub := subscribe(t, account)

	fake.OnGetPoll = func(token, broadcasterID, pollID string) (twitch.Poll, error) {
		return twitch.Poll{}, &twitch.APIError{StatusCode: 403}
	}
	fake.OnRefreshToken = func(refreshToken string) (*oauth2.Token, error) {
		return nil, errors.New("invalid refresh token")
	}

	outcome, err := ReconcileAccount(context.Background(), account.ID)
	assert.Equal(t, ReconcileFailed, outcome)
	assert.ErrorIs(t, err, ErrCredential)
	assert.Equal(t, 1, fake.CallCount("get"))
	assert.Empty(t, sub.Snapshots(t))

	stored, err := GetPoll(account, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PollStatusActive, stored.Status)

	storedAccount, err := GetAccount(account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.AccessToken, storedAccount.AccessToken)
}

func TestReconcileSkipsSettledPoll(t *testing.T) {
	fake := setupProvider(t)
	viper.Set("reconcile.settle_after", time.Minute)
	t.Cleanup(func() {
		viper.Set("reconcile.settle_after", 0)
	})

	account := testutil.CreateTestAccount(t, "1001")
	poll := testutil.CreateTestPoll(t, account, testutil.Ptr("p1"), models.PollStatusTerminated)
	endedAt := time.Now().Add(-time.Hour)
	require.NoError(t, database.C.Model(&poll).Update("ended_at", endedAt).Error)

	outcome, err := ReconcileAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, ReconcileSkipped, outcome)
	assert.Zero(t, fake.CallCount("get"))

	fake.OnGetPoll = func(token, broadcasterID, pollID string) (twitch.Poll, error) {
		return twitch.Poll{ID: pollID, Status: "TERMINATED"}, nil
	}
	require.NoError(t, database.C.Model(&poll).Update("ended_at", time.Now()).Error)
	outcome, err = ReconcileAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, ReconcileEmitted, outcome)
}

func TestReconcileCutsOffHangingTenant(t *testing.T) {
	fake := setupProvider(t)
	viper.Set("twitch.timeout", 200*time.Millisecond)
	viper.Set("reconcile.concurrency", 1)
	t.Cleanup(func() {
		viper.Set("twitch.timeout", 0)
		viper.Set("reconcile.concurrency", 0)
	})

	tenantA := testutil.CreateTestAccount(t, "1001")
	tenantB := testutil.CreateTestAccount(t, "1002")
	testutil.CreateTestPoll(t, tenantA, testutil.Ptr("pa"), models.PollStatusActive)
	testutil.CreateTestPoll(t, tenantB, testutil.Ptr("pb"), models.PollStatusActive)
	subA := subscribe(t, tenantA)
	subB := subscribe(t, tenantB)

	hung := make(chan error, 1)
	fake.OnGetPollContext = func(ctx context.Context, token, broadcasterID, pollID string) (twitch.Poll, error) {
		if broadcasterID == tenantA.ExternalID {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			<-ctx.Done()
			hung <- ctx.Err()
			return twitch.Poll{}, ctx.Err()
		}
		return twitch.Poll{ID: pollID, Status: "ACTIVE"}, nil
	}

	start := time.Now()
	report := ReconcilePollsWithContext(context.Background())
	elapsed := time.Since(start)

	assert.Equal(t, TickReport{Tenants: 2, Emitted: 1, Failed: 1}, report)
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
	assert.ErrorIs(t, <-hung, context.DeadlineExceeded)

	assert.Empty(t, subA.Snapshots(t))
	assert.Len(t, subB.Snapshots(t), 1)
	assert.Equal(t, 0, fake.CallCount("refresh"))
}

func TestReconcileDropsStaleActiveAfterEnd(t *testing.T) {
	fake := setupProvider(t)
	account := testutil.CreateTestAccount(t, "1001")
	poll := testutil.CreateTestPoll(t, account, testutil.Ptr("p1"), models.PollStatusActive)
	sub := subscribe(t, account)

	// The tick read ACTIVE just before the poll was ended from the dashboard.
	fake.OnGetPoll = func(token, broadcasterID, pollID string) (twitch.Poll, error) {
		_, err := EndPollNow(context.Background(), account)
		require.NoError(t, err)
		return twitch.Poll{ID: pollID, Status: "ACTIVE"}, nil
	}

	outcome, err := ReconcileAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, ReconcileSkipped, outcome)

	snapshots := sub.Snapshots(t)
	require.Len(t, snapshots, 1)
	assert.Equal(t, models.PollStatusTerminated, snapshots[0].Status)

	stored, err := GetPoll(account, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PollStatusTerminated, stored.Status)
	assert.NotNil(t, stored.EndedAt)
}
