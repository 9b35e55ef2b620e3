package services

import (
	"testing"

	"git.solsynth.dev/hypernet/livepoll/pkg/internal/hub"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/models"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/testutil"
)

func setupProvider(t *testing.T) *testutil.FakeProvider {
	t.Helper()
	testutil.SetupTestDB(t)

	fake := &testutil.FakeProvider{}
	previous := Provider
	Provider = fake
	t.Cleanup(func() {
		Provider = previous
	})
	return fake
}

func subscribe(t *testing.T, account models.Account) *testutil.RecordingSubscriber {
	t.Helper()
	sub := &testutil.RecordingSubscriber{}
	t.Cleanup(hub.R.Join(account.DistributionKey, sub))
	return sub
}
