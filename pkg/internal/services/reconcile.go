package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"git.solsynth.dev/hypernet/livepoll/pkg/internal/database"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/models"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services/twitch"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

type ReconcileOutcome int

const (
	ReconcileEmitted ReconcileOutcome = iota
	ReconcileSkipped
	ReconcileFailed
)

type TickReport struct {
	Tenants int
	Emitted int
	Skipped int
	Failed  int
}

// TickObserver is told about every finished tick.
var TickObserver func(report TickReport)

var reconciling = struct {
	sync.Mutex
	accounts map[uint]struct{}
}{accounts: make(map[uint]struct{})}

func acquireTenant(accountID uint) bool {
	reconciling.Lock()
	defer reconciling.Unlock()
	if _, busy := reconciling.accounts[accountID]; busy {
		return false
	}
	reconciling.accounts[accountID] = struct{}{}
	return true
}

func releaseTenant(accountID uint) {
	reconciling.Lock()
	defer reconciling.Unlock()
	delete(reconciling.accounts, accountID)
}

func reconcileConcurrency() int {
	if concurrency := viper.GetInt("reconcile.concurrency"); concurrency > 0 {
		return concurrency
	}
	return 4
}

// ReconcilePolls is the timed task syncing every tenant's latest poll with the provider.
func ReconcilePolls() {
	ReconcilePollsWithContext(context.Background())
}

func ReconcilePollsWithContext(ctx context.Context) TickReport {
	var report TickReport

	var accounts []uint
	if err := database.C.Model(&models.Poll{}).
		Where("external_id IS NOT NULL").
		Distinct().
		Pluck("account_id", &accounts).Error; err != nil {
		log.Error().Err(err).Msg("Unable to list accounts to reconcile...")
		return report
	}
	report.Tenants = len(accounts)

	var mu sync.Mutex
	group := new(errgroup.Group)
	group.SetLimit(reconcileConcurrency())
	for _, accountID := range accounts {
		group.Go(func() error {
			outcome := reconcileIsolated(ctx, accountID)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case ReconcileEmitted:
				report.Emitted++
			case ReconcileSkipped:
				report.Skipped++
			default:
				report.Failed++
			}
			return nil
		})
	}
	_ = group.Wait()

	if report.Failed > 0 {
		log.Warn().
			Int("tenants", report.Tenants).
			Int("failed", report.Failed).
			Msg("Reconciliation tick finished with failures.")
	}
	if TickObserver != nil {
		TickObserver(report)
	}
	return report
}

// reconcileIsolated contains every failure of one tenant, panics included,
// so it cannot reach the shared scheduler or the other tenants.
func reconcileIsolated(ctx context.Context, accountID uint) (outcome ReconcileOutcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Uint("account", accountID).Interface("panic", r).Msg("Recovered from panic while reconciling poll...")
			outcome = ReconcileFailed
		}
	}()

	outcome, err := ReconcileAccount(ctx, accountID)
	if err != nil {
		log.Warn().Err(err).Uint("account", accountID).Msg("Unable to reconcile poll, skipping this tick...")
	}
	return outcome
}

func isPollSettled(poll models.Poll) bool {
	settleAfter := viper.GetDuration("reconcile.settle_after")
	if settleAfter <= 0 || poll.EndedAt == nil || !models.IsTerminalPollStatus(poll.Status) {
		return false
	}
	return time.Since(*poll.EndedAt) > settleAfter
}

// ReconcileAccount syncs one tenant. It never runs twice at once for the same tenant,
// an overlapping call is skipped.
func ReconcileAccount(ctx context.Context, accountID uint) (ReconcileOutcome, error) {
	if !acquireTenant(accountID) {
		return ReconcileSkipped, nil
	}
	defer releaseTenant(accountID)

	account, err := GetAccount(accountID)
	if err != nil {
		return ReconcileFailed, err
	}
	poll, err := GetLatestSubmittedPoll(accountID)
	if err != nil {
		return ReconcileFailed, err
	}
	if isPollSettled(poll) {
		return ReconcileSkipped, nil
	}

	var remote twitch.Poll
	if err := callWithCredential(ctx, &account, func(ctx context.Context, token string) error {
		remote, err = Provider.GetPoll(ctx, token, account.ExternalID, *poll.ExternalID)
		return err
	}); err != nil {
		return ReconcileFailed, wrapProviderError("get poll", err)
	}

	snapshot := NewSnapshotFromProvider(remote)
	if updated, err := UpdatePollStatus(poll, snapshot.Status); err != nil {
		return ReconcileFailed, fmt.Errorf("unable to save poll status: %v", err)
	} else if !updated {
		log.Debug().Uint("account", accountID).Str("poll", snapshot.ID).Msg("Dropped stale poll status, poll already ended.")
		return ReconcileSkipped, nil
	}

	EmitSnapshot(account, snapshot)
	return ReconcileEmitted, nil
}
