package services

import (
	"context"
	"fmt"
	"time"

	localCache "git.solsynth.dev/hypernet/livepoll/pkg/internal/cache"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/hub"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/models"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services/twitch"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

func NewSnapshotFromProvider(poll twitch.Poll) models.PollSnapshot {
	return models.NewPollSnapshot(poll.ID, poll.Title, poll.Status, lo.Map(poll.Choices, func(item twitch.PollChoice, _ int) models.PollChoice {
		return models.PollChoice{Title: item.Title, Votes: item.Votes}
	}))
}

func GetSnapshotCacheKey(accountID uint) string {
	return fmt.Sprintf("poll-snapshot#%d", accountID)
}

func CacheSnapshot(accountID uint, snapshot models.PollSnapshot) {
	if localCache.GetStore() == nil {
		return
	}
	cacheManager := cache.New[any](localCache.GetStore())
	marshal := marshaler.New(cacheManager)

	ttl := viper.GetDuration("cache.snapshot_ttl")
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := marshal.Set(context.Background(), GetSnapshotCacheKey(accountID), snapshot, store.WithExpiration(ttl), store.WithCost(1)); err != nil {
		log.Warn().Err(err).Uint("account", accountID).Msg("Unable to cache poll snapshot...")
	}
}

func GetCachedSnapshot(accountID uint) (models.PollSnapshot, bool) {
	if localCache.GetStore() == nil {
		return models.PollSnapshot{}, false
	}
	cacheManager := cache.New[any](localCache.GetStore())
	marshal := marshaler.New(cacheManager)

	raw, err := marshal.Get(context.Background(), GetSnapshotCacheKey(accountID), new(models.PollSnapshot))
	if err != nil {
		return models.PollSnapshot{}, false
	}
	snapshot, ok := raw.(*models.PollSnapshot)
	if !ok || len(snapshot.ID) == 0 {
		return models.PollSnapshot{}, false
	}
	return *snapshot, true
}

// EmitSnapshot fans the snapshot out to the account's overlays and remembers it for the initial paint.
func EmitSnapshot(account models.Account, snapshot models.PollSnapshot) int {
	CacheSnapshot(account.ID, snapshot)
	delivered := hub.R.Emit(account.DistributionKey, snapshot)
	log.Debug().
		Uint("account", account.ID).
		Str("poll", snapshot.ID).
		Str("status", snapshot.Status).
		Int("delivered", delivered).
		Msg("Emitted poll snapshot.")
	return delivered
}
