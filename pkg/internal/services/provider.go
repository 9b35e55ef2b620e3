package services

import (
	"context"
	"errors"
	"time"

	"git.solsynth.dev/hypernet/livepoll/pkg/internal/models"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services/twitch"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
)

// PollProvider is the external polling platform. *twitch.Client implements it.
type PollProvider interface {
	CreatePoll(ctx context.Context, token string, req twitch.CreatePollRequest) (twitch.Poll, error)
	GetPoll(ctx context.Context, token, broadcasterID, pollID string) (twitch.Poll, error)
	EndPoll(ctx context.Context, token, broadcasterID, pollID, status string) (twitch.Poll, error)
	ValidateToken(ctx context.Context, token string) error
	RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

var Provider PollProvider

func providerTimeout() time.Duration {
	if timeout := viper.GetDuration("twitch.timeout"); timeout > 0 {
		return timeout
	}
	return 5 * time.Second
}

func callProvider(ctx context.Context, token string, call func(ctx context.Context, token string) error) error {
	ctx, cancel := context.WithTimeout(ctx, providerTimeout())
	defer cancel()
	return call(ctx, token)
}

// callWithCredential runs call with the account's access token.
// When the provider refuses the token it is refreshed, persisted and the call retried once.
// The account is updated in place when a refresh happened.
func callWithCredential(ctx context.Context, account *models.Account, call func(ctx context.Context, token string) error) error {
	err := callProvider(ctx, account.AccessToken, call)
	if err == nil || !errors.Is(err, twitch.ErrUnauthorized) {
		return err
	}

	refreshed, refreshErr := refreshCredential(ctx, *account)
	if refreshErr != nil {
		log.Warn().Err(refreshErr).Uint("account", account.ID).Msg("Unable to refresh credential...")
		return errors.Join(refreshErr, err)
	}
	*account = refreshed

	return callProvider(ctx, account.AccessToken, call)
}

// IdentityProvider signs broadcasters in. *twitch.Client implements it.
type IdentityProvider interface {
	IsConfigured() bool
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	GetCurrentUser(ctx context.Context, token string) (twitch.User, error)
}

var Identity IdentityProvider
