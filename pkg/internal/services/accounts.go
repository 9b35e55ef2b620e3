package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"git.solsynth.dev/hypernet/livepoll/pkg/internal/database"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/hub"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/models"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services/twitch"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

func GetAccount(id uint) (models.Account, error) {
	var account models.Account
	if err := database.C.Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return account, fmt.Errorf("%w: account %d", ErrNotFound, id)
		}
		return account, fmt.Errorf("unable to get account by id: %v", err)
	}
	return account, nil
}

func GetAccountByDistributionKey(key string) (models.Account, error) {
	var account models.Account
	if len(key) == 0 {
		return account, fmt.Errorf("%w: empty widget token", ErrNotFound)
	}
	if err := database.C.Where("distribution_key = ?", key).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return account, fmt.Errorf("%w: widget token", ErrNotFound)
		}
		return account, fmt.Errorf("unable to get account by widget token: %v", err)
	}
	return account, nil
}

// UpsertAccount stores the result of a successful sign in with the identity provider.
func UpsertAccount(externalID, name, nick string, token *oauth2.Token) (models.Account, error) {
	var account models.Account
	err := database.C.Where("external_id = ?", externalID).First(&account).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return account, fmt.Errorf("unable to get account by external id: %v", err)
	}

	account.ExternalID = externalID
	account.Name = name
	account.Nick = nick
	account.AccessToken = token.AccessToken
	if len(token.RefreshToken) > 0 {
		account.RefreshToken = token.RefreshToken
	}
	if len(account.DistributionKey) == 0 {
		account.DistributionKey = uuid.NewString()
	}

	if err := database.C.Save(&account).Error; err != nil {
		return account, err
	}
	return account, nil
}

func GetWidgetURL(account models.Account) string {
	return fmt.Sprintf("%s/widget/%s", strings.TrimSuffix(viper.GetString("base_url"), "/"), account.DistributionKey)
}

// RegenerateDistributionKey rotates the widget token.
// Overlays joined with the previous token are evicted and never receive another update.
func RegenerateDistributionKey(account models.Account) (models.Account, error) {
	previous := account.DistributionKey
	account.DistributionKey = uuid.NewString()

	if err := database.C.Model(&models.Account{}).
		Where("id = ?", account.ID).
		Update("distribution_key", account.DistributionKey).Error; err != nil {
		return account, fmt.Errorf("unable to rotate widget token: %v", err)
	}

	if len(previous) > 0 {
		evicted := hub.R.Close(previous)
		log.Info().Uint("account", account.ID).Int("evicted", evicted).Msg("Rotated widget token.")
	}
	return account, nil
}

func refreshCredential(ctx context.Context, account models.Account) (models.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, providerTimeout())
	defer cancel()

	token, err := Provider.RefreshToken(ctx, account.RefreshToken)
	if err != nil {
		return account, fmt.Errorf("%w: %v", ErrCredential, err)
	}

	account.AccessToken = token.AccessToken
	if len(token.RefreshToken) > 0 {
		account.RefreshToken = token.RefreshToken
	}

	if err := database.C.Model(&models.Account{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{
			"access_token":  account.AccessToken,
			"refresh_token": account.RefreshToken,
		}).Error; err != nil {
		return account, fmt.Errorf("unable to save refreshed credential: %v", err)
	}

	log.Debug().Uint("account", account.ID).Msg("Refreshed credential.")
	return account, nil
}

// EnsureValidCredential returns the account with an access token the provider accepts,
// refreshing and persisting it when the stored one is refused.
func EnsureValidCredential(ctx context.Context, account models.Account) (models.Account, error) {
	err := callProvider(ctx, account.AccessToken, Provider.ValidateToken)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, twitch.ErrUnauthorized) {
		return account, wrapProviderError("validate credential", err)
	}
	return refreshCredential(ctx, account)
}

// SignIn finishes an authorization code login and returns the stored account.
func SignIn(ctx context.Context, code string) (models.Account, error) {
	if Identity == nil || !Identity.IsConfigured() {
		return models.Account{}, fmt.Errorf("twitch login is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, providerTimeout())
	defer cancel()

	token, err := Identity.Exchange(ctx, code)
	if err != nil {
		return models.Account{}, wrapProviderError("exchange code", err)
	}
	user, err := Identity.GetCurrentUser(ctx, token.AccessToken)
	if err != nil {
		return models.Account{}, wrapProviderError("get current user", err)
	}

	account, err := UpsertAccount(user.ID, user.Login, user.DisplayName, token)
	if err != nil {
		return account, fmt.Errorf("unable to save account: %v", err)
	}
	log.Info().Uint("account", account.ID).Str("login", user.Login).Msg("Broadcaster signed in.")
	return account, nil
}
