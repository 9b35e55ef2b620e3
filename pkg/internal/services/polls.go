package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"git.solsynth.dev/hypernet/livepoll/pkg/internal/database"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/models"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services/twitch"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

const (
	MinPollChoices     = 2
	MaxPollChoices     = 5
	DefaultPollTitle   = "Poll"
	DefaultPollSeconds = 60
)

func CleanPollOptions(options []string) []string {
	options = lo.Map(options, func(item string, _ int) string {
		return strings.TrimSpace(item)
	})
	return lo.Filter(options, func(item string, _ int) bool {
		return len(item) > 0
	})
}

func ValidatePollOptions(options []string) error {
	if len(options) < MinPollChoices {
		return fmt.Errorf("%w: need at least %d options", ErrValidation, MinPollChoices)
	}
	if len(options) > MaxPollChoices {
		return fmt.Errorf("%w: at most %d options are allowed", ErrValidation, MaxPollChoices)
	}
	return nil
}

// TruncateChoiceTitle cuts a label down to what the provider accepts. It never rejects.
func TruncateChoiceTitle(title string) string {
	limit := viper.GetInt("twitch.choice_max_length")
	if limit <= 0 {
		limit = 25
	}
	if utf8.RuneCountInString(title) <= limit {
		return title
	}
	return string([]rune(title)[:limit])
}

// SaveDraft stores a poll that has not been sent to the provider yet.
func SaveDraft(account models.Account, title string, options []string, durationSec int) (models.Poll, error) {
	options = CleanPollOptions(options)
	if err := ValidatePollOptions(options); err != nil {
		return models.Poll{}, err
	}

	poll := models.Poll{
		Title:       lo.Ternary(len(strings.TrimSpace(title)) > 0, strings.TrimSpace(title), DefaultPollTitle),
		Choices:     options,
		DurationSec: lo.Ternary(durationSec > 0, durationSec, DefaultPollSeconds),
		Status:      models.PollStatusDraft,
		AccountID:   account.ID,
	}
	if err := database.C.Create(&poll).Error; err != nil {
		return poll, err
	}
	return poll, nil
}

func GetPoll(account models.Account, id uint) (models.Poll, error) {
	var poll models.Poll
	if err := database.C.Where("id = ? AND account_id = ?", id, account.ID).First(&poll).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return poll, fmt.Errorf("%w: poll %d", ErrNotFound, id)
		}
		return poll, fmt.Errorf("unable to get poll: %v", err)
	}
	return poll, nil
}

func GetLatestPoll(account models.Account) (models.Poll, error) {
	var poll models.Poll
	if err := database.C.
		Where("account_id = ?", account.ID).
		Order("created_at DESC, id DESC").
		First(&poll).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return poll, fmt.Errorf("%w: no poll yet", ErrNotFound)
		}
		return poll, fmt.Errorf("unable to get latest poll: %v", err)
	}
	return poll, nil
}

// GetLatestSubmittedPoll returns the newest poll of the account that the provider knows about.
func GetLatestSubmittedPoll(accountID uint) (models.Poll, error) {
	var poll models.Poll
	if err := database.C.
		Where("account_id = ? AND external_id IS NOT NULL", accountID).
		Order("created_at DESC, id DESC").
		First(&poll).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return poll, fmt.Errorf("%w: no submitted poll", ErrNotFound)
		}
		return poll, fmt.Errorf("unable to get latest submitted poll: %v", err)
	}
	return poll, nil
}

func CountPolls(account models.Account) (int64, error) {
	var count int64
	err := database.C.Model(&models.Poll{}).Where("account_id = ?", account.ID).Count(&count).Error
	return count, err
}

func ListPolls(account models.Account, take, offset int) ([]models.Poll, error) {
	if take > 100 || take <= 0 {
		take = 100
	}

	var polls []models.Poll
	err := database.C.
		Where("account_id = ?", account.ID).
		Order("created_at DESC, id DESC").
		Limit(take).Offset(offset).
		Find(&polls).Error
	return polls, err
}

// UpdatePollStatus records the status the provider reported.
// Once a poll has ended a non-terminal status is stale and is not written, updated reports false then.
func UpdatePollStatus(poll models.Poll, status string) (bool, error) {
	status = models.NormalizePollStatus(status)
	now := time.Now()

	changes := map[string]any{
		"status":     status,
		"updated_at": now,
	}
	tx := database.C.Model(&models.Poll{}).Where("id = ?", poll.ID)
	if models.IsTerminalPollStatus(status) {
		if poll.EndedAt == nil {
			changes["ended_at"] = now
		}
	} else {
		tx = tx.Where("ended_at IS NULL")
	}

	result := tx.Updates(changes)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

type SubmitPollRequest struct {
	PollID      *uint
	Title       string
	Options     []string
	DurationSec int
}

// SubmitPoll starts a poll on the provider.
// Without a PollID the inline options are saved as a draft first.
func SubmitPoll(ctx context.Context, account models.Account, req SubmitPollRequest) (models.Poll, models.PollSnapshot, error) {
	var poll models.Poll
	var err error
	if req.PollID != nil {
		if poll, err = GetPoll(account, *req.PollID); err != nil {
			return poll, models.PollSnapshot{}, err
		}
		if poll.IsSubmitted() {
			return poll, models.PollSnapshot{}, fmt.Errorf("%w: poll has already been submitted", ErrValidation)
		}
	} else if poll, err = SaveDraft(account, req.Title, req.Options, req.DurationSec); err != nil {
		return poll, models.PollSnapshot{}, err
	}

	request := twitch.CreatePollRequest{
		BroadcasterID: account.ExternalID,
		Title:         lo.Ternary(len(poll.Title) > 0, poll.Title, DefaultPollTitle),
		Choices: lo.Map(poll.Choices, func(item string, _ int) twitch.CreatePollChoice {
			return twitch.CreatePollChoice{Title: TruncateChoiceTitle(item)}
		}),
		Duration: lo.Ternary(poll.DurationSec > 0, poll.DurationSec, DefaultPollSeconds),
	}

	var created twitch.Poll
	if err := callWithCredential(ctx, &account, func(ctx context.Context, token string) error {
		created, err = Provider.CreatePoll(ctx, token, request)
		return err
	}); err != nil {
		log.Warn().Err(err).Uint("account", account.ID).Uint("poll", poll.ID).Msg("Provider rejected poll...")
		return poll, models.PollSnapshot{}, wrapProviderError("create poll", err)
	}

	externalID := created.ID
	status := models.NormalizePollStatus(created.Status)
	if err := database.C.Model(&models.Poll{}).Where("id = ?", poll.ID).Updates(map[string]any{
		"external_id": externalID,
		"status":      status,
		"updated_at":  time.Now(),
	}).Error; err != nil {
		return poll, models.PollSnapshot{}, fmt.Errorf("unable to save submitted poll: %v", err)
	}
	poll.ExternalID = &externalID
	poll.Status = status

	snapshot := NewSnapshotFromProvider(created)
	EmitSnapshot(account, snapshot)

	log.Info().Uint("account", account.ID).Uint("poll", poll.ID).Str("external", externalID).Msg("Poll submitted.")
	return poll, snapshot, nil
}

// EndPollNow terminates the latest submitted poll and pushes the result to overlays
// right away instead of waiting for the next reconciliation tick.
func EndPollNow(ctx context.Context, account models.Account) (models.PollSnapshot, error) {
	poll, err := GetLatestSubmittedPoll(account.ID)
	if err != nil {
		return models.PollSnapshot{}, err
	}

	var ended twitch.Poll
	if err := callWithCredential(ctx, &account, func(ctx context.Context, token string) error {
		ended, err = Provider.EndPoll(ctx, token, account.ExternalID, *poll.ExternalID, twitch.PollStatusTerminated)
		return err
	}); err != nil {
		return models.PollSnapshot{}, wrapProviderError("end poll", err)
	}

	snapshot := NewSnapshotFromProvider(ended)
	if snapshot.Status == models.PollStatusUnknown {
		snapshot.Status = models.PollStatusTerminated
	}
	if _, err := UpdatePollStatus(poll, snapshot.Status); err != nil {
		return snapshot, fmt.Errorf("unable to save poll status: %v", err)
	}

	EmitSnapshot(account, snapshot)
	return snapshot, nil
}

// GetCurrentSnapshot fetches the live state of the latest submitted poll. It is nil when there is none.
func GetCurrentSnapshot(ctx context.Context, account models.Account) (*models.PollSnapshot, error) {
	poll, err := GetLatestSubmittedPoll(account.ID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var remote twitch.Poll
	if err := callWithCredential(ctx, &account, func(ctx context.Context, token string) error {
		remote, err = Provider.GetPoll(ctx, token, account.ExternalID, *poll.ExternalID)
		return err
	}); err != nil {
		if errors.Is(err, twitch.ErrEmptyData) {
			return nil, nil
		}
		return nil, wrapProviderError("get poll", err)
	}

	snapshot := NewSnapshotFromProvider(remote)
	return &snapshot, nil
}
