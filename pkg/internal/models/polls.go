package models

import (
	"time"

	"git.solsynth.dev/hypernet/livepoll/pkg/proto"
	"gorm.io/datatypes"
)

const (
	PollStatusDraft      = proto.PollStatusDraft
	PollStatusActive     = proto.PollStatusActive
	PollStatusCompleted  = proto.PollStatusCompleted
	PollStatusTerminated = proto.PollStatusTerminated
	PollStatusEnded      = proto.PollStatusEnded
	PollStatusArchived   = proto.PollStatusArchived
	PollStatusModerated  = proto.PollStatusModerated
	PollStatusInvalid    = proto.PollStatusInvalid
	PollStatusUnknown    = proto.PollStatusUnknown
)

func NormalizePollStatus(status string) string {
	return proto.NormalizePollStatus(status)
}

func IsTerminalPollStatus(status string) bool {
	return proto.IsTerminalPollStatus(status)
}

type Poll struct {
	BaseModel

	ExternalID  *string                     `json:"external_id" gorm:"index;size:128"`
	Title       string                      `json:"title"`
	Choices     datatypes.JSONSlice[string] `json:"choices"`
	DurationSec int                         `json:"duration_sec"`
	Status      string                      `json:"status" gorm:"size:32"`
	EndedAt     *time.Time                  `json:"ended_at"`

	AccountID uint `json:"account_id" gorm:"index"`
}

func (v Poll) IsSubmitted() bool {
	return v.ExternalID != nil
}
