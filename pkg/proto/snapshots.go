// Package proto holds the values shared by the server and the overlay clients.
package proto

import "strings"

const (
	PollStatusDraft      = "draft"
	PollStatusActive     = "active"
	PollStatusCompleted  = "completed"
	PollStatusTerminated = "terminated"
	PollStatusEnded      = "ended"
	PollStatusArchived   = "archived"
	PollStatusModerated  = "moderated"
	PollStatusInvalid    = "invalid"
	PollStatusUnknown    = "unknown"
)

// NormalizePollStatus folds provider statuses (ACTIVE, TERMINATED...) into the local lower-case form.
func NormalizePollStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if len(status) == 0 {
		return PollStatusUnknown
	}
	return status
}

// IsTerminalPollStatus reports whether a poll in this status no longer collects votes.
func IsTerminalPollStatus(status string) bool {
	switch NormalizePollStatus(status) {
	case PollStatusTerminated, PollStatusCompleted, PollStatusEnded, PollStatusArchived:
		return true
	default:
		return false
	}
}

// PollSnapshot is the observable state of one poll at one point in time.
// Construct it with NewPollSnapshot; holders must treat it as read-only.
type PollSnapshot struct {
	ID      string       `json:"id"`
	Title   string       `json:"title"`
	Status  string       `json:"status"`
	Choices []PollChoice `json:"choices"`
}

type PollChoice struct {
	Title string `json:"title"`
	Votes int    `json:"votes"`
}

func NewPollSnapshot(id, title, status string, choices []PollChoice) PollSnapshot {
	copied := make([]PollChoice, len(choices))
	copy(copied, choices)
	return PollSnapshot{
		ID:      id,
		Title:   title,
		Status:  NormalizePollStatus(status),
		Choices: copied,
	}
}

func (v PollSnapshot) IsActive() bool {
	return NormalizePollStatus(v.Status) == PollStatusActive
}

func (v PollSnapshot) IsTerminal() bool {
	return IsTerminalPollStatus(v.Status)
}

func (v PollSnapshot) TotalVotes() int {
	var total int
	for _, choice := range v.Choices {
		total += choice.Votes
	}
	return total
}
