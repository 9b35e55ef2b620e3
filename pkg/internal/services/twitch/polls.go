package twitch

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

const (
	PollStatusTerminated = "TERMINATED"
	PollStatusArchived   = "ARCHIVED"
)

type PollChoice struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	Votes              int    `json:"votes"`
	ChannelPointsVotes int    `json:"channel_points_votes"`
	BitsVotes          int    `json:"bits_votes"`
}

type Poll struct {
	ID               string       `json:"id"`
	BroadcasterID    string       `json:"broadcaster_id"`
	BroadcasterLogin string       `json:"broadcaster_login"`
	Title            string       `json:"title"`
	Choices          []PollChoice `json:"choices"`
	Status           string       `json:"status"`
	Duration         int          `json:"duration"`
	StartedAt        time.Time    `json:"started_at"`
	EndedAt          *time.Time   `json:"ended_at"`
}

type CreatePollChoice struct {
	Title string `json:"title"`
}

type CreatePollRequest struct {
	BroadcasterID string             `json:"broadcaster_id"`
	Title         string             `json:"title"`
	Choices       []CreatePollChoice `json:"choices"`
	Duration      int                `json:"duration"`
}

type User struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

func (v *Client) CreatePoll(ctx context.Context, token string, req CreatePollRequest) (Poll, error) {
	var poll Poll
	err := v.helix(ctx, token, http.MethodPost, "/polls", nil, req, &poll)
	return poll, err
}

func (v *Client) GetPoll(ctx context.Context, token, broadcasterID, pollID string) (Poll, error) {
	var poll Poll
	err := v.helix(ctx, token, http.MethodGet, "/polls", url.Values{
		"broadcaster_id": {broadcasterID},
		"id":             {pollID},
	}, nil, &poll)
	return poll, err
}

// EndPoll closes a running poll. Status is TERMINATED (results stay visible) or ARCHIVED.
func (v *Client) EndPoll(ctx context.Context, token, broadcasterID, pollID, status string) (Poll, error) {
	var poll Poll
	err := v.helix(ctx, token, http.MethodPatch, "/polls", nil, map[string]string{
		"broadcaster_id": broadcasterID,
		"id":             pollID,
		"status":         status,
	}, &poll)
	return poll, err
}

func (v *Client) GetCurrentUser(ctx context.Context, token string) (User, error) {
	var user User
	err := v.helix(ctx, token, http.MethodGet, "/users", nil, nil, &user)
	return user, err
}
