package testutil

import (
	"context"
	"sync"

	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services/twitch"
	"golang.org/x/oauth2"
)

// FakeProvider is an in-memory poll provider. Unset hooks fall back to simple defaults.
type FakeProvider struct {
	mu sync.Mutex

	OnCreatePoll    func(token string, req twitch.CreatePollRequest) (twitch.Poll, error)
	OnGetPoll       func(token, broadcasterID, pollID string) (twitch.Poll, error)
	OnEndPoll       func(token, broadcasterID, pollID, status string) (twitch.Poll, error)
	OnValidateToken func(token string) error
	OnRefreshToken  func(refreshToken string) (*oauth2.Token, error)

	// OnGetPollContext wins over OnGetPoll and sees the deadline of the call.
	OnGetPollContext func(ctx context.Context, token, broadcasterID, pollID string) (twitch.Poll, error)

	Calls []string
}

func (v *FakeProvider) record(call string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Calls = append(v.Calls, call)
}

func (v *FakeProvider) CallCount(call string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	var count int
	for _, item := range v.Calls {
		if item == call {
			count++
		}
	}
	return count
}

func (v *FakeProvider) CreatePoll(_ context.Context, token string, req twitch.CreatePollRequest) (twitch.Poll, error) {
	v.record("create")
	if v.OnCreatePoll != nil {
		return v.OnCreatePoll(token, req)
	}
	poll := twitch.Poll{ID: "remote-poll", BroadcasterID: req.BroadcasterID, Title: req.Title, Status: "ACTIVE", Duration: req.Duration}
	for _, choice := range req.Choices {
		poll.Choices = append(poll.Choices, twitch.PollChoice{Title: choice.Title})
	}
	return poll, nil
}

func (v *FakeProvider) GetPoll(ctx context.Context, token, broadcasterID, pollID string) (twitch.Poll, error) {
	v.record("get")
	if v.OnGetPollContext != nil {
		return v.OnGetPollContext(ctx, token, broadcasterID, pollID)
	}
	if v.OnGetPoll != nil {
		return v.OnGetPoll(token, broadcasterID, pollID)
	}
	return twitch.Poll{ID: pollID, BroadcasterID: broadcasterID, Status: "ACTIVE"}, nil
}

func (v *FakeProvider) EndPoll(_ context.Context, token, broadcasterID, pollID, status string) (twitch.Poll, error) {
	v.record("end")
	if v.OnEndPoll != nil {
		return v.OnEndPoll(token, broadcasterID, pollID, status)
	}
	return twitch.Poll{ID: pollID, BroadcasterID: broadcasterID, Status: status}, nil
}

func (v *FakeProvider) ValidateToken(_ context.Context, token string) error {
	v.record("validate")
	if v.OnValidateToken != nil {
		return v.OnValidateToken(token)
	}
	return nil
}

func (v *FakeProvider) RefreshToken(_ context.Context, refreshToken string) (*oauth2.Token, error) {
	v.record("refresh")
	if v.OnRefreshToken != nil {
		return v.OnRefreshToken(refreshToken)
	}
	return &oauth2.Token{AccessToken: "refreshed-access", RefreshToken: "refreshed-refresh"}, nil
}

// FakeIdentity signs in a fixed user.
type FakeIdentity struct {
	User    twitch.User
	Token   *oauth2.Token
	Refuses bool
}

func (v *FakeIdentity) IsConfigured() bool {
	return true
}

func (v *FakeIdentity) AuthCodeURL(state string) string {
	return "https://id.example.com/authorize?state=" + state
}

func (v *FakeIdentity) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	if v.Refuses {
		return nil, &twitch.APIError{StatusCode: 400, Body: []byte(`{"message":"Invalid authorization code"}`)}
	}
	if v.Token != nil {
		return v.Token, nil
	}
	return &oauth2.Token{AccessToken: "access-" + code, RefreshToken: "refresh-" + code}, nil
}

func (v *FakeIdentity) GetCurrentUser(_ context.Context, _ string) (twitch.User, error) {
	return v.User, nil
}
