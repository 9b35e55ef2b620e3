package twitch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/auth/twitch/callback",
		APIURL:       server.URL + "/helix",
		IDURL:        server.URL + "/oauth2",
	})
}

func TestCreatePoll(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/helix/polls", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "client", r.Header.Get("Client-ID"))

		var body CreatePollRequest
		require.NoError(t, jsoniter.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "42", body.BroadcasterID)
		assert.Len(t, body.Choices, 2)

		_, _ = io.WriteString(w, `{"data":[{"id":"p1","title":"Poll","status":"ACTIVE","choices":[{"title":"A","votes":0},{"title":"B","votes":0}]}]}`)
	})

	poll, err := client.CreatePoll(context.Background(), "token", CreatePollRequest{
		BroadcasterID: "42",
		Title:         "Poll",
		Choices:       []CreatePollChoice{{Title: "A"}, {Title: "B"}},
		Duration:      60,
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", poll.ID)
	assert.Equal(t, "ACTIVE", poll.Status)
	assert.Len(t, poll.Choices, 2)
}

func TestGetPollQueryAndEmptyData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "42", r.URL.Query().Get("broadcaster_id"))
		if r.URL.Query().Get("id") == "missing" {
			_, _ = io.WriteString(w, `{"data":[]}`)
			return
		}
		_, _ = io.WriteString(w, `{"data":[{"id":"p1","status":"COMPLETED","choices":[{"title":"A","votes":3}]}]}`)
	})

	poll, err := client.GetPoll(context.Background(), "token", "42", "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, poll.Choices[0].Votes)

	_, err = client.GetPoll(context.Background(), "token", "42", "missing")
	assert.ErrorIs(t, err, ErrEmptyData)
}

func TestEndPollSendsStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var body map[string]string
		require.NoError(t, jsoniter.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, PollStatusTerminated, body["status"])
		assert.Equal(t, "p1", body["id"])
		_, _ = io.WriteString(w, `{"data":[{"id":"p1","status":"TERMINATED"}]}`)
	})

	poll, err := client.EndPoll(context.Background(), "token", "42", "p1", PollStatusTerminated)
	require.NoError(t, err)
	assert.Equal(t, "TERMINATED", poll.Status)
}

func TestAPIErrorClassification(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("id") {
		case "expired":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"Unauthorized","status":401,"message":"Invalid OAuth token"}`)
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `bad request`)
		}
	})

	_, err := client.GetPoll(context.Background(), "token", "42", "expired")
	assert.ErrorIs(t, err, ErrUnauthorized)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	_, err = client.GetPoll(context.Background(), "token", "42", "other")
	assert.False(t, errors.Is(err, ErrUnauthorized))
	require.True(t, errors.As(err, &apiErr))
	assert.JSONEq(t, `"bad request"`, string(apiErr.Body))
}

func TestValidateToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth2/validate", r.URL.Path)
		if r.Header.Get("Authorization") != "OAuth good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"client_id":"client","login":"streamer"}`)
	})

	assert.NoError(t, client.ValidateToken(context.Background(), "good"))
	assert.ErrorIs(t, client.ValidateToken(context.Background(), "bad"), ErrUnauthorized)
}

func TestRefreshTokenKeepsRefreshToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth2/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "stored", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"fresh","token_type":"bearer","expires_in":3600}`)
	})

	token, err := client.RefreshToken(context.Background(), "stored")
	require.NoError(t, err)
	assert.Equal(t, "fresh", token.AccessToken)
	assert.Equal(t, "stored", token.RefreshToken)

	_, err = client.RefreshToken(context.Background(), "")
	assert.Error(t, err)
}

func TestAuthCodeURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	raw := client.AuthCodeURL("state-1")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(parsed.Path, "/oauth2/authorize"))
	assert.Equal(t, "state-1", parsed.Query().Get("state"))
	assert.Equal(t, "true", parsed.Query().Get("force_verify"))
	assert.Equal(t, strings.Join(Scopes, " "), parsed.Query().Get("scope"))
	assert.True(t, client.IsConfigured())
}

func TestSlowProviderIsCutOff(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() {
		close(release)
	})

	client := NewClient(Config{
		ClientID:     "client",
		ClientSecret: "secret",
		APIURL:       server.URL + "/helix",
		IDURL:        server.URL + "/oauth2",
		Timeout:      5 * time.Second,
	})

	t.Run("ContextDeadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := client.GetPoll(ctx, "token", "42", "p1")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("ClientTimeout", func(t *testing.T) {
		impatient := NewClient(Config{
			ClientID:     "client",
			ClientSecret: "secret",
			APIURL:       server.URL + "/helix",
			IDURL:        server.URL + "/oauth2",
			Timeout:      150 * time.Millisecond,
		})

		start := time.Now()
		err := impatient.ValidateToken(context.Background(), "token")
		require.Error(t, err)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}
