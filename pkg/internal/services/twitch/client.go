package twitch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
	twitchoauth "golang.org/x/oauth2/twitch"
)

var (
	// ErrUnauthorized matches any *APIError whose status means the credential was refused.
	ErrUnauthorized = errors.New("twitch refused the credential")
	ErrEmptyData    = errors.New("twitch returned no data")
)

var Scopes = []string{"user:read:email", "channel:manage:polls", "channel:read:polls"}

type APIError struct {
	StatusCode int
	Body       jsoniter.RawMessage
}

func (v *APIError) Error() string {
	return fmt.Sprintf("twitch responded with status %d: %s", v.StatusCode, v.Body)
}

func (v *APIError) Is(target error) bool {
	return target == ErrUnauthorized &&
		(v.StatusCode == http.StatusUnauthorized || v.StatusCode == http.StatusForbidden)
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	APIURL       string
	IDURL        string
	Timeout      time.Duration
}

func ConfigFromViper() Config {
	return Config{
		ClientID:     viper.GetString("twitch.client_id"),
		ClientSecret: viper.GetString("twitch.client_secret"),
		RedirectURL:  viper.GetString("twitch.redirect_url"),
		APIURL:       viper.GetString("twitch.api_url"),
		IDURL:        viper.GetString("twitch.id_url"),
		Timeout:      viper.GetDuration("twitch.timeout"),
	}
}

// Client talks to the Helix API and the Twitch identity endpoints.
type Client struct {
	clientID string
	apiURL   string
	idURL    string
	http     *http.Client
	oauth    *oauth2.Config
}

func NewClient(cfg Config) *Client {
	endpoint := twitchoauth.Endpoint
	if len(cfg.IDURL) > 0 {
		endpoint = oauth2.Endpoint{
			AuthURL:   strings.TrimSuffix(cfg.IDURL, "/") + "/authorize",
			TokenURL:  strings.TrimSuffix(cfg.IDURL, "/") + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &Client{
		clientID: cfg.ClientID,
		apiURL:   strings.TrimSuffix(cfg.APIURL, "/"),
		idURL:    strings.TrimSuffix(strings.TrimSuffix(endpoint.TokenURL, "/token"), "/"),
		http:     &http.Client{Timeout: cfg.Timeout},
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       Scopes,
		},
	}
}

func (v *Client) IsConfigured() bool {
	return len(v.oauth.ClientID) > 0 && len(v.oauth.ClientSecret) > 0
}

func (v *Client) AuthCodeURL(state string) string {
	return v.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("force_verify", "true"))
}

func (v *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, v.http)
	token, err := v.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}

// RefreshToken trades a refresh token for a new credential pair.
func (v *Client) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if len(refreshToken) == 0 {
		return nil, fmt.Errorf("no refresh token stored")
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, v.http)
	token, err := v.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if len(token.RefreshToken) == 0 {
		token.RefreshToken = refreshToken
	}
	return token, nil
}

// ValidateToken asks the identity endpoint whether the access token is still accepted.
func (v *Client) ValidateToken(ctx context.Context, token string) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, v.idURL+"/validate", nil)
	if err != nil {
		return err
	}
	request.Header.Set("Authorization", "OAuth "+token)

	_, err = v.send(request)
	return err
}

func (v *Client) send(request *http.Request) ([]byte, error) {
	resp, err := v.http.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to request twitch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if !jsoniter.Valid(body) {
			body, _ = jsoniter.Marshal(string(body))
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Body: body}
	}

	return body, nil
}

// helix performs an authenticated Helix call and decodes the first element of the data array into out.
func (v *Client) helix(ctx context.Context, token, method, path string, query url.Values, payload any, out any) error {
	endpoint := v.apiURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := jsoniter.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	request, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	request.Header.Set("Client-ID", v.clientID)
	request.Header.Set("Authorization", "Bearer "+token)
	request.Header.Set("Content-Type", "application/json")

	log.Debug().Str("method", method).Str("url", endpoint).Msg("Requesting helix...")

	raw, err := v.send(request)
	if err != nil {
		return err
	}

	var envelope struct {
		Data []jsoniter.RawMessage `json:"data"`
	}
	if err := jsoniter.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("failed to parse helix response: %w", err)
	}
	if len(envelope.Data) == 0 {
		return ErrEmptyData
	}
	if err := jsoniter.Unmarshal(envelope.Data[0], out); err != nil {
		return fmt.Errorf("failed to parse helix response: %w", err)
	}
	return nil
}
