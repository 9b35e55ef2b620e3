package services

import (
	"errors"
	"fmt"

	"git.solsynth.dev/hypernet/livepoll/pkg/internal/services/twitch"
	jsoniter "github.com/json-iterator/go"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	// ErrCredential means the stored credential was refused and could not be refreshed.
	// The account needs to sign in again.
	ErrCredential = errors.New("credential expired, please sign in again")
)

// ExternalAPIError is a call the poll provider rejected or never answered.
type ExternalAPIError struct {
	Op         string
	StatusCode int
	Details    jsoniter.RawMessage
	Err        error
}

func (v *ExternalAPIError) Error() string {
	return fmt.Sprintf("failed to %s: %v", v.Op, v.Err)
}

func (v *ExternalAPIError) Unwrap() error {
	return v.Err
}

func wrapProviderError(op string, err error) error {
	if err == nil || errors.Is(err, ErrCredential) {
		return err
	}
	out := &ExternalAPIError{Op: op, Err: err}
	var apiErr *twitch.APIError
	if errors.As(err, &apiErr) {
		out.StatusCode = apiErr.StatusCode
		out.Details = apiErr.Body
	}
	return out
}
