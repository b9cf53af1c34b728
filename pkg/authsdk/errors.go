package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrMFARequired matches an APIError from login when the account needs a
// second factor: errors.Is(err, authsdk.ErrMFARequired).
var ErrMFARequired = errors.New("authsdk: mfa code required")

// APIError is a non-2xx response from the auth service. Credential endpoints
// answer with {"detail": ...}, bearer-protected ones with {"error": ...};
// both end up in Message.
type APIError struct {
	StatusCode  int
	Message     string
	MFARequired bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("authsdk: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrMFARequired && e.MFARequired
}

// IsUnauthorized reports whether err is a 401 from the service.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsForbidden reports whether err is a 403 from the service.
func IsForbidden(err error) bool {
	return hasStatus(err, http.StatusForbidden)
}

// IsConflict reports whether err is a 409 from the service.
func IsConflict(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

func hasStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// parseErrorResponse turns an error body into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var payload struct {
		Detail      string `json:"detail"`
		Error       string `json:"error"`
		MFARequired bool   `json:"mfa_required"`
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.MFARequired = payload.MFARequired
		switch {
		case payload.Detail != "":
			apiErr.Message = payload.Detail
		case payload.Error != "":
			apiErr.Message = payload.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
