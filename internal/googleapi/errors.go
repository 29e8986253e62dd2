package googleapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotAuthorized means no delegated credential exists yet; the
	// operator must complete the consent flow out of band.
	ErrNotAuthorized = errors.New("google account not authorized")

	// ErrAuthorizationExpired means refresh and reload both failed; the
	// delegated account must be re-authorized.
	ErrAuthorizationExpired = errors.New("google authorization expired")
)

// APIError is a non-2xx response from a Google endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("google api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("google api: status %d: %s", e.StatusCode, e.Body)
}

// IsAuthError reports whether err is the 401 the retry policy acts on.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404/410 from the remote API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusGone
}
