package source

import "fmt"

// AuthError reports a rejected session creation or refresh.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (%d): %s", e.StatusCode, e.Body)
}

// APIError reports a non-success response from an XRPC call.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api request failed (%d): %s", e.StatusCode, e.Body)
}
