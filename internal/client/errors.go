package client

import "encoding/json"

// AuthError is the normalized failure every client operation returns. The
// message is human-readable; raw transport errors stay behind Unwrap.
type AuthError struct {
	Message string
	Status  int // HTTP status when the server answered, 0 otherwise
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches AuthErrors by message so wrapped failures still compare equal
// to the package sentinels under errors.Is.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Message == e.Message
}

var (
	// ErrNotAuthenticated is returned when an operation requires a session
	// that is absent.
	ErrNotAuthenticated = &AuthError{Message: "Not authenticated"}

	// ErrNoRefreshToken is returned when a refresh is attempted without a
	// refresh token.
	ErrNoRefreshToken = &AuthError{Message: "No refresh token available"}

	// ErrRefreshFailed is returned when the refresh endpoint fails or
	// answers with an empty token set.
	ErrRefreshFailed = &AuthError{Message: "Token refresh failed"}
)

// extractMessage pulls a human-readable message out of an error response
// body. Structured bodies carry either a "message" or an "error" field;
// anything else falls back to the operation's generic message.
func extractMessage(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fallback
}
