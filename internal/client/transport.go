package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Do issues an authenticated request against the API base URL and decodes a
// successful JSON response into out (which may be nil).
//
// When the access token is rejected with 401 the client refreshes once and
// retries the original request once with the new token. Errors from the
// retry, including a second 401, propagate unchanged. A failed refresh
// forces logout and returns the refresh error. There is no retry loop and
// no backoff.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	payload, err := marshalBody(in)
	if err != nil {
		return err
	}

	resp, err := c.send(ctx, method, path, payload, c.session.AccessToken())
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if _, err := c.Refresh(ctx); err != nil {
			_ = c.session.Logout(ctx)
			return err
		}

		resp, err = c.send(ctx, method, path, payload, c.session.AccessToken())
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		fallback := fmt.Sprintf("Request failed with status %d", resp.StatusCode)
		return &AuthError{Message: extractMessage(data, fallback), Status: resp.StatusCode}
	}

	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}
