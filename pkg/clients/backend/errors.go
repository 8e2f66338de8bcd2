package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/rubberworks/queuegate/internal/domain/models"
)

var (
	// ErrInvalidResponse indicates a 2xx response whose body is not the expected JSON.
	ErrInvalidResponse = errors.New("invalid upstream response")
	// ErrMissingToken indicates a login response without an access token.
	ErrMissingToken = errors.New("upstream login returned no access token")
)

// APIError is a non-2xx upstream response. Handlers forward StatusCode and Body verbatim.
type APIError struct {
	StatusCode  int
	Message     string
	Body        []byte
	ContentType string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("upstream error: status=%d, message=%s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func newAPIError(resp *resty.Response) *APIError {
	body := resp.Body()
	apiErr := &APIError{
		StatusCode:  resp.StatusCode(),
		Body:        body,
		ContentType: resp.Header().Get("Content-Type"),
	}

	var payload models.Record
	if err := json.Unmarshal(body, &payload); err == nil {
		if msgs := payload.Strings("message", "error", "detail"); len(msgs) > 0 {
			apiErr.Message = strings.Join(msgs, "; ")
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(apiErr.StatusCode)
	}
	return apiErr
}
