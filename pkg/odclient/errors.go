package odclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsConflict reports whether err is a 409 from the API.
func IsConflict(err error) bool {
	return statusOf(err) == http.StatusConflict
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	return statusOf(err) == http.StatusUnauthorized
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// newAPIError reads the server message from either the envelope's error object
// or a "detail" field, which may be a string or a list of {msg} objects.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	if gjson.ValidBytes(body) {
		doc := gjson.ParseBytes(body)
		apiErr.Code = doc.Get("error.code").String()
		apiErr.Message = strings.TrimSpace(doc.Get("error.message").String())
		if apiErr.Message == "" {
			apiErr.Message = detailMessage(doc.Get("detail"))
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("request failed with status %d", status)
	}
	return apiErr
}

func detailMessage(detail gjson.Result) string {
	switch {
	case !detail.Exists():
		return ""
	case detail.IsArray():
		msgs := make([]string, 0)
		detail.ForEach(func(_, item gjson.Result) bool {
			if msg := strings.TrimSpace(item.Get("msg").String()); msg != "" {
				msgs = append(msgs, msg)
			}
			return true
		})
		return strings.Join(msgs, "; ")
	default:
		return strings.TrimSpace(detail.String())
	}
}
