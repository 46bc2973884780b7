package refetch

import (
	"fmt"
	"net/http"

	"github.com/civicsource/refetch/internal/httpx"
	"github.com/civicsource/refetch/internal/jsonx"
)

// Error is the normalized failure shape surfaced for every kind of fetch
// failure. For non-2xx responses it carries the status text and, when the
// body parsed as JSON, the decoded body; for transport-level failures
// (the request never produced a response) only Message is set.
type Error struct {
	Message    string
	StatusText string
	JSONBody   any
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.StatusText != "" && e.StatusText != e.Message {
		return fmt.Sprintf("refetch: %s (%s)", e.Message, e.StatusText)
	}
	return "refetch: " + e.Message
}

// CheckStatus classifies a completed response. On a 2xx status it returns
// the body decoded as JSON, or the raw body as a string when the body is
// not valid JSON; a successful response is never failed for an unparseable
// body. On any other status it returns a *Error whose message is resolved
// from the body's "message" field, then its "exceptionMessage" field, then
// the status text. CheckStatus consumes and closes the response body.
func CheckStatus(resp *http.Response) (any, error) {
	body, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return nil, &Error{
			Message:    fmt.Sprintf("read response body: %v", err),
			StatusText: statusText(resp),
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if payload, ok := jsonx.Decode(body); ok {
			return payload, nil
		}
		return string(body), nil
	}

	ferr := &Error{StatusText: statusText(resp)}
	if payload, ok := jsonx.Decode(body); ok {
		ferr.JSONBody = payload
		if msg, ok := jsonx.Message(payload); ok {
			ferr.Message = msg
		}
	}
	if ferr.Message == "" {
		ferr.Message = ferr.StatusText
	}
	return nil, ferr
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}

// transportError normalizes a failure where the transport never produced
// a response (DNS, connection refused, client timeout).
func transportError(err error) *Error {
	return &Error{Message: err.Error()}
}
