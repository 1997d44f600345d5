package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies backend failures.
type ErrorKind string

const (
	// KindTransport covers network failures, timeouts and cancellation.
	KindTransport ErrorKind = "transport"
	// KindValidation is a 400 or 422 rejection of the request payload.
	KindValidation ErrorKind = "validation"
	// KindBusiness is any other non-2xx answer.
	KindBusiness ErrorKind = "business"
	// KindUnavailable means the circuit breaker refused the call.
	KindUnavailable ErrorKind = "unavailable"
	// KindDecode means a 2xx body could not be decoded.
	KindDecode ErrorKind = "decode"
)

// APIError is the single error type returned by Client.
type APIError struct {
	Kind     ErrorKind
	Endpoint string
	Status   int
	Detail   string
	Err      error
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "backend %s: %s", e.Endpoint, e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Err }

// DetailOf returns the server-supplied detail carried by err, if any.
func DetailOf(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail, true
	}
	return "", false
}

// UserMessage returns text suitable for showing to a user: the server's
// detail when present, otherwise a description of a transport or
// availability failure. Other failures report false.
func UserMessage(err error) (string, bool) {
	if detail, ok := DetailOf(err); ok {
		return detail, true
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return "", false
	}
	switch apiErr.Kind {
	case KindTransport:
		if apiErr.Err != nil {
			return "Could not reach the server: " + apiErr.Err.Error(), true
		}
		return "Could not reach the server.", true
	case KindUnavailable:
		return "The service is temporarily unavailable. Please try again shortly.", true
	default:
		return "", false
	}
}

// KindOf returns the kind of err, or the empty kind when err is not an APIError.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

func kindForStatus(status int) ErrorKind {
	if status == http.StatusBadRequest || status == http.StatusUnprocessableEntity {
		return KindValidation
	}
	return KindBusiness
}

// parseDetail extracts a message from an error body. It understands FastAPI's
// {"detail": "..."} and {"detail": [{"msg": "..."}]} shapes as well as
// {"message": "..."} and {"error": "..."}.
func parseDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil && s != "" {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
			Loc []any  `json:"loc"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg == "" {
					continue
				}
				if field := lastLoc(it.Loc); field != "" {
					msgs = append(msgs, field+": "+it.Msg)
				} else {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

func lastLoc(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok {
		return s
	}
	return ""
}
