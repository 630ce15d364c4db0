package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Error is returned for any response outside the expected status range. The
// body is kept verbatim so views can show field-level or message-level
// errors exactly as the backend phrased them.
type Error struct {
	StatusCode int
	Body       []byte
	// Detail is the "detail" key of a JSON error body, if any.
	Detail string
	// Fields holds every other string or string-list key of a JSON error body.
	Fields map[string][]string
}

func newError(statusCode int, body []byte) *Error {
	e := &Error{
		StatusCode: statusCode,
		Body:       body,
		Fields:     map[string][]string{},
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return e
	}
	for key, raw := range obj {
		var single string
		if err := json.Unmarshal(raw, &single); err == nil {
			if key == "detail" {
				e.Detail = single
			} else {
				e.Fields[key] = []string{single}
			}
			continue
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil && key != "detail" {
			e.Fields[key] = list
		}
	}
	return e
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], " ")))
		}
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("backend returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Message picks what a form should display: the first email error, then the
// detail message, then the fallback.
func (e *Error) Message(fallback string) string {
	if msgs := e.Fields["email"]; len(msgs) > 0 && msgs[0] != "" {
		return msgs[0]
	}
	if e.Detail != "" {
		return e.Detail
	}
	return fallback
}

// FieldError returns the first message for a form field, or "".
func (e *Error) FieldError(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// ErrorMessage is Message for an arbitrary error: backend errors use their
// own message rules, anything else yields the fallback.
func ErrorMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message(fallback)
	}
	return fallback
}

func IsStatus(err error, statusCode int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == statusCode
}

func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}
