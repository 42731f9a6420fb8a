package result

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// notAuthenticatedCode is the error marker the backend sets when the
// browser session holds no access token.
const notAuthenticatedCode = "not_authenticated"

// Decode parses raw as JSON. It never fails: an empty or malformed body
// decodes to an empty object, and malformed reports whether the input was
// unparseable. Numbers are kept as json.Number so identifiers survive verbatim.
func Decode(raw []byte) (body any, malformed bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return map[string]any{}, true
	}
	if _, err := dec.Token(); err != io.EOF {
		return map[string]any{}, true
	}
	if body == nil {
		return map[string]any{}, false
	}
	return body, false
}

// Normalize classifies an HTTP status and decoded body. The first matching
// rule wins:
//  1. 401, or an explicit not_authenticated marker -> KindUnauthenticated
//  2. status >= 400 -> KindClientError (< 500) or KindServerError
//  3. 2xx -> ok; data is body.data when it is an array, else body when it
//     is an array, else empty
//
// A 2xx proxy envelope whose logical status is >= 400 is classified by that
// logical status and its inner payload.
func Normalize(status int, body any) Result {
	if status == http.StatusUnauthorized || hasNotAuthenticatedMarker(body) {
		msg := errorMessage(body)
		if msg == "" || msg == notAuthenticatedCode {
			msg = NotAuthenticatedMessage
		}
		return Result{Kind: KindUnauthenticated, Status: status, Message: msg, Body: body}
	}

	if status >= 400 {
		kind := KindClientError
		if status >= 500 {
			kind = KindServerError
		}
		msg := errorMessage(body)
		if msg == "" {
			msg = fmt.Sprintf("Error %d", status)
		}
		return Result{Kind: kind, Status: status, Message: msg, Body: body}
	}

	if status < 200 || status > 299 {
		return Result{Kind: KindServerError, Status: status, Message: fmt.Sprintf("Error %d", status), Body: body}
	}

	if obj, ok := body.(map[string]any); ok {
		if logical, ok := LogicalStatus(obj); ok && logical >= 400 {
			inner := obj["data"]
			if errorMessage(inner) == "" {
				inner = obj
			}
			r := Normalize(logical, inner)
			r.Status = status
			r.Body = body
			return r
		}
	}

	r := Success(status, dataOf(body))
	r.Body = body
	return r
}

// LogicalStatus returns the numeric "status" field of an envelope body.
func LogicalStatus(obj map[string]any) (int, bool) {
	switch v := obj["status"].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

func dataOf(body any) []any {
	switch v := body.(type) {
	case map[string]any:
		if items, ok := v["data"].([]any); ok {
			return items
		}
	case []any:
		return v
	}
	return []any{}
}

func hasNotAuthenticatedMarker(body any) bool {
	obj, ok := body.(map[string]any)
	if !ok {
		return false
	}
	code, _ := obj["error"].(string)
	return strings.EqualFold(strings.TrimSpace(code), notAuthenticatedCode)
}

func errorMessage(body any) string {
	obj, ok := body.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"error", "message"} {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
