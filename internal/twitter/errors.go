package twitter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx answer from either API.
type APIError struct {
	StatusCode int
	Op         string
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) HTTPStatusCode() int {
	return e.StatusCode
}

type v2Problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
}

type v1Errors struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// diagnoseHTTPError renders a failed response into one readable line. It
// understands v2 problem documents and v1.1 error arrays and falls back to
// the raw body.
func diagnoseHTTPError(resp *http.Response, body []byte, op string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: HTTP %d", op, resp.StatusCode)

	var p v2Problem
	if err := json.Unmarshal(body, &p); err == nil && (p.Title != "" || p.Detail != "") {
		fmt.Fprintf(&b, ": %s", p.Title)
		if p.Detail != "" {
			fmt.Fprintf(&b, " (%s)", p.Detail)
		}
	} else {
		var v1 v1Errors
		if err := json.Unmarshal(body, &v1); err == nil && len(v1.Errors) > 0 {
			parts := make([]string, 0, len(v1.Errors))
			for _, e := range v1.Errors {
				parts = append(parts, fmt.Sprintf("code %d: %s", e.Code, e.Message))
			}
			fmt.Fprintf(&b, ": %s", strings.Join(parts, "; "))
		} else if raw := strings.TrimSpace(string(body)); raw != "" {
			fmt.Fprintf(&b, ": %s", truncate(raw, 300))
		}
	}

	// 403s on write endpoints are usually an app configured read-only.
	if resp.StatusCode == http.StatusForbidden {
		if lvl := resp.Header.Get("X-Access-Level"); lvl != "" {
			fmt.Fprintf(&b, " [access level: %s]", lvl)
		}
	}
	return b.String()
}
