package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ResponseError describes a non-2xx response from a third-party API.
// Code and Description are filled from an OAuth2-style error body
// ({"error": "...", "error_description": "..."}) when one is present.
type ResponseError struct {
	Service     string
	Status      int
	Code        string
	Description string
}

func (e *ResponseError) Error() string {
	switch {
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("%s returned status %d: %s: %s", e.Service, e.Status, e.Code, e.Description)
	case e.Code != "":
		return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Status, e.Code)
	case e.Description != "":
		return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Status, e.Description)
	default:
		return fmt.Sprintf("%s returned status %d", e.Service, e.Status)
	}
}

// ServerSide reports whether the remote side failed (5xx).
func (e *ResponseError) ServerSide() bool {
	return e.Status >= 500
}

type oauthErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ParseResponseError reads the body of a non-2xx response into a
// *ResponseError. The body is consumed and closed. Unstructured bodies are
// kept, truncated, as the description.
func ParseResponseError(resp *http.Response, service string) *ResponseError {
	defer func() { _ = resp.Body.Close() }()

	rerr := &ResponseError{Service: service, Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(body) == 0 {
		return rerr
	}

	var parsed oauthErrorBody
	if json.Unmarshal(body, &parsed) == nil && (parsed.Error != "" || parsed.ErrorDescription != "") {
		rerr.Code = parsed.Error
		rerr.Description = parsed.ErrorDescription
		return rerr
	}

	const maxRaw = 256
	if len(body) > maxRaw {
		body = body[:maxRaw]
	}
	rerr.Description = string(body)
	return rerr
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
