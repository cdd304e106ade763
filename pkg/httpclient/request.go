package httpclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jschlyter/scoutnet2airkey/pkg/errors"
)

// Caller defines the behavior of a request caller
type Caller interface {
	Call(ctx context.Context, resp any) (int, error)
}

// RequestOption defines a functional option for configuring an API request
type RequestOption func(*apiRequest)

type apiRequest struct {
	httpClient  *Client
	Method      string
	URL         string
	Body        any
	Token       string
	BasicUser   string
	BasicPass   string
	Description string
}

// WithMethod sets the HTTP method for the request
func WithMethod(method string) RequestOption {
	return func(req *apiRequest) {
		req.Method = method
	}
}

// WithURL sets the full URL for the request
func WithURL(url string) RequestOption {
	return func(req *apiRequest) {
		req.URL = url
	}
}

// WithBody sets the request body
func WithBody(body any) RequestOption {
	return func(req *apiRequest) {
		req.Body = body
	}
}

// WithToken sets the bearer authentication token
func WithToken(token string) RequestOption {
	return func(req *apiRequest) {
		req.Token = token
	}
}

// WithBasicAuth sets basic authentication credentials (used by the Scoutnet API)
func WithBasicAuth(user, password string) RequestOption {
	return func(req *apiRequest) {
		req.BasicUser = user
		req.BasicPass = password
	}
}

// WithDescription sets a description for the request (used in logging)
func WithDescription(description string) RequestOption {
	return func(req *apiRequest) {
		req.Description = description
	}
}

// Call makes an HTTP call with the configured data
func (a *apiRequest) Call(ctx context.Context, resp any) (int, error) {
	if a.URL == "" {
		return -1, errors.NewValidation("URL is required")
	}

	if strings.TrimSpace(a.Method) == "" {
		return -1, errors.NewValidation("HTTP method is required")
	}

	var (
		requestBody []byte
		err         error
	)

	// Prepare the request body if provided
	if a.Body != nil {
		requestBody, err = json.Marshal(a.Body)
		if err != nil {
			return -1, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	slog.DebugContext(ctx, "calling API",
		"method", a.Method,
		"url", a.URL,
		"description", a.Description)

	headers := map[string]string{
		"Accept": "application/json",
	}

	switch {
	case a.BasicUser != "" || a.BasicPass != "":
		credentials := base64.StdEncoding.EncodeToString([]byte(a.BasicUser + ":" + a.BasicPass))
		headers["Authorization"] = "Basic " + credentials
	case strings.TrimSpace(a.Token) != "":
		// Normalize the Authorization token
		authHeader := strings.TrimSpace(a.Token)
		if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			authHeader = "Bearer " + authHeader
		}
		headers["Authorization"] = authHeader
	}

	// Add Content-Type for requests with body
	if a.Body != nil {
		headers["Content-Type"] = "application/json"
	}

	var bodyReader io.Reader
	if requestBody != nil {
		bodyReader = bytes.NewReader(requestBody)
	}

	// Make the HTTP request
	response, err := a.httpClient.Request(ctx, a.Method, a.URL, bodyReader, headers)
	if err != nil {
		slog.ErrorContext(ctx, "API request failed",
			"error", err,
			"method", a.Method,
			"description", a.Description)
		if re, ok := err.(*RetryableError); ok {
			return re.StatusCode, err
		}
		return -1, errors.NewUnexpected("API request failed", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		slog.ErrorContext(ctx, "API returned error",
			"status_code", response.StatusCode,
			"response_body", string(response.Body),
			"method", a.Method,
			"description", a.Description)
		return response.StatusCode, ErrorFromStatusCode(response.StatusCode,
			fmt.Sprintf("%s returned status code %d", a.Description, response.StatusCode))
	}

	// If caller doesn't need the body or there's no content, skip JSON decoding.
	if resp == nil || len(response.Body) == 0 {
		slog.DebugContext(ctx, "API call successful",
			"method", a.Method,
			"status_code", response.StatusCode,
			"description", a.Description,
			"empty_body", len(response.Body) == 0)
		return response.StatusCode, nil
	}

	if err := json.Unmarshal(response.Body, resp); err != nil {
		slog.ErrorContext(ctx, "failed to parse API response", "error", err)
		return -1, errors.NewUnexpected("failed to parse API response", err)
	}

	slog.DebugContext(ctx, "API call successful",
		"method", a.Method,
		"status_code", response.StatusCode,
		"description", a.Description)

	return response.StatusCode, nil
}

// NewAPIRequest creates a new API request with the provided options
func NewAPIRequest(httpClient *Client, options ...RequestOption) Caller {
	req := &apiRequest{
		httpClient: httpClient,
	}

	for _, option := range options {
		option(req)
	}

	return req
}
