package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	loginEndpointPath  = "/auth/login"
	logoutEndpointPath = "/auth/logout"

	maxResponseBytes = 1 << 20
)

var errEmptyBaseURL = errors.New("session.identity_client.empty_base_url")

// IdentityClient talks to the remote identity provider.
type IdentityClient interface {
	Login(ctx context.Context, credentials Credentials) (TokenPair, error)
	Revoke(ctx context.Context, refreshToken string) error
}

// HTTPIdentityClient calls POST /auth/login and POST /auth/logout on the admin API.
type HTTPIdentityClient struct {
	baseURL    string
	httpClient *http.Client
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

type loginResponseData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// NewHTTPIdentityClient builds a client for the API rooted at baseURL.
func NewHTTPIdentityClient(baseURL string, httpClient *http.Client) (*HTTPIdentityClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("session.identity_client.new: %w", errEmptyBaseURL)
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("session.identity_client.new: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPIdentityClient{baseURL: trimmed, httpClient: httpClient}, nil
}

// Login posts the credentials and returns the token pair on success.
// Every rejection is reported as a *LoginFailure.
func (client *HTTPIdentityClient) Login(ctx context.Context, credentials Credentials) (TokenPair, error) {
	statusCode, envelope, err := client.post(ctx, loginEndpointPath, credentials)
	if err != nil {
		return TokenPair{}, &LoginFailure{StatusCode: statusCode, Message: "Unable to reach the identity provider", Err: err}
	}
	if statusCode < 200 || statusCode > 299 || !envelope.Success {
		return TokenPair{}, &LoginFailure{StatusCode: statusCode, Message: envelope.failureMessage()}
	}
	var data loginResponseData
	if len(envelope.Data) == 0 || json.Unmarshal(envelope.Data, &data) != nil {
		return TokenPair{}, &LoginFailure{StatusCode: statusCode, Message: "Identity provider returned no tokens"}
	}
	if strings.TrimSpace(data.AccessToken) == "" || strings.TrimSpace(data.RefreshToken) == "" {
		return TokenPair{}, &LoginFailure{StatusCode: statusCode, Message: "Identity provider returned an incomplete token pair"}
	}
	return TokenPair{AccessToken: data.AccessToken, RefreshToken: data.RefreshToken}, nil
}

// Revoke asks the identity provider to invalidate a refresh token.
func (client *HTTPIdentityClient) Revoke(ctx context.Context, refreshToken string) error {
	statusCode, _, err := client.post(ctx, logoutEndpointPath, logoutRequest{RefreshToken: refreshToken})
	if err != nil {
		return fmt.Errorf("session.identity_client.revoke: %w", errors.Join(ErrRevocationFailed, err))
	}
	if statusCode < 200 || statusCode > 299 {
		return fmt.Errorf("session.identity_client.revoke.status_%d: %w", statusCode, ErrRevocationFailed)
	}
	return nil
}

func (client *HTTPIdentityClient) post(ctx context.Context, path string, payload any) (int, apiEnvelope, error) {
	body, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return 0, apiEnvelope{}, marshalErr
	}
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+path, bytes.NewReader(body))
	if requestErr != nil {
		return 0, apiEnvelope{}, requestErr
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, doErr := client.httpClient.Do(request)
	if doErr != nil {
		return 0, apiEnvelope{}, doErr
	}
	defer func() { _ = response.Body.Close() }()

	raw, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if readErr != nil {
		return response.StatusCode, apiEnvelope{}, readErr
	}
	var envelope apiEnvelope
	if len(bytes.TrimSpace(raw)) > 0 {
		// Non-JSON error pages still carry a usable status code.
		_ = json.Unmarshal(raw, &envelope)
	}
	return response.StatusCode, envelope, nil
}

func (envelope apiEnvelope) failureMessage() string {
	if strings.TrimSpace(envelope.Message) != "" {
		return envelope.Message
	}
	var detail string
	if len(envelope.Detail) > 0 && json.Unmarshal(envelope.Detail, &detail) == nil && strings.TrimSpace(detail) != "" {
		return detail
	}
	return DefaultLoginFailureMessage
}
