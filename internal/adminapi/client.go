// Package adminapi reads data from the admin API on behalf of a signed-in session.
package adminapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	systemStatsPath  = "/admin/stats"
	maxResponseBytes = 1 << 20
)

var (
	// ErrUnauthorized indicates the API rejected the bearer token; callers force a logout.
	ErrUnauthorized = errors.New("adminapi.unauthorized")
	// ErrForbidden indicates the token is valid but lacks administrator rights.
	ErrForbidden = errors.New("adminapi.forbidden")
	// ErrUnexpectedStatus indicates any other non-2xx response.
	ErrUnexpectedStatus = errors.New("adminapi.unexpected_status")
	// ErrMalformedResponse indicates a body that is not the expected envelope.
	ErrMalformedResponse = errors.New("adminapi.malformed_response")

	errEmptyBaseURL = errors.New("adminapi.empty_base_url")
)

// UserStats counts platform users.
type UserStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

// PetStats counts pets by status.
type PetStats struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Adopted   int `json:"adopted"`
}

// AdvertisementStats counts advertisements by review status.
type AdvertisementStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// SystemStats is the dashboard overview returned by GET /admin/stats.
type SystemStats struct {
	Users          UserStats          `json:"users"`
	Pets           PetStats           `json:"pets"`
	Advertisements AdvertisementStats `json:"advertisements"`
	Categories     int                `json:"categories"`
	Cities         int                `json:"cities"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Client calls the admin API with an already-authorized HTTP client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client for the API rooted at baseURL. httpClient is
// expected to attach the session's bearer token.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errEmptyBaseURL
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("adminapi.new: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: trimmed, httpClient: httpClient}, nil
}

// SystemStats fetches the dashboard overview.
func (client *Client) SystemStats(ctx context.Context) (SystemStats, error) {
	var stats SystemStats
	if err := client.get(ctx, systemStatsPath, &stats); err != nil {
		return SystemStats{}, err
	}
	return stats, nil
}

func (client *Client) get(ctx context.Context, path string, target any) error {
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodGet, client.baseURL+path, nil)
	if requestErr != nil {
		return fmt.Errorf("adminapi.request: %w", requestErr)
	}
	request.Header.Set("Accept", "application/json")

	response, doErr := client.httpClient.Do(request)
	if doErr != nil {
		return fmt.Errorf("adminapi.get%s: %w", strings.ReplaceAll(path, "/", "."), doErr)
	}
	defer func() { _ = response.Body.Close() }()

	switch {
	case response.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case response.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case response.StatusCode < 200 || response.StatusCode > 299:
		return fmt.Errorf("adminapi.status_%d: %w", response.StatusCode, ErrUnexpectedStatus)
	}

	raw, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if readErr != nil {
		return fmt.Errorf("adminapi.read: %w", readErr)
	}
	var payload envelope
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("adminapi.decode: %w", errors.Join(ErrMalformedResponse, err))
	}
	if !payload.Success || len(payload.Data) == 0 {
		return fmt.Errorf("adminapi.envelope: %w", ErrMalformedResponse)
	}
	if err := json.Unmarshal(payload.Data, target); err != nil {
		return fmt.Errorf("adminapi.decode_data: %w", errors.Join(ErrMalformedResponse, err))
	}
	return nil
}
