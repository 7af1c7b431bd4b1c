package bot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"chatlink/internal/models"
)

// Client calls the API server's internal endpoints on behalf of the bot.
// Every request carries the shared X-API-Key.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a backend client for the given API base URL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// FinalizeResult is the link returned by a successful finalize call.
type FinalizeResult struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	ChannelID      string `json:"channel_id"`
	ExternalHandle string `json:"external_handle"`
	DisplayName    string `json:"display_name"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Finalize resolves a verification nonce to the confirmed chat handle.
func (c *Client) Finalize(nonce, externalHandle, displayName string) (*FinalizeResult, error) {
	payload := map[string]string{
		"nonce":           nonce,
		"external_handle": externalHandle,
		"display_name":    displayName,
	}
	var result FinalizeResult
	if err := c.post("/api/v1/internal/link/finalize", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RecordMessage forwards an inbound chat message to the message store.
func (c *Client) RecordMessage(channelID models.ChannelID, externalHandle, body string, occurredAt time.Time) error {
	payload := map[string]any{
		"channel_id":      channelID,
		"external_handle": externalHandle,
		"body":            body,
		"occurred_at":     occurredAt.UTC().Format(time.RFC3339),
	}
	return c.post("/api/v1/internal/messages", payload, nil)
}

func (c *Client) post(path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Code != "" {
			return &BackendError{StatusCode: resp.StatusCode, Code: apiErr.Error.Code, Message: apiErr.Error.Message}
		}
		return &BackendError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// BackendError is a non-2xx response from the API server's internal endpoints.
type BackendError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *BackendError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}
