package linkverify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "chatlink/internal/errors"
	"chatlink/internal/models"
)

// Client talks to the verification endpoints of the API server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a verification API client. token is the bearer token of
// the account being linked.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Issued is the server's answer to a generate call.
type Issued struct {
	Nonce     string    `json:"nonce"`
	DeepLink  string    `json:"deep_link"`
	Command   string    `json:"command"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StatusOutcome classifies one poll round trip.
type StatusOutcome string

const (
	StatusPending StatusOutcome = "pending"
	StatusDone    StatusOutcome = "done"
	StatusExpired StatusOutcome = "expired"
)

// StatusResult is the decoded poll response. Link is set only for done.
type StatusResult struct {
	Outcome StatusOutcome
	Link    *LinkInfo
	Message string
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate asks the server to start a verification attempt for the channel.
func (c *Client) Generate(ctx context.Context, channel models.ChannelID) (*Issued, error) {
	body, err := json.Marshal(map[string]string{"channel_id": string(channel)})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/link/generate", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, decodeError(resp)
	}

	var issued Issued
	if err := json.NewDecoder(resp.Body).Decode(&issued); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &issued, nil
}

// Status polls the nonce's state. A 404 means the server has not seen the
// confirmation yet and the caller should keep polling; a 410 is the expiry
// signal. Transport and decode failures surface as errors so the caller can
// distinguish them from protocol answers.
func (c *Client) Status(ctx context.Context, nonce string) (*StatusResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/link/status/"+nonce, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return &StatusResult{Outcome: StatusPending}, nil
	case http.StatusGone:
		env := readEnvelope(resp.Body)
		return &StatusResult{Outcome: StatusExpired, Message: env.Error.Message}, nil
	default:
		return nil, decodeError(resp)
	}

	var payload struct {
		Status string    `json:"status"`
		Link   *LinkInfo `json:"link,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	switch payload.Status {
	case "done":
		return &StatusResult{Outcome: StatusDone, Link: payload.Link}, nil
	case "expired":
		return &StatusResult{Outcome: StatusExpired, Message: apperrors.ErrNonceExpired.Message}, nil
	default:
		return &StatusResult{Outcome: StatusPending}, nil
	}
}

func readEnvelope(r io.Reader) errorEnvelope {
	var env errorEnvelope
	_ = json.NewDecoder(r).Decode(&env)
	return env
}

func decodeError(resp *http.Response) error {
	env := readEnvelope(resp.Body)
	if env.Error.Message != "" {
		return &apperrors.AppError{
			Code:       env.Error.Code,
			Message:    env.Error.Message,
			StatusCode: resp.StatusCode,
		}
	}
	return apperrors.Wrap(apperrors.ErrInternalServer,
		fmt.Errorf("unexpected status %d from %s", resp.StatusCode, resp.Request.URL.Path))
}
