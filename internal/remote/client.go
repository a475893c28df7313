// Package remote is the client for the HR REST service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"peoplepulse/internal/models"
)

var (
	// ErrTransport wraps network, DNS and timeout failures
	ErrTransport = errors.New("hr service unreachable")
	// ErrUnauthorized matches rejections caused by a missing, invalid or expired token
	ErrUnauthorized = errors.New("unauthorized")
)

// RejectionError is returned when the HR service answers with a non-2xx status
type RejectionError struct {
	Status  int
	Message string
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("hr service rejected request: status %d", e.Status)
	}
	return fmt.Sprintf("hr service rejected request: status %d: %s", e.Status, e.Message)
}

// Is reports 401 and 422 rejections as ErrUnauthorized
func (e *RejectionError) Is(target error) bool {
	return target == ErrUnauthorized &&
		(e.Status == http.StatusUnauthorized || e.Status == http.StatusUnprocessableEntity)
}

// maxErrorBody bounds how much of a failure body is read for the message
const maxErrorBody = 64 << 10

// Client talks to the HR service under a base URL
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL with the given request timeout
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the service root the client calls
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges credentials for a bearer token and the user profile
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	err := c.do(ctx, http.MethodPost, "/login", "", models.LoginRequest{
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.User == nil {
		return nil, &RejectionError{Status: http.StatusBadGateway, Message: "resposta de login incompleta"}
	}
	return &resp, nil
}

// Me returns the profile of the token's owner
func (c *Client) Me(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/me", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// KPIs returns the KPIs assigned to a user
func (c *Client) KPIs(ctx context.Context, token string, userID int64) ([]models.KPI, error) {
	var kpis []models.KPI
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/kpis", userID), token, nil, &kpis)
	return kpis, err
}

// PDIs returns the development plans visible to the token's owner
func (c *Client) PDIs(ctx context.Context, token string) ([]models.PDI, error) {
	var pdis []models.PDI
	err := c.do(ctx, http.MethodGet, "/pdis", token, nil, &pdis)
	return pdis, err
}

// Recognitions returns the recognitions a user has received
func (c *Client) Recognitions(ctx context.Context, token string, userID int64) ([]models.Recognition, error) {
	var recs []models.Recognition
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/recognitions/received", userID), token, nil, &recs)
	return recs, err
}

// Checkins returns a user's emotional check-ins
func (c *Client) Checkins(ctx context.Context, token string, userID int64) ([]models.EmotionalCheckin, error) {
	var checkins []models.EmotionalCheckin
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/emotional-checkins/user/%d", userID), token, nil, &checkins)
	return checkins, err
}

// do sends one request and decodes a 2xx body into out. It never retries.
func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody models.ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = json.Unmarshal(data, &errBody)
		return &RejectionError{Status: resp.StatusCode, Message: errBody.Msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
