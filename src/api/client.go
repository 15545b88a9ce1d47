// Package api is the HTTP client for the CanCat transaction service. It
// attaches the session's token pair to every request, captures rotated
// tokens from response headers, throttles outgoing calls, and stamps
// mutations with an idempotency key.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/username/cancat/client/src/logger"
	"github.com/username/cancat/client/src/models"
	"github.com/username/cancat/client/src/session"
	"golang.org/x/time/rate"
)

const (
	headerRefreshToken    = "x-refresh-token"
	headerNewAccessToken  = "x-new-access-token"
	headerNewRefreshToken = "x-new-refresh-token"
	headerIdempotencyKey  = "Idempotency-Key"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Session
	limiter    *rate.Limiter
}

// NewClient builds a client for the service at baseURL (including the /api
// prefix). Tokens are read from and rotated into sess.
func NewClient(baseURL string, sess *session.Session, timeout time.Duration, every time.Duration, burst int) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		session:    sess,
		limiter:    rate.NewLimiter(rate.Every(every), burst),
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// SignIn exchanges credentials for a token pair and stores it in the session.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	var resp signInResponse
	err := c.do(ctx, http.MethodPost, "/signin", signInRequest{Email: email, Password: password}, &resp, false)
	if err != nil {
		return err
	}
	c.session.SetTokens(resp.AccessToken, resp.RefreshToken)
	return nil
}

// Transactions fetches one page of size limit. A viewerScope greater than
// zero fetches the shared transactions of that user instead of the caller's
// own. A response whose status is not "success" is reported as
// ErrUnauthenticated, matching the server's signal for a dead session.
func (c *Client) Transactions(ctx context.Context, page, limit int, viewerScope int64) (*models.TransactionsResponse, error) {
	path := fmt.Sprintf("/transactions?page=%d&limit=%d", page, limit)
	if viewerScope > 0 {
		path = fmt.Sprintf("/transactions/shared/%d?page=%d&limit=%d", viewerScope, page, limit)
	}
	var resp models.TransactionsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, false); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, ErrUnauthenticated
	}
	return &resp, nil
}

// UpdateTransaction replaces the full record on the server. The contract is
// a whole-record replace, not a field patch.
func (c *Client) UpdateTransaction(ctx context.Context, tx models.Transaction) (*models.Transaction, error) {
	var updated models.Transaction
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/transactions/%d", tx.ID), tx, &updated, true)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

type labelRequest struct {
	Label           string `json:"label"`
	ReplaceAllLabel bool   `json:"replaceAllLabel"`
	ApplyToFuture   bool   `json:"applyToFuture"`
}

// UpdateLabel sets the custom label of a transaction. replaceAll also
// rewrites every transaction sharing the same original label; applyToFuture
// persists a server-side rule for later arrivals. Both are server-enforced.
func (c *Client) UpdateLabel(ctx context.Context, id int64, label string, replaceAll, applyToFuture bool) error {
	req := labelRequest{Label: label, ReplaceAllLabel: replaceAll, ApplyToFuture: applyToFuture}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/transactions/%d/label", id), req, nil, true)
}

type tagRequest struct {
	TagID int64 `json:"tagId"`
}

// UpdateTag assigns an existing tag to a transaction.
func (c *Client) UpdateTag(ctx context.Context, id, tagID int64) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/transactions/%d/tag", id), tagRequest{TagID: tagID}, nil, true)
}

// Tags lists the caller's tag catalog.
func (c *Client) Tags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := c.do(ctx, http.MethodGet, "/tags", nil, &tags, false); err != nil {
		return nil, err
	}
	return tags, nil
}

type createTagRequest struct {
	Name string `json:"name"`
}

// CreateTag creates a tag. Duplicate names are rejected server-side and
// surface as an *Error; no client-side de-duplication happens here.
func (c *Client) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	var tag models.Tag
	if err := c.do(ctx, http.MethodPost, "/tags", createTagRequest{Name: name}, &tag, true); err != nil {
		return nil, err
	}
	return &tag, nil
}

// Rules lists the caller's label rules.
func (c *Client) Rules(ctx context.Context) ([]models.Rule, error) {
	var rules []models.Rule
	if err := c.do(ctx, http.MethodGet, "/rules", nil, &rules, false); err != nil {
		return nil, err
	}
	return rules, nil
}

// DeleteRule removes a rule.
func (c *Client) DeleteRule(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/rules/%d", id), nil, nil, true)
}

// do runs one request against the API. Mutations get a fresh
// Idempotency-Key header so the server can drop accidental resubmits.
func (c *Client) do(ctx context.Context, method, path string, body, out any, mutation bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if access, refresh := c.session.Tokens(); access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
		if refresh != "" {
			req.Header.Set(headerRefreshToken, refresh)
		}
	}
	if mutation {
		req.Header.Set(headerIdempotencyKey, uuid.NewString())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	// The server may rotate the token pair on any response.
	if newAccess := resp.Header.Get(headerNewAccessToken); newAccess != "" {
		if newRefresh := resp.Header.Get(headerNewRefreshToken); newRefresh != "" {
			c.session.SetTokens(newAccess, newRefresh)
			if logger.L != nil {
				logger.L.Debug("Token pair rotated by server", "path", path)
			}
		}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthenticated
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return &Error{StatusCode: resp.StatusCode, Message: errBody.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}
