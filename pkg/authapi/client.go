package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a typed HTTP client for the Sigil authentication service.
// The zero value is not usable; construct it with NewClient.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new auth service client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login exchanges a username/password pair for a token pair.
func (c *Client) Login(ctx context.Context, username, secret string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.postJSON(ctx, "/v1/auth/login", "", LoginRequest{Username: username, Secret: secret}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh redeems a refresh token for a new pair. The presented token is
// revoked server-side, so keep the returned pair and discard the old one.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.postJSON(ctx, "/v1/auth/refresh", "", RefreshRequest{RefreshToken: refreshToken}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout surrenders a refresh token, ending the session. Idempotent.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	var out StatusResponse
	return c.postJSON(ctx, "/v1/auth/logout", "", LogoutRequest{RefreshToken: refreshToken}, &out)
}

// UserInfo fetches the authenticated user's profile.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*UserInfoResponse, error) {
	var out UserInfoResponse
	if err := c.getJSON(ctx, "/v1/userinfo", accessToken, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JWKS fetches the public key set used to verify tokens locally.
func (c *Client) JWKS(ctx context.Context) (*JWKSResponse, error) {
	var out JWKSResponse
	if err := c.getJSON(ctx, "/.well-known/jwks.json", "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Livez checks liveness.
func (c *Client) Livez(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.getJSON(ctx, "/livez", "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Readyz checks readiness, including the database and signer.
func (c *Client) Readyz(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.getJSON(ctx, "/readyz", "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RotateKey rotates the signing key. Requires the admin:write scope.
func (c *Client) RotateKey(ctx context.Context, accessToken string, req RotateKeyRequest) (*RotateKeyResponse, error) {
	var out RotateKeyResponse
	if err := c.postJSON(ctx, "/v1/keys/rotate", accessToken, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListKeys lists signing keys. Requires the admin:read scope.
func (c *Client) ListKeys(ctx context.Context, accessToken string) ([]SigningKeyInfo, error) {
	var out []SigningKeyInfo
	if err := c.getJSON(ctx, "/v1/keys", accessToken, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RetireKey retires a signing key by kid. Requires the admin:write scope.
func (c *Client) RetireKey(ctx context.Context, accessToken, kid string) error {
	var out StatusResponse
	return c.postJSON(ctx, "/v1/keys/"+kid+"/retire", accessToken, struct{}{}, &out)
}

func (c *Client) postJSON(ctx context.Context, path, accessToken string, body, target any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	return c.do(req, target)
}

func (c *Client) getJSON(ctx context.Context, path, accessToken string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	return c.do(req, target)
}

func (c *Client) do(req *http.Request, target any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseErrorResponse(resp.StatusCode, bodyBytes)
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseErrorResponse turns a failed response into a typed *APIError so
// callers can match on the error code.
func parseErrorResponse(statusCode int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return &APIError{
			StatusCode:  statusCode,
			Code:        ErrorCodeServerError,
			Description: fmt.Sprintf("unexpected response (status %d)", statusCode),
		}
	}

	return &APIError{
		StatusCode:  statusCode,
		Code:        errResp.Error,
		Description: errResp.ErrorDescription,
	}
}
