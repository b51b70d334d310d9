package clients

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

// IdentityClient handles communication with the hosted identity provider.
// Only email/password sign-in and token introspection are consumed here;
// session issuance and storage belong to the provider.
type IdentityClient struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// User represents an authenticated identity-provider user
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the result of a successful password grant
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	User        User   `json:"user"`
}

type passwordGrantRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type identityError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"msg"`
}

// NewIdentityClient creates a client for the identity provider's REST API.
func NewIdentityClient(baseURL, serviceKey string) *IdentityClient {
	return &IdentityClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SignInWithPassword exchanges email/password credentials for a session.
func (c *IdentityClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body, err := json.Marshal(passwordGrantRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/auth/v1/token?grant_type=password", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sign-in failed: %s", readIdentityError(resp.Body))
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if session.AccessToken == "" {
		return nil, fmt.Errorf("sign-in failed: no access token issued")
	}
	return &session, nil
}

// GetUser resolves the user behind an access token. A non-200 response means
// the token is expired, revoked, or malformed.
func (c *IdentityClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	url := fmt.Sprintf("%s/auth/v1/user", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("apikey", c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("invalid token: %s", readIdentityError(resp.Body))
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &user, nil
}

func readIdentityError(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return "no error detail"
	}
	var ie identityError
	if err := json.Unmarshal(data, &ie); err == nil {
		switch {
		case ie.ErrorDescription != "":
			return ie.ErrorDescription
		case ie.Message != "":
			return ie.Message
		case ie.Error != "":
			return ie.Error
		}
	}
	return string(data)
}
