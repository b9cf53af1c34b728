package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient talks to the Voltex auth service. It covers the unauthenticated
// endpoints and creates Sessions for everything else.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string

	// CheckPermissions makes a Session refuse calls the logged-in user's
	// permission set cannot pass, without a round trip. Tests that want to
	// exercise the server-side 403 turn it off.
	CheckPermissions bool
}

// NewSDKClient creates a client with permission checking enabled.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent:        "voltex-authsdk",
		CheckPermissions: true,
	}
}

// Signup creates an account. It does not log in.
func (c *SDKClient) Signup(ctx context.Context, req SignupRequest) (*UserView, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/signup", req)
	if err != nil {
		return nil, err
	}

	var user UserView
	if err := decodeJSON(resp, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for tokens. When the account has MFA enabled
// and req.MFACode is empty the error matches ErrMFARequired.
func (c *SDKClient) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/login", req)
	if err != nil {
		return nil, err
	}

	var out LoginResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthenticateWithPassword logs in and wraps the result in a Session.
func (c *SDKClient) AuthenticateWithPassword(ctx context.Context, email, password, mfaCode string) (*Session, error) {
	out, err := c.Login(ctx, LoginRequest{Email: email, Password: password, MFACode: mfaCode})
	if err != nil {
		return nil, err
	}
	return newSession(c, out), nil
}

// Refresh mints a new access token for the session behind refreshToken.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/refresh", RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	var out TokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the session behind refreshToken. Unknown tokens succeed too.
func (c *SDKClient) Logout(ctx context.Context, refreshToken string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/logout", LogoutRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// NewSessionFromTokens resumes a session from stored tokens. The access
// token is treated as expired so the first call refreshes it.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string, permissions []string) *Session {
	return &Session{
		client:       c,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		permissions:  permissionSet(permissions),
	}
}
