package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/noah-isme/roster-console/internal/models"
)

// AuthClient calls the backend account endpoints.
type AuthClient struct {
	base *Client
	path string
}

// NewAuthClient mounts the account endpoints at path, e.g. /api/account.
func NewAuthClient(base *Client, path string) *AuthClient {
	return &AuthClient{base: base, path: strings.TrimRight(path, "/")}
}

// Login exchanges credentials for a token.
func (a *AuthClient) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	var out models.LoginResponse
	if err := a.base.doJSON(ctx, "account.login", http.MethodPost, a.path+"/Login", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an administrator account. The response body is ignored.
func (a *AuthClient) Register(ctx context.Context, req models.RegisterRequest) error {
	return a.base.doJSON(ctx, "account.register", http.MethodPost, a.path+"/Register", nil, req, nil)
}
