package backend

import (
	"context"
	"net/http"

	"cleantech-console/internal/validation"
)

type LoginForm struct {
	UserName string `json:"userName" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	Token    string `json:"token"`
	UserID   int    `json:"id"`
	UserName string `json:"userName"`
	Role     string `json:"role"`
}

// Login exchanges credentials for a backend token.
func (c *Client) Login(ctx context.Context, form LoginForm) (LoginResult, error) {
	if err := validation.Struct(form); err != nil {
		return LoginResult{}, err
	}
	return do[LoginResult](ctx, c, http.MethodPost, "account/login", jsonBody(form))
}
