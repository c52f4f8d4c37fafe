package handler

import (
	"context"
	"errors"
	"net/http"

	"arcstore-api/internal/middleware"
	"arcstore-api/internal/model"
	"arcstore-api/internal/service"
	"arcstore-api/pkg/apierror"
	"arcstore-api/pkg/response"

	"go.uber.org/zap"
)

// AuthHandler issues and revokes identity tokens.
type AuthHandler struct {
	accounts *service.AccountService
	tokens   *service.TokenService
	log      *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(accounts *service.AccountService, tokens *service.TokenService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens, log: log.Named("auth_handler")}
}

// LoginRequest represents the request body for both login flows.
type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// TokenResponse represents the response for token generation.
type TokenResponse struct {
	Token     string `json:"token"`
	UserID    int64  `json:"user_id"`
	Name      string `json:"name"`
	ExpiresIn int    `json:"expires_in"`
}

// Login handles POST /api/v1/auth/login and issues a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, h.tokens.IssueSession)
}

// Page handles POST /api/v1/auth/page. The account page asks for the
// password again and gets its own token.
func (h *AuthHandler) Page(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, h.tokens.IssuePage)
}

func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, issue func(ctx context.Context, user *model.User) (string, error)) {
	var req LoginRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if req.Name == "" || req.Password == "" {
		response.Error(w, apierror.BadRequest("name and password are required"))
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), req.Name, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Error(w, apierror.Unauthorized("invalid user name or password"))
			return
		}
		h.log.Error("authentication failed", zap.Error(err))
		response.Error(w, apierror.ServiceUnavailable(""))
		return
	}

	token, err := issue(r.Context(), user)
	if err != nil {
		h.log.Error("failed to issue token", zap.Int64("user_id", user.UserID), zap.Error(err))
		response.Error(w, apierror.InternalError("failed to generate token"))
		return
	}

	response.OK(w, TokenResponse{
		Token:     token,
		UserID:    user.UserID,
		Name:      user.Name,
		ExpiresIn: int(h.tokens.TTL().Seconds()),
	})
}

// Revoke handles POST /api/v1/auth/revoke for either token kind.
func (h *AuthHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(middleware.PageHeader)
	if token == "" {
		token = r.Header.Get(middleware.SessionHeader)
	}
	if token == "" {
		response.Error(w, apierror.BadRequest("X-Token or X-Page-Token header required"))
		return
	}

	if err := h.tokens.Revoke(r.Context(), token); err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			response.Error(w, apierror.BadRequest("unrecognized token"))
			return
		}
		response.Error(w, apierror.InternalError("failed to revoke token"))
		return
	}

	response.OK(w, map[string]string{"status": "revoked"})
}
