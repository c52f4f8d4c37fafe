package handler

import (
	"errors"
	"net/http"

	"arcstore-api/internal/middleware"
	"arcstore-api/internal/repository"
	"arcstore-api/internal/service"
	"arcstore-api/pkg/apierror"
	"arcstore-api/pkg/response"

	"go.uber.org/zap"
)

// AccountHandler serves the account page.
type AccountHandler struct {
	accounts *service.AccountService
	store    *service.StoreService
	log      *zap.Logger
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(accounts *service.AccountService, store *service.StoreService, log *zap.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, store: store, log: log.Named("account_handler")}
}

// RenameRequest represents the request body for a user name change.
type RenameRequest struct {
	NewUsername string `json:"new_username"`
}

// BannerRequest selects the course banner to show. Empty hides all of them.
type BannerRequest struct {
	BannerID string `json:"banner_id"`
}

// Me handles GET /api/v1/me
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	ident := middleware.PageIdentityFromContext(r.Context())

	profile, err := h.accounts.Profile(r.Context(), ident.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.Error(w, apierror.NotFound("user not found"))
			return
		}
		h.log.Error("failed to load profile", zap.Int64("user_id", ident.UserID), zap.Error(err))
		response.Error(w, apierror.ServiceUnavailable(""))
		return
	}

	response.OK(w, profile)
}

// Rename handles POST /api/v1/account/rename
func (h *AccountHandler) Rename(w http.ResponseWriter, r *http.Request) {
	ident := middleware.PageIdentityFromContext(r.Context())

	var req RenameRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	writeResult(w, h.store.Rename(r.Context(), ident.UserID, req.NewUsername))
}

// UpdateBanner handles POST /api/v1/account/banner
func (h *AccountHandler) UpdateBanner(w http.ResponseWriter, r *http.Request) {
	ident := middleware.PageIdentityFromContext(r.Context())

	var req BannerRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	writeResult(w, h.store.UpdateBanner(r.Context(), ident.UserID, req.BannerID))
}

// SearchUsers handles GET /api/v1/users/search?query=
func (h *AccountHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.SearchUsers(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		h.log.Error("user search failed", zap.Error(err))
		response.Error(w, apierror.ServiceUnavailable(""))
		return
	}
	response.OK(w, users)
}
