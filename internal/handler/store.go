package handler

import (
	"net/http"

	"arcstore-api/internal/middleware"
	"arcstore-api/internal/service"
	"arcstore-api/pkg/apierror"
	"arcstore-api/pkg/response"

	"go.uber.org/zap"
)

// StoreHandler handles the store workflows on the account page.
type StoreHandler struct {
	store *service.StoreService
	log   *zap.Logger
}

// NewStoreHandler creates a new store handler.
func NewStoreHandler(store *service.StoreService, log *zap.Logger) *StoreHandler {
	return &StoreHandler{store: store, log: log.Named("store_handler")}
}

// PurchaseRequest represents the request body for a purchase.
type PurchaseRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// GiftRequest represents the request body for a gift.
type GiftRequest struct {
	ProductID int64  `json:"product_id"`
	Recipient string `json:"recipient"`
	Quantity  int64  `json:"quantity"`
}

// ExchangeRequest represents the request body for a fragment exchange.
type ExchangeRequest struct {
	Fragments int64 `json:"fragments"`
}

// ListItems handles GET /api/v1/store/items
func (h *StoreHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListItems(r.Context())
	if err != nil {
		h.log.Error("failed to list store items", zap.Error(err))
		response.Error(w, apierror.ServiceUnavailable("store temporarily unavailable"))
		return
	}
	response.OK(w, items)
}

// Purchase handles POST /api/v1/store/purchase
func (h *StoreHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	ident := middleware.PageIdentityFromContext(r.Context())

	var req PurchaseRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	writeResult(w, h.store.Purchase(r.Context(), ident.UserID, req.ProductID, req.Quantity))
}

// Gift handles POST /api/v1/store/gift
func (h *StoreHandler) Gift(w http.ResponseWriter, r *http.Request) {
	ident := middleware.PageIdentityFromContext(r.Context())

	var req GiftRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	writeResult(w, h.store.Gift(r.Context(), ident.UserID, req.Recipient, req.ProductID, req.Quantity))
}

// Exchange handles POST /api/v1/store/exchange
func (h *StoreHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	ident := middleware.PageIdentityFromContext(r.Context())

	var req ExchangeRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	writeResult(w, h.store.Exchange(r.Context(), ident.UserID, req.Fragments))
}

// Bankruptcy handles POST /api/v1/store/bankruptcy
func (h *StoreHandler) Bankruptcy(w http.ResponseWriter, r *http.Request) {
	ident := middleware.PageIdentityFromContext(r.Context())
	writeResult(w, h.store.BankruptcyClaim(r.Context(), ident.UserID))
}
