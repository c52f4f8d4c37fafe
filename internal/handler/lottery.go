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

// LotteryHandler serves the daily lottery.
type LotteryHandler struct {
	lottery *service.LotteryService
	log     *zap.Logger
}

// NewLotteryHandler creates a new lottery handler.
func NewLotteryHandler(lottery *service.LotteryService, log *zap.Logger) *LotteryHandler {
	return &LotteryHandler{lottery: lottery, log: log.Named("lottery_handler")}
}

// DrawResponse represents the outcome of a draw.
type DrawResponse struct {
	Success bool         `json:"success"`
	Code    service.Code `json:"code"`
	Message string       `json:"message"`
	Prize   string       `json:"prize,omitempty"`
}

// Draw handles POST /api/v1/lottery/draw
func (h *LotteryHandler) Draw(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())

	draw, err := h.lottery.Draw(r.Context(), session.UserID)
	switch {
	case err == nil:
		response.Raw(w, http.StatusOK, DrawResponse{
			Success: true,
			Code:    service.CodeOK,
			Message: "congratulations, you won " + draw.Prize,
			Prize:   draw.Prize,
		})
	case errors.Is(err, repository.ErrAlreadyDrawn):
		response.Raw(w, http.StatusOK, DrawResponse{
			Code:    service.CodeAlreadyDrawn,
			Message: "you have already drawn today",
		})
	default:
		h.log.Error("lottery draw failed", zap.Int64("user_id", session.UserID), zap.Error(err))
		response.Error(w, apierror.ServiceUnavailable("lottery temporarily unavailable"))
	}
}

// State handles GET /api/v1/lottery
func (h *LotteryHandler) State(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())

	state, err := h.lottery.State(r.Context(), session.UserID)
	if err != nil {
		h.log.Error("failed to load lottery state", zap.Int64("user_id", session.UserID), zap.Error(err))
		response.Error(w, apierror.ServiceUnavailable("lottery temporarily unavailable"))
		return
	}
	response.OK(w, state)
}
