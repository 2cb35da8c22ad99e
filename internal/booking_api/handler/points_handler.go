package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kerya-reservation-engine/internal/booking_api/middleware"
	"github.com/kerya-reservation-engine/internal/reservation"
)

// PointsHandler exposes an account's point balance and ledger
type PointsHandler struct {
	pointsService reservation.PointsService
	logger        *slog.Logger
}

func NewPointsHandler(logger *slog.Logger, pointsService reservation.PointsService) *PointsHandler {
	return &PointsHandler{
		pointsService: pointsService,
		logger:        logger,
	}
}

// Balance returns the caller's current balance
func (h *PointsHandler) Balance(c *gin.Context) {
	accountID, ok := h.ownAccount(c)
	if !ok {
		return
	}

	balance, err := h.pointsService.Balance(c.Request.Context(), accountID)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, BalanceResponse{AccountID: accountID, Balance: balance})
}

// Entries returns the caller's ledger history, newest first
func (h *PointsHandler) Entries(c *gin.Context) {
	accountID, ok := h.ownAccount(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Warn("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.pointsService.Entries(
		c.Request.Context(),
		accountID,
		pagination.PerPage,
		(pagination.Page-1)*pagination.PerPage,
	)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	responses := make([]EntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// Spend charges the post cost against the caller's balance
func (h *PointsHandler) Spend(c *gin.Context) {
	accountID, ok := h.ownAccount(c)
	if !ok {
		return
	}

	var req SpendPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.pointsService.ChargePost(c.Request.Context(), accountID, req.ReferenceID); err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	h.respondBalance(c, accountID)
}

// Adjust applies an operator correction; only admins may call it
func (h *PointsHandler) Adjust(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}
	if !middleware.IsAdmin(c) {
		RespondForbidden(c, "Only operators can adjust points")
		return
	}

	var req AdjustPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.pointsService.Adjust(c.Request.Context(), accountID, req.Amount, req.ReferenceID); err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	h.logger.Info("Points adjusted",
		"account_id", accountID,
		"amount", req.Amount,
		"reference_id", req.ReferenceID,
		"operator_id", middleware.GetActorID(c),
		"correlation_id", middleware.GetCorrelationID(c),
	)
	h.respondBalance(c, accountID)
}

func (h *PointsHandler) respondBalance(c *gin.Context, accountID int64) {
	balance, err := h.pointsService.Balance(c.Request.Context(), accountID)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, BalanceResponse{AccountID: accountID, Balance: balance})
}

func (h *PointsHandler) accountID(c *gin.Context) (int64, bool) {
	accountID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || accountID <= 0 {
		RespondBadRequest(c, "Invalid account ID")
		return 0, false
	}
	return accountID, true
}

// ownAccount accepts the caller's own account, or any account for admins
func (h *PointsHandler) ownAccount(c *gin.Context) (int64, bool) {
	accountID, ok := h.accountID(c)
	if !ok {
		return 0, false
	}
	if accountID != middleware.GetActorID(c) && !middleware.IsAdmin(c) {
		RespondForbidden(c, "Points belong to another account")
		return 0, false
	}
	return accountID, true
}
