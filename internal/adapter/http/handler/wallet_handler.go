package handler

import (
	"time"

	"shiplabel-gateway/internal/adapter/http/dto"
	"shiplabel-gateway/internal/adapter/http/middleware"
	"shiplabel-gateway/internal/core/domain"
	"shiplabel-gateway/internal/core/ports"
	"shiplabel-gateway/pkg/apperror"
	"shiplabel-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// WalletHandler handles the wallet dashboard endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// GetBalance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	balance, err := h.walletSvc.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		Balance:  balance.StringFixed(2),
		Currency: "USD",
	})
}

// GetSavings handles GET /api/v1/wallet/stats.
func (h *WalletHandler) GetSavings(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	stats, err := h.walletSvc.GetSavingsStats(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.SavingsResponse{
		SavingsTotal: stats.SavingsTotal.StringFixed(2),
		LabelCount:   stats.LabelCount,
	})
}

// PurchaseLabel handles POST /api/v1/wallet/labels.
func (h *WalletHandler) PurchaseLabel(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.LabelPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	txn, err := h.walletSvc.ChargeForLabel(c.Request.Context(), ports.ChargeRequest{
		AccountID:      accountID,
		BaseRate:       req.BaseRate,
		TrackingNumber: req.TrackingNumber,
		Description:    req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(txn))
}

// ListTransactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var q dto.TransactionListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	params := ports.ListParams{Page: q.Page, PageSize: q.PageSize}
	if q.Kind != "" {
		kind := domain.TransactionKind(q.Kind)
		params.Kind = &kind
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = 20
	}

	items, total, err := h.walletSvc.ListTransactions(c.Request.Context(), accountID, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.TransactionResponse, 0, len(items))
	for i := range items {
		out = append(out, *toTransactionResponse(&items[i]))
	}

	totalPages := int(total) / params.PageSize
	if int(total)%params.PageSize > 0 {
		totalPages++
	}

	response.OK(c, dto.TransactionListResponse{
		Items:      out,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	})
}

func toTransactionResponse(txn *domain.Transaction) *dto.TransactionResponse {
	return &dto.TransactionResponse{
		ID:          txn.ID.String(),
		Kind:        string(txn.Kind),
		Amount:      txn.Amount.StringFixed(2),
		BaseRate:    moneyPtr(txn.BaseRate),
		RetailRate:  moneyPtr(txn.RetailRate),
		Savings:     moneyPtr(txn.Savings),
		ReferenceID: txn.ReferenceID,
		Description: txn.Description,
		CreatedAt:   txn.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func moneyPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}
