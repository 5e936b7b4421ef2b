package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ticketer/internal/models"
)

// Fund initiates a wallet top-up checkout.
// POST /api/wallet/fund
func (h *Handlers) Fund(c *gin.Context) {
	var req models.FundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	checkout, err := h.services.Wallets.Fund(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, checkout)
}

// Withdraw pays out from the caller's wallet to their bank account.
// POST /api/wallet/withdraw
func (h *Handlers) Withdraw(c *gin.Context) {
	var req models.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.services.Wallets.Withdraw(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Balance reports the caller's wallet balance.
// GET /api/wallet/balance
func (h *Handlers) Balance(c *gin.Context) {
	balance, err := h.services.Wallets.Balance(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

// SetPin sets or rotates the caller's wallet PIN.
// POST /api/wallet/pin
func (h *Handlers) SetPin(c *gin.Context) {
	var req models.SetPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Wallets.SetPin(c.Request.Context(), currentUserID(c), &req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "PIN updated"})
}

// HasPin reports whether the caller's wallet PIN is set.
// GET /api/wallet/pin
func (h *Handlers) HasPin(c *gin.Context) {
	result, err := h.services.Wallets.HasPin(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
