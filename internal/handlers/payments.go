package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ticketer/internal/models"
)

// HandleNotification receives the gateway's payment webhook (or a client
// poll) and settles the referenced transaction. Replays are acknowledged
// with the original outcome.
// POST /api/payments/notification
func (h *Handlers) HandleNotification(c *gin.Context) {
	var req models.VerifyTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference is required"})
		return
	}

	response, err := h.services.Settlement.VerifyAndSettle(c.Request.Context(), req.Reference)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetTransaction reads one ledger entry by reference.
// GET /api/payments/transactions/:reference
func (h *Handlers) GetTransaction(c *gin.Context) {
	txn, err := h.services.Wallets.Transaction(c.Request.Context(), currentUserID(c), c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

// ListTransactions lists the caller's ledger history.
// GET /api/payments/transactions
func (h *Handlers) ListTransactions(c *gin.Context) {
	txns, err := h.services.Wallets.Transactions(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}
