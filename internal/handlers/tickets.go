package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ticketer/internal/models"
)

// BuyNew initiates a primary ticket purchase.
// POST /api/tickets/buy/new
func (h *Handlers) BuyNew(c *gin.Context) {
	var req models.BuyNewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	checkout, err := h.services.Tickets.BuyNew(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, checkout)
}

// BuyResale initiates a resale purchase of listed tickets.
// POST /api/tickets/buy/resale
func (h *Handlers) BuyResale(c *gin.Context) {
	var req models.BuyResaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	checkout, err := h.services.Tickets.BuyResale(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, checkout)
}

// ListResale lists the caller's tickets for resale.
// POST /api/tickets/resale
func (h *Handlers) ListResale(c *gin.Context) {
	var req models.ListResaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tickets, err := h.services.Tickets.ListForResale(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// RemoveResale delists one of the caller's tickets.
// DELETE /api/tickets/resale
func (h *Handlers) RemoveResale(c *gin.Context) {
	var req models.RemoveResaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Tickets.Delist(c.Request.Context(), currentUserID(c), req.TicketID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "listing removed"})
}

// MyTickets lists the caller's tickets.
// GET /api/tickets
func (h *Handlers) MyTickets(c *gin.Context) {
	tickets, err := h.services.Tickets.MyTickets(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// SearchListings queries the resale marketplace.
// GET /api/tickets/resale
func (h *Handlers) SearchListings(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))

	listings, err := h.services.Tickets.SearchListings(c.Request.Context(),
		c.Query("q"), c.Query("event_id"), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

// VerifyTicket checks a ticket code at the gate, optionally admitting it.
// POST /api/tickets/verify
func (h *Handlers) VerifyTicket(c *gin.Context) {
	var req models.VerifyTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.services.Tickets.Verify(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
