package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"ticketer/internal/models"
)

// setupRouter wires the handlers without backing services; only request
// validation paths are exercised here.
func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandlers(nil)

	r := gin.New()
	api := r.Group("/api")
	{
		api.POST("/payments/notification", h.HandleNotification)
		api.POST("/tickets/buy/new", h.BuyNew)
		api.POST("/tickets/buy/resale", h.BuyResale)
		api.POST("/tickets/resale", h.ListResale)
		api.POST("/wallet/withdraw", h.Withdraw)
		api.POST("/wallet/fund", h.Fund)
	}
	return r
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	jsonBody, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleNotificationRequiresReference(t *testing.T) {
	r := setupRouter()

	w := postJSON(r, "/api/payments/notification", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "reference is required", response["error"])
}

func TestBuyNewValidation(t *testing.T) {
	r := setupRouter()

	tests := []struct {
		name string
		body models.BuyNewRequest
	}{
		{"missing event", models.BuyNewRequest{CategoryID: "cat-1", Quantity: 1}},
		{"missing category", models.BuyNewRequest{EventID: "event-1", Quantity: 1}},
		{"zero quantity", models.BuyNewRequest{EventID: "event-1", CategoryID: "cat-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(r, "/api/tickets/buy/new", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestBuyResaleRequiresTickets(t *testing.T) {
	r := setupRouter()

	w := postJSON(r, "/api/tickets/buy/resale", models.BuyResaleRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListResaleRequiresPayoutDestination(t *testing.T) {
	r := setupRouter()

	tests := []struct {
		name string
		body models.ListResaleRequest
	}{
		{"missing bank code", models.ListResaleRequest{TicketIDs: []string{"tkt-1"}, Price: 2000, AccountNumber: "0123456789"}},
		{"missing account number", models.ListResaleRequest{TicketIDs: []string{"tkt-1"}, Price: 2000, BankCode: "058"}},
		{"zero price", models.ListResaleRequest{TicketIDs: []string{"tkt-1"}, BankCode: "058", AccountNumber: "0123456789"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(r, "/api/tickets/resale", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestWithdrawValidation(t *testing.T) {
	r := setupRouter()

	tests := []struct {
		name string
		body models.WithdrawRequest
	}{
		{"missing pin", models.WithdrawRequest{Amount: 1000, BankCode: "058", AccountNumber: "0123456789"}},
		{"missing amount", models.WithdrawRequest{Pin: "1234", BankCode: "058", AccountNumber: "0123456789"}},
		{"missing destination", models.WithdrawRequest{Amount: 1000, Pin: "1234"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(r, "/api/wallet/withdraw", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestFundRequiresPositiveAmount(t *testing.T) {
	r := setupRouter()

	w := postJSON(r, "/api/wallet/fund", models.FundRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
