package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kiwitweaks/commerce-api/internal/transport/http/middleware"
	"github.com/kiwitweaks/commerce-api/internal/usecase"
)

// OrderHandler exposes order listing, lookup, and manual creation.
type OrderHandler struct {
	orders *usecase.OrderService
}

// NewOrderHandler builds an OrderHandler.
func NewOrderHandler(orders *usecase.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

var orderErrorCases = []ErrorCase{
	{Err: usecase.ErrOrderNotFound, Status: http.StatusNotFound, Code: CodeNotFound, Message: "order not found"},
	{Err: usecase.ErrProductUnknown, Status: http.StatusBadRequest, Code: CodeValidation, Message: "unknown product"},
	{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Code: CodeNotFound, Message: "account not found"},
}

// List returns the authenticated user's orders, newest first.
func (h *OrderHandler) List(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, CodeAuthentication, "authentication required")
		return
	}

	orders, err := h.orders.List(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, orderErrorCases)
		return
	}

	summaries := make([]OrderSummary, 0, len(orders))
	for _, order := range orders {
		summaries = append(summaries, NewOrderSummary(order))
	}
	RespondData(c, http.StatusOK, summaries)
}

// Get returns a single order. Orders belonging to other accounts are reported
// as not found.
func (h *OrderHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, CodeAuthentication, "authentication required")
		return
	}

	order, err := h.orders.Get(c.Request.Context(), userID, c.Param("order_id"))
	if err != nil {
		RespondWithMappedError(c, err, orderErrorCases)
		return
	}

	RespondData(c, http.StatusOK, NewOrderSummary(*order))
}

// Create records an order for an already issued license.
func (h *OrderHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, CodeAuthentication, "authentication required")
		return
	}

	var req CreateOrderRequest
	if !BindJSON(c, &req) {
		return
	}

	order, err := h.orders.Create(c.Request.Context(), usecase.CreateOrderInput{
		UserID:     userID,
		ProductID:  req.ProductID,
		LicenseKey: req.LicenseKey,
	})
	if err != nil {
		RespondWithMappedError(c, err, orderErrorCases)
		return
	}

	RespondData(c, http.StatusCreated, NewOrderSummary(*order))
}
