package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kiwitweaks/commerce-api/internal/core/domain"
)

// ProductHandler serves the static product catalog.
type ProductHandler struct{}

// NewProductHandler builds a ProductHandler.
func NewProductHandler() *ProductHandler {
	return &ProductHandler{}
}

// List returns every purchasable product.
func (h *ProductHandler) List(c *gin.Context) {
	products := domain.Products()

	summaries := make([]ProductSummary, 0, len(products))
	for _, p := range products {
		summaries = append(summaries, ProductSummary{
			ID:         p.ID,
			Name:       p.Name,
			PriceCents: p.PriceCents,
			Tagline:    p.Tagline,
			Features:   p.Features,
		})
	}
	RespondData(c, http.StatusOK, summaries)
}
