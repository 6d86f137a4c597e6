package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/YelzhanWeb/lunchbox/internal/adapter/logger"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

// CatalogHandler serves the menu, the orderable dates and the kitchen view.
type CatalogHandler struct {
	menu    interfaces.MenuService
	kitchen interfaces.KitchenService
	logger  logger.Logger
}

func NewCatalogHandler(menu interfaces.MenuService, kitchen interfaces.KitchenService, logger logger.Logger) *CatalogHandler {
	return &CatalogHandler{menu: menu, kitchen: kitchen, logger: logger}
}

func (h *CatalogHandler) GetMenu(c *gin.Context) {
	date := c.Query("date")
	items, err := h.menu.MenuForDate(c.Request.Context(), queryCredentials(c), date)
	if err != nil {
		respondError(c, h.logger, "menu_lookup_failed", err)
		return
	}

	out := make([]gin.H, 0, len(items))
	for _, it := range items {
		out = append(out, gin.H{
			"id":       it.ID,
			"name":     it.Name,
			"category": it.Category,
			"price":    it.Price.String(),
		})
	}
	respondOK(c, http.StatusOK, gin.H{"date": date, "items": out})
}

func (h *CatalogHandler) GetDates(c *gin.Context) {
	dates, err := h.menu.AvailableDates(c.Request.Context(), queryCredentials(c))
	if err != nil {
		respondError(c, h.logger, "dates_lookup_failed", err)
		return
	}

	out := make([]gin.H, 0, len(dates))
	for _, d := range dates {
		out = append(out, gin.H{"date": d.Date, "window": windowJSON(d.Window)})
	}
	respondOK(c, http.StatusOK, gin.H{"dates": out})
}

func (h *CatalogHandler) GetKitchenSummary(c *gin.Context) {
	sum, err := h.kitchen.Summary(c.Request.Context(), c.Query("date"))
	if err != nil {
		respondError(c, h.logger, "kitchen_summary_failed", err)
		return
	}

	dishes := make([]gin.H, 0, len(sum.Dishes))
	for _, d := range sum.Dishes {
		dishes = append(dishes, gin.H{
			"itemId":   d.ItemID,
			"name":     d.Name,
			"category": d.Category,
			"quantity": d.Quantity,
		})
	}
	respondOK(c, http.StatusOK, gin.H{
		"date":        sum.Date,
		"orders":      sum.Orders,
		"mealBoxes":   sum.MealBoxes,
		"dishes":      dishes,
		"generatedAt": sum.GeneratedAt.Format(time.RFC3339),
	})
}
