package handler

import (
	"net/http"
	"strings"

	"bookkeeping-backend/internal/models"

	"github.com/gin-gonic/gin"
)

// UploadInvoices handles POST /api/invoices/upload?direction=income|expense
func (h *Handler) UploadInvoices(c *gin.Context) {
	dir := models.Direction(c.DefaultQuery("direction", string(models.DirectionIncome)))
	if dir != models.DirectionIncome && dir != models.DirectionExpense {
		c.JSON(http.StatusBadRequest, gin.H{"error": "direction must be income or expense"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	h.exclusive(c, func() {
		report, err := h.importer.ImportInvoices(c.Request.Context(), dir, file)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"file": header.Filename, "direction": dir, "report": report})
	})
}

// UploadBankMovements handles POST /api/bank/upload
func (h *Handler) UploadBankMovements(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	h.exclusive(c, func() {
		report, err := h.importer.ImportBankMovements(c.Request.Context(), file)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"file": header.Filename, "report": report})
	})
}

// ListInvoices handles GET /api/invoices
func (h *Handler) ListInvoices(c *gin.Context) {
	var statuses []string
	if v := c.Query("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				statuses = append(statuses, s)
			}
		}
	}

	items, err := h.invoices.Search(
		c.Request.Context(),
		c.Query("q"),
		models.Direction(c.Query("direction")),
		statuses,
	)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}
