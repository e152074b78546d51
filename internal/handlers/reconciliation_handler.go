package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RunReconciliation handles POST /api/reconciliation/run
func (h *Handler) RunReconciliation(c *gin.Context) {
	h.exclusive(c, func() {
		stats, err := h.recon.Run(c.Request.Context())
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "reconciliation completed", "stats": stats})
	})
}

// GetRun handles GET /api/reconciliation/runs/:id
func (h *Handler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run ID"})
		return
	}

	run, logs, err := h.recon.GetRun(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run, "assignments": logs})
}

// ListMovements handles GET /api/bank
func (h *Handler) ListMovements(c *gin.Context) {
	var consumed *bool
	if v := c.Query("consumed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "consumed must be true or false"})
			return
		}
		consumed = &b
	}

	items, err := h.recon.Movements(c.Request.Context(), consumed)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// ManualMatchMovement handles POST /api/bank/:id/match
func (h *Handler) ManualMatchMovement(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bank movement ID"})
		return
	}

	var payload struct {
		InvoiceID string `json:"invoice_id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	invoiceID, err := uuid.Parse(payload.InvoiceID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}

	h.exclusive(c, func() {
		mv, err := h.recon.ManualMatch(c.Request.Context(), id, invoiceID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "bank movement manually matched", "movement": mv})
	})
}
