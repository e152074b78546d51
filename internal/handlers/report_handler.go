package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GenerateReport handles POST /api/reports/bwa
func (h *Handler) GenerateReport(c *gin.Context) {
	year := 0
	if v := c.Query("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1900 || y > 2999 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return
		}
		year = y
	}

	h.exclusive(c, func() {
		res, err := h.reports.Generate(c.Request.Context(), year)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"rows":     res.Rows,
			"warnings": res.Warnings,
		})
	})
}

// GetReport handles GET /api/reports/bwa
func (h *Handler) GetReport(c *gin.Context) {
	rows, err := h.reports.Report(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// ExportReport handles GET /api/reports/bwa/export
func (h *Handler) ExportReport(c *gin.Context) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="bwa.csv"`)
	c.Status(http.StatusOK)

	if err := h.reports.Export(c.Request.Context(), c.Writer); err != nil {
		h.log.Error().Err(err).Msg("export BWA")
	}
}
