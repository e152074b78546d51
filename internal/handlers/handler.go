package handler

import (
	"errors"
	"net/http"
	"sync"

	"bookkeeping-backend/internal/repository"
	"bookkeeping-backend/internal/services/bwa"
	"bookkeeping-backend/internal/services/importer"
	service "bookkeeping-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Handler serves the bookkeeping API. Imports, BWA runs and reconciliation
// runs share one lock: none of them tolerates a concurrent writer.
type Handler struct {
	recon    *service.ReconciliationService
	reports  *bwa.Service
	importer *importer.Importer
	invoices *repository.InvoiceRepository
	log      zerolog.Logger

	runMu sync.Mutex
}

func NewHandler(
	recon *service.ReconciliationService,
	reports *bwa.Service,
	imp *importer.Importer,
	invoices *repository.InvoiceRepository,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		recon:    recon,
		reports:  reports,
		importer: imp,
		invoices: invoices,
		log:      log,
	}
}

// ErrRunInProgress is returned when an import or run is already executing.
var ErrRunInProgress = errors.New("another run is in progress")

// exclusive runs fn while holding the run lock, or answers 409 when another
// run is in progress.
func (h *Handler) exclusive(c *gin.Context, fn func()) {
	if !h.runMu.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"error": ErrRunInProgress.Error()})
		return
	}
	defer h.runMu.Unlock()
	fn()
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var verr *bwa.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    "source data invalid, nothing was written",
			"messages": verr.Messages,
		})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrAlreadyConsumed), errors.Is(err, service.ErrInvoicePaid):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDirectionMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
