package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"bookkeeping-backend/internal/config"
	handler "bookkeeping-backend/internal/handlers"
	"bookkeeping-backend/internal/repository"
	"bookkeeping-backend/internal/services/bwa"
	"bookkeeping-backend/internal/services/importer"
	"bookkeeping-backend/internal/services/matching"
	service "bookkeeping-backend/internal/services/reconciliation"
)

// RegisterRoutes wires repositories, services and handlers onto r.
// archiver may be nil.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, log zerolog.Logger, archiver bwa.Archiver) {
	invoiceRepo := repository.NewInvoiceRepository(db)
	bankRepo := repository.NewBankMovementRepository(db)
	reportRepo := repository.NewReportRepository(db)
	runRepo := repository.NewRunRepository(db)

	reconService := service.NewReconciliationService(
		db,
		invoiceRepo,
		bankRepo,
		runRepo,
		log,
	).WithScoring(matching.Config{
		AmountTolerance: cfg.MatchAmountTolerance,
		DateWindowDays:  cfg.MatchDateWindowDays,
	}, cfg.MatchMinScore)

	bwaService := bwa.NewService(db, invoiceRepo, bankRepo, reportRepo, log)
	if archiver != nil {
		bwaService.WithArchiver(archiver)
	}

	h := handler.NewHandler(
		reconService,
		bwaService,
		importer.New(invoiceRepo, bankRepo, log),
		invoiceRepo,
		log,
	)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	invoices := api.Group("/invoices")
	{
		invoices.POST("/upload", h.UploadInvoices)
		invoices.GET("", h.ListInvoices)
	}

	bank := api.Group("/bank")
	{
		bank.POST("/upload", h.UploadBankMovements)
		bank.GET("", h.ListMovements)
		bank.POST("/:id/match", h.ManualMatchMovement)
	}

	reports := api.Group("/reports")
	{
		reports.POST("/bwa", h.GenerateReport)
		reports.GET("/bwa", h.GetReport)
		reports.GET("/bwa/export", h.ExportReport)
	}

	recon := api.Group("/reconciliation")
	{
		recon.POST("/run", h.RunReconciliation)
		recon.GET("/runs/:id", h.GetRun)
	}
}
