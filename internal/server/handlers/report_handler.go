package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rubberworks/queuegate/internal/domain/models"
	"github.com/rubberworks/queuegate/internal/service/reporting"
)

// Reporter is the reporting surface exposed over HTTP.
type Reporter interface {
	Today() string
	BuildDailyReport(ctx context.Context, token, date string) (models.DailyQueueReport, error)
	RunDaily(ctx context.Context, token, date string) (models.DailyQueueReport, error)
	Stored(ctx context.Context, date string) (*models.DailyQueueReport, error)
}

// ReportHandler serves the daily queue report.
type ReportHandler struct {
	svc    Reporter
	logger *zap.Logger
}

// NewReportHandler constructs the report handler.
func NewReportHandler(svc Reporter, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{svc: svc, logger: logger}
}

func (h *ReportHandler) date(c *gin.Context) (string, bool) {
	date := c.Query("date")
	if date == "" {
		return h.svc.Today(), true
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		badRequest(c, "date must be YYYY-MM-DD")
		return "", false
	}
	return date, true
}

// Daily computes the report for ?date=, or returns the stored snapshot with ?source=stored.
func (h *ReportHandler) Daily(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}

	if c.Query("source") == "stored" {
		report, err := h.svc.Stored(c.Request.Context(), date)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, report)
		return
	}

	report, err := h.svc.BuildDailyReport(c.Request.Context(), upstreamToken(c), date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// RunDaily delivers the report for ?date= to every configured sink now.
func (h *ReportHandler) RunDaily(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}

	report, err := h.svc.RunDaily(c.Request.Context(), upstreamToken(c), date)
	if err != nil {
		if !errors.Is(err, reporting.ErrDelivery) {
			respondError(c, h.logger, err)
			return
		}
		h.logger.Error("manual daily report delivery failed", zap.String("date", date), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusAccepted, report)
}
