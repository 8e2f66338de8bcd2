package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rubberworks/queuegate/internal/domain/models"
	"github.com/rubberworks/queuegate/internal/export"
	"github.com/rubberworks/queuegate/internal/service/bookings"
)

// BookingHandler serves the booking resource and its lifecycle actions.
type BookingHandler struct {
	svc    bookings.Manager
	logger *zap.Logger
	now    func() time.Time
}

// NewBookingHandler constructs the booking handler.
func NewBookingHandler(svc bookings.Manager, logger *zap.Logger) *BookingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingHandler{svc: svc, logger: logger, now: time.Now}
}

// List returns the merged day list when a date is given, otherwise the upstream list.
func (h *BookingHandler) List(c *gin.Context) {
	token := upstreamToken(c)

	var (
		list []models.BookingView
		err  error
	)
	if date := c.Query("date"); date != "" {
		list, err = h.svc.ListByDate(c.Request.Context(), token, date)
	} else {
		list, err = h.svc.List(c.Request.Context(), token, c.Request.URL.Query())
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": list, "total": len(list)})
}

// Create forwards a new booking.
func (h *BookingHandler) Create(c *gin.Context) {
	var body models.Record
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	view, err := h.svc.Create(c.Request.Context(), upstreamToken(c), body)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// NextSequence returns the next free sequence for ?date=&start_time=.
func (h *BookingHandler) NextSequence(c *gin.Context) {
	start := c.Query("start_time")
	if start == "" {
		start = c.Query("startTime")
	}

	seq, err := h.svc.NextSequence(c.Request.Context(), upstreamToken(c), c.Query("date"), start)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	date, slot, _ := models.NormalizeSlot(c.Query("date"), start)
	c.JSON(http.StatusOK, gin.H{
		"sequence":     seq,
		"booking_code": models.BuildBookingCode(date, slot, seq),
	})
}

// Export streams the day list as an xlsx workbook.
func (h *BookingHandler) Export(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = h.now().Format(models.DateLayout)
	}

	list, err := h.svc.ListByDate(c.Request.Context(), upstreamToken(c), date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	f, err := export.BookingsWorkbook(date, list)
	if err != nil {
		h.logger.Error("failed building workbook", zap.String("date", date), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to build workbook"})
		return
	}
	defer f.Close()

	c.Header("Content-Type", export.ContentType)
	c.Header("Content-Disposition", "attachment; filename=\""+export.Filename(date)+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		h.logger.Error("failed writing workbook", zap.String("date", date), zap.Error(err))
	}
}

// Get returns a booking with its stage and available actions.
func (h *BookingHandler) Get(c *gin.Context) {
	view, err := h.svc.Get(c.Request.Context(), upstreamToken(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Update forwards a booking update.
func (h *BookingHandler) Update(c *gin.Context) {
	var body models.Record
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	view, err := h.svc.Update(c.Request.Context(), upstreamToken(c), c.Param("id"), body)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Delete forwards a booking delete.
func (h *BookingHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), upstreamToken(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type lifecycleRequest struct {
	At *time.Time `json:"at"`
	models.Weighing
}

// Lifecycle records the step named by the :action path segment.
func (h *BookingHandler) Lifecycle(c *gin.Context) {
	action, err := models.ParseAction(c.Param("action"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var req lifecycleRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request body")
		return
	}

	view, err := h.svc.Perform(c.Request.Context(), upstreamToken(c), c.Param("id"), action, bookings.LifecycleInput{
		At:       req.At,
		Weighing: req.Weighing,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
