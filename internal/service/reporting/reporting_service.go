package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rubberworks/queuegate/internal/domain/models"
	"github.com/rubberworks/queuegate/internal/repository/mongodb"
	"github.com/rubberworks/queuegate/internal/repository/sheets"
)

const dailyQueueRange = "DailyQueue!A:J"

// ErrDelivery marks a report that was built but not delivered to every sink.
var ErrDelivery = errors.New("daily report delivery failed")

var dailyQueueHeader = []interface{}{
	"date", "total_bookings", "pending", "checked_in", "in_progress", "completed",
	"suppliers", "total_weight_in", "total_weight_out", "net_weight",
}

// BookingLister is the slice of the booking service the report needs.
type BookingLister interface {
	ListByDate(ctx context.Context, token, date string) ([]models.BookingView, error)
}

// Notifier delivers the formatted summary.
type Notifier interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Options selects the optional report sinks. Nil sinks are skipped.
type Options struct {
	Store     mongodb.Repository
	Sheet     sheets.Repository
	Notifier  Notifier
	Recipient string
	Location  *time.Location
}

// Service builds daily queue reports and pushes them to the configured sinks.
type Service struct {
	bookings  BookingLister
	store     mongodb.Repository
	sheet     sheets.Repository
	notifier  Notifier
	recipient string
	location  *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a new reporting service instance.
func NewService(bookings BookingLister, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		bookings:  bookings,
		store:     opts.Store,
		sheet:     opts.Sheet,
		notifier:  opts.Notifier,
		recipient: opts.Recipient,
		location:  loc,
		logger:    logger,
		now:       time.Now,
	}
}

// Today returns the current date in the report time zone.
func (s *Service) Today() string {
	return s.now().In(s.location).Format(models.DateLayout)
}

// BuildDailyReport aggregates the merged booking list for date.
func (s *Service) BuildDailyReport(ctx context.Context, token, date string) (models.DailyQueueReport, error) {
	list, err := s.bookings.ListByDate(ctx, token, date)
	if err != nil {
		return models.DailyQueueReport{}, fmt.Errorf("list bookings for %s: %w", date, err)
	}

	report := Aggregate(date, list)
	report.CreatedAt = s.now().UTC()
	return report, nil
}

// Aggregate counts bookings per stage and sums their weights.
func Aggregate(date string, list []models.BookingView) models.DailyQueueReport {
	report := models.DailyQueueReport{Date: date, TotalBookings: len(list)}

	suppliers := make(map[string]struct{})
	weightIn, weightOut, net := decimal.Zero, decimal.Zero, decimal.Zero

	for _, b := range list {
		switch b.Stage {
		case models.StageBooked:
			report.Pending++
		case models.StageCheckedIn:
			report.CheckedIn++
		case models.StageDraining, models.StageDrained, models.StageWeighedIn:
			report.InProgress++
		case models.StageCompleted:
			report.Completed++
		}

		if key := supplierKey(b.Booking); key != "" {
			suppliers[key] = struct{}{}
		}
		if in, ok := b.TotalWeightIn(); ok {
			weightIn = weightIn.Add(in)
		}
		if out, ok := b.TotalWeightOut(); ok {
			weightOut = weightOut.Add(out)
		}
		if n, ok := b.Booking.NetWeight(); ok {
			net = net.Add(n)
		}
	}

	report.Suppliers = len(suppliers)
	report.TotalWeightIn = weightIn.Round(2).InexactFloat64()
	report.TotalWeightOut = weightOut.Round(2).InexactFloat64()
	report.NetWeight = net.Round(2).InexactFloat64()
	return report
}

func supplierKey(b models.Booking) string {
	for _, v := range []string{b.SupplierID, b.SupplierCode, b.SupplierName} {
		if v = strings.TrimSpace(v); v != "" {
			return strings.ToLower(v)
		}
	}
	return ""
}

// RunDaily builds the report for date with the given upstream token and delivers it to
// every enabled sink. Sink failures are logged; the first one is returned wrapped in
// ErrDelivery alongside the built report.
func (s *Service) RunDaily(ctx context.Context, token, date string) (models.DailyQueueReport, error) {
	report, err := s.BuildDailyReport(ctx, token, date)
	if err != nil {
		return models.DailyQueueReport{}, err
	}

	var errs []error

	if s.store != nil {
		if err := s.store.SaveDailyReport(ctx, report); err != nil {
			s.logger.Error("failed to store daily report", zap.String("date", date), zap.Error(err))
			errs = append(errs, err)
		}
	}

	if s.sheet != nil {
		if err := s.appendRow(ctx, report); err != nil {
			s.logger.Error("failed to append daily report row", zap.String("date", date), zap.Error(err))
			errs = append(errs, err)
		}
	}

	if s.notifier != nil && s.recipient != "" {
		req := models.OutboundMessageRequest{To: s.recipient, Message: FormatSummary(report)}
		if err := s.notifier.SendOutbound(ctx, req); err != nil {
			s.logger.Error("failed to send daily report", zap.String("date", date), zap.Error(err))
			errs = append(errs, fmt.Errorf("send daily report: %w", err))
		}
	}

	if len(errs) > 0 {
		return report, fmt.Errorf("%w: %w", ErrDelivery, errs[0])
	}

	s.logger.Info("daily report delivered",
		zap.String("date", date),
		zap.Int("total_bookings", report.TotalBookings),
		zap.Int("completed", report.Completed))
	return report, nil
}

func (s *Service) appendRow(ctx context.Context, report models.DailyQueueReport) error {
	if err := s.sheet.EnsureHeader(ctx, dailyQueueRange, dailyQueueHeader); err != nil {
		return err
	}
	written, err := s.sheet.AppendIfAbsent(ctx, dailyQueueRange, reportRow(report))
	if err != nil {
		return err
	}
	if !written {
		s.logger.Debug("daily report row already present", zap.String("date", report.Date))
	}
	return nil
}

func reportRow(r models.DailyQueueReport) []interface{} {
	return []interface{}{
		r.Date, r.TotalBookings, r.Pending, r.CheckedIn, r.InProgress, r.Completed,
		r.Suppliers, r.TotalWeightIn, r.TotalWeightOut, r.NetWeight,
	}
}

// Stored returns the persisted snapshot for date, or mongodb.ErrReportNotFound.
func (s *Service) Stored(ctx context.Context, date string) (*models.DailyQueueReport, error) {
	if s.store == nil {
		return nil, mongodb.ErrReportNotFound
	}
	return s.store.GetDailyReport(ctx, date)
}

// IsNotStored reports whether err means no snapshot exists.
func IsNotStored(err error) bool {
	return errors.Is(err, mongodb.ErrReportNotFound)
}

// FormatSummary renders the report as a short multi-line message.
func FormatSummary(r models.DailyQueueReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily queue report %s\n", r.Date)
	fmt.Fprintf(&b, "Bookings: %d (suppliers: %d)\n", r.TotalBookings, r.Suppliers)
	fmt.Fprintf(&b, "Waiting: %d | Checked in: %d | In progress: %d | Completed: %d\n",
		r.Pending, r.CheckedIn, r.InProgress, r.Completed)
	fmt.Fprintf(&b, "Weight in: %s kg\n", formatKg(r.TotalWeightIn))
	fmt.Fprintf(&b, "Weight out: %s kg\n", formatKg(r.TotalWeightOut))
	fmt.Fprintf(&b, "Net: %s kg", formatKg(r.NetWeight))
	return b.String()
}

func formatKg(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
