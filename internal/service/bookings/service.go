package bookings

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/rubberworks/queuegate/internal/domain/models"
	"github.com/rubberworks/queuegate/pkg/clients/backend"
)

// ErrInvalidBooking indicates a request the gateway refuses before calling upstream.
var ErrInvalidBooking = errors.New("invalid booking")

// LifecycleInput carries the optional values submitted with a lifecycle action.
type LifecycleInput struct {
	At       *time.Time
	Weighing models.Weighing
}

// Manager is the booking surface used by handlers, reporting and export.
type Manager interface {
	Create(ctx context.Context, token string, body models.Record) (models.BookingView, error)
	ListByDate(ctx context.Context, token, date string) ([]models.BookingView, error)
	List(ctx context.Context, token string, query url.Values) ([]models.BookingView, error)
	Get(ctx context.Context, token, id string) (models.BookingView, error)
	Update(ctx context.Context, token, id string, body models.Record) (models.BookingView, error)
	Delete(ctx context.Context, token, id string) error
	NextSequence(ctx context.Context, token, date, startTime string) (int, error)
	Perform(ctx context.Context, token, id string, action models.Action, input LifecycleInput) (models.BookingView, error)
}

// Service forwards booking operations upstream and keeps the dev cache in step.
type Service struct {
	client backend.Client
	cache  *Cache
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires the booking service.
func NewService(client backend.Client, cache *Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewCache(false)
	}
	return &Service{
		client: client,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// Create validates the slot, assigns a sequence and booking code when missing, forwards the
// booking upstream and remembers it locally.
func (s *Service) Create(ctx context.Context, token string, body models.Record) (models.BookingView, error) {
	body = body.Merge(nil)

	date, start, ok := models.NormalizeSlot(body.String("date", "booking_date"), body.String("start_time", "startTime"))
	if !ok {
		return models.BookingView{}, fmt.Errorf("%w: date (YYYY-MM-DD) and start_time (HH:MM) are required", ErrInvalidBooking)
	}
	body["date"] = date
	body["start_time"] = start

	seq, ok := body.Int("sequence", "seq")
	if !ok || seq <= 0 {
		next, err := s.client.NextSequence(ctx, token, date, start)
		if err != nil {
			return models.BookingView{}, fmt.Errorf("resolve next sequence: %w", err)
		}
		seq = next
	}
	body["sequence"] = seq

	if body.String("booking_code", "bookingCode") == "" {
		body["booking_code"] = models.BuildBookingCode(date, start, seq)
	}

	created, err := s.client.CreateBooking(ctx, token, body)
	if err != nil {
		return models.BookingView{}, err
	}

	id := created.String("id", "_id", "booking_id", "bookingId")
	entry := body.Merge(models.Record{
		"id":         id,
		"created_at": s.now().UTC().Format(time.RFC3339),
	})
	s.cache.Add(entry)

	s.logger.Info("booking created",
		zap.String("id", id),
		zap.String("booking_code", entry.String("booking_code")),
		zap.String("date", date))

	return models.FromRecord(entry.Merge(created)).View(), nil
}

// ListByDate merges the upstream events view with cached bookings for date. Upstream
// entries come first, so they win over cached duplicates.
func (s *Service) ListByDate(ctx context.Context, token, date string) ([]models.BookingView, error) {
	day, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidBooking)
	}
	date = day.Format(models.DateLayout)

	events, err := s.client.BookingEvents(ctx, token, date)
	if err != nil {
		return nil, err
	}

	merged := make([]models.Booking, 0, len(events))
	for _, event := range events {
		merged = append(merged, models.FromEvent(event))
	}
	cached := s.cache.ForDate(date)
	merged = append(merged, cached...)

	deduped := models.Dedup(merged)
	s.logger.Debug("bookings listed",
		zap.String("date", date),
		zap.Int("upstream", len(events)),
		zap.Int("cached", len(cached)),
		zap.Int("returned", len(deduped)))

	return views(deduped), nil
}

// List forwards an arbitrary list query upstream and normalises the result.
func (s *Service) List(ctx context.Context, token string, query url.Values) ([]models.BookingView, error) {
	records, err := s.client.ListBookings(ctx, token, query)
	if err != nil {
		return nil, err
	}
	list := make([]models.Booking, 0, len(records))
	for _, r := range records {
		list = append(list, models.FromRecord(r))
	}
	return views(list), nil
}

// Get loads a booking, falling back to the cache while upstream has not caught up.
func (s *Service) Get(ctx context.Context, token, id string) (models.BookingView, error) {
	record, err := s.load(ctx, token, id)
	if err != nil {
		return models.BookingView{}, err
	}
	return models.FromRecord(record).View(), nil
}

func (s *Service) load(ctx context.Context, token, id string) (models.Record, error) {
	record, err := s.client.GetBooking(ctx, token, id)
	if err == nil {
		return record, nil
	}
	if backend.IsNotFound(err) {
		if cached, ok := s.cache.Find(id); ok {
			s.logger.Debug("booking served from cache", zap.String("id", id))
			return cached, nil
		}
	}
	return nil, err
}

// Update forwards the update and patches the cached copy when there is one.
func (s *Service) Update(ctx context.Context, token, id string, body models.Record) (models.BookingView, error) {
	updated, err := s.client.UpdateBooking(ctx, token, id, body)
	if err != nil {
		return models.BookingView{}, err
	}
	s.cache.Patch(id, body)

	merged := body.Merge(updated)
	if merged.String("id", "_id") == "" {
		merged["id"] = id
	}
	return models.FromRecord(merged).View(), nil
}

// Delete forwards the delete and drops the cached copy when there is one.
func (s *Service) Delete(ctx context.Context, token, id string) error {
	if err := s.client.DeleteBooking(ctx, token, id); err != nil {
		return err
	}
	if s.cache.Remove(id) {
		s.logger.Debug("cached booking removed", zap.String("id", id))
	}
	s.logger.Info("booking deleted", zap.String("id", id))
	return nil
}

// NextSequence asks upstream for the next sequence in a slot.
func (s *Service) NextSequence(ctx context.Context, token, date, startTime string) (int, error) {
	date, start, ok := models.NormalizeSlot(date, startTime)
	if !ok {
		return 0, fmt.Errorf("%w: date (YYYY-MM-DD) and start_time (HH:MM) are required", ErrInvalidBooking)
	}
	return s.client.NextSequence(ctx, token, date, start)
}

// Perform records a lifecycle step after checking its prerequisites.
func (s *Service) Perform(ctx context.Context, token, id string, action models.Action, input LifecycleInput) (models.BookingView, error) {
	record, err := s.load(ctx, token, id)
	if err != nil {
		return models.BookingView{}, err
	}

	booking := models.FromRecord(record)
	at := s.now()
	if input.At != nil {
		at = *input.At
	}

	patch, err := booking.Apply(action, at, input.Weighing)
	if err != nil {
		return models.BookingView{}, err
	}

	updated, err := s.client.UpdateBooking(ctx, token, id, patch)
	if err != nil {
		return models.BookingView{}, err
	}
	s.cache.Patch(id, patch)

	s.logger.Info("booking lifecycle recorded",
		zap.String("id", id),
		zap.String("action", string(action)),
		zap.String("stage", string(booking.Stage())))

	return models.FromRecord(record.Merge(patch).Merge(updated)).View(), nil
}

func views(list []models.Booking) []models.BookingView {
	out := make([]models.BookingView, 0, len(list))
	for _, b := range list {
		out = append(out, b.View())
	}
	return out
}

// CheckIn records the truck arrival. A nil at stamps the current time.
func (s *Service) CheckIn(ctx context.Context, token, id string, at *time.Time) (models.BookingView, error) {
	return s.Perform(ctx, token, id, models.ActionCheckIn, LifecycleInput{At: at})
}

// StartDrain opens the draining window. The booking must be checked in.
func (s *Service) StartDrain(ctx context.Context, token, id string, at *time.Time) (models.BookingView, error) {
	return s.Perform(ctx, token, id, models.ActionDrainStart, LifecycleInput{At: at})
}

// StopDrain closes the draining window opened by StartDrain. A stop
// earlier than the recorded start is refused.
func (s *Service) StopDrain(ctx context.Context, token, id string, at *time.Time) (models.BookingView, error) {
	return s.Perform(ctx, token, id, models.ActionDrainStop, LifecycleInput{At: at})
}

// WeighIn stores the inbound weighing. The booking must be checked in.
func (s *Service) WeighIn(ctx context.Context, token, id string, w models.Weighing) (models.BookingView, error) {
	return s.Perform(ctx, token, id, models.ActionWeightIn, LifecycleInput{Weighing: w})
}

// WeighOut stores the outbound weighing, which completes the booking. It
// requires check-in, both drain stamps and the inbound weighing, and may not
// exceed the inbound total.
func (s *Service) WeighOut(ctx context.Context, token, id string, w models.Weighing) (models.BookingView, error) {
	return s.Perform(ctx, token, id, models.ActionWeightOut, LifecycleInput{Weighing: w})
}
