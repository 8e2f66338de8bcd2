package bookings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rubberworks/queuegate/internal/domain/models"
	"github.com/rubberworks/queuegate/pkg/clients/backend"
)

// fakeUpstream models a backend whose events view lags behind writes until synced.
type fakeUpstream struct {
	backend.Client

	mu       sync.Mutex
	nextID   int
	records  map[string]models.Record
	visible  map[string]bool
	updates  []models.Record
	createFn func(body models.Record) error
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{records: map[string]models.Record{}, visible: map[string]bool{}}
}

func (f *fakeUpstream) sync() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := range f.records {
		f.visible[id] = true
	}
}

func (f *fakeUpstream) NextSequence(_ context.Context, _, date, start string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 1
	for _, r := range f.records {
		if r.String("date") == date && r.String("start_time") == start {
			n++
		}
	}
	return n, nil
}

func (f *fakeUpstream) CreateBooking(_ context.Context, _ string, body models.Record) (models.Record, error) {
	if f.createFn != nil {
		if err := f.createFn(body); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("bk-%d", f.nextID)
	f.records[id] = body.Merge(models.Record{"id": id})
	return models.Record{"id": id}, nil
}

func (f *fakeUpstream) BookingEvents(_ context.Context, _, date string) ([]models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Record
	for id, r := range f.records {
		if !f.visible[id] || r.String("date") != date {
			continue
		}
		out = append(out, models.Record{
			"id":    id,
			"title": r.String("supplier_name"),
			"start": r.String("date") + "T" + r.String("start_time") + ":00",
			"extendedProps": map[string]any{
				"booking_code": r.String("booking_code"),
				"sequence":     r["sequence"],
				"source":       "upstream",
			},
		})
	}
	return out, nil
}

func (f *fakeUpstream) GetBooking(_ context.Context, _, id string) (models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok || !f.visible[id] {
		return nil, &backend.APIError{StatusCode: http.StatusNotFound, Message: "not found"}
	}
	return r.Merge(nil), nil
}

func (f *fakeUpstream) UpdateBooking(_ context.Context, _, id string, body models.Record) (models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil, &backend.APIError{StatusCode: http.StatusNotFound, Message: "not found"}
	}
	f.updates = append(f.updates, body)
	f.records[id] = r.Merge(body)
	return f.records[id].Merge(nil), nil
}

func (f *fakeUpstream) DeleteBooking(_ context.Context, _, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return &backend.APIError{StatusCode: http.StatusNotFound, Message: "not found"}
	}
	delete(f.records, id)
	delete(f.visible, id)
	return nil
}

func newTestService(up *fakeUpstream) *Service {
	svc := NewService(up, NewCache(true), nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func bookingBody(date, start, supplier string) models.Record {
	return models.Record{"date": date, "start_time": start, "supplier_name": supplier, "truck_type": "6-wheel"}
}

func assertUniqueCodes(t *testing.T, list []models.BookingView) {
	t.Helper()
	seen := map[string]bool{}
	for _, b := range list {
		if seen[b.BookingCode] {
			t.Fatalf("duplicate booking_code %s in %+v", b.BookingCode, list)
		}
		seen[b.BookingCode] = true
	}
}

func TestCreateAssignsSequenceAndCode(t *testing.T) {
	up := newFakeUpstream()
	svc := newTestService(up)
	ctx := context.Background()

	first, err := svc.Create(ctx, "tok", bookingBody("2024-05-01", "8:00", "A"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Create(ctx, "tok", bookingBody("2024-05-01", "08:00", "B"))
	if err != nil {
		t.Fatal(err)
	}
	if first.BookingCode != "20240501-0800-01" || second.BookingCode != "20240501-0800-02" {
		t.Fatalf("codes = %s, %s", first.BookingCode, second.BookingCode)
	}
	if first.ID == "" || first.Stage != models.StageBooked {
		t.Fatalf("unexpected view %+v", first)
	}
}

func TestCreateRejectsMalformedSlot(t *testing.T) {
	svc := newTestService(newFakeUpstream())
	_, err := svc.Create(context.Background(), "tok", models.Record{"date": "01/05/2024", "start_time": "08:00"})
	if !errors.Is(err, ErrInvalidBooking) {
		t.Fatalf("expected ErrInvalidBooking, got %v", err)
	}
}

func TestListByDateMergesCacheWithoutDuplicates(t *testing.T) {
	up := newFakeUpstream()
	svc := newTestService(up)
	ctx := context.Background()

	for _, supplier := range []string{"A", "B"} {
		if _, err := svc.Create(ctx, "tok", bookingBody("2024-05-01", "08:00", supplier)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.Create(ctx, "tok", bookingBody("2024-05-02", "08:00", "C")); err != nil {
		t.Fatal(err)
	}

	lagging, err := svc.ListByDate(ctx, "tok", "2024-05-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(lagging) != 2 {
		t.Fatalf("expected 2 cached bookings while upstream lags, got %d", len(lagging))
	}

	up.sync()
	synced, err := svc.ListByDate(ctx, "tok", "2024-05-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(synced) != 2 {
		t.Fatalf("expected 2 bookings after sync, got %d: %+v", len(synced), synced)
	}
	assertUniqueCodes(t, synced)
}

func TestDeleteRemovesFromCacheAndList(t *testing.T) {
	up := newFakeUpstream()
	svc := newTestService(up)
	ctx := context.Background()

	created, err := svc.Create(ctx, "tok", bookingBody("2024-05-01", "10:00", "A"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, "tok", bookingBody("2024-05-01", "10:00", "B")); err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, "tok", created.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := svc.cache.Find(created.ID); ok {
		t.Fatal("deleted booking still cached")
	}

	for _, synced := range []bool{false, true} {
		if synced {
			up.sync()
		}
		list, err := svc.ListByDate(ctx, "tok", "2024-05-01")
		if err != nil {
			t.Fatal(err)
		}
		for _, b := range list {
			if b.ID == created.ID || b.BookingCode == created.BookingCode {
				t.Fatalf("deleted booking listed (synced=%v): %+v", synced, b)
			}
		}
		if len(list) != 1 {
			t.Fatalf("expected 1 booking (synced=%v), got %d", synced, len(list))
		}
	}
}

func TestDeleteUnknownIDPassesUpstreamStatus(t *testing.T) {
	svc := newTestService(newFakeUpstream())
	err := svc.Delete(context.Background(), "tok", "missing")
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected upstream 404, got %v", err)
	}
}

func TestCreateConflictIsNotCached(t *testing.T) {
	up := newFakeUpstream()
	up.createFn = func(models.Record) error {
		return &backend.APIError{StatusCode: http.StatusConflict, Message: "slot full"}
	}
	svc := newTestService(up)

	_, err := svc.Create(context.Background(), "tok", bookingBody("2024-05-01", "08:00", "A"))
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
	if svc.cache.Len() != 0 {
		t.Fatal("failed create must not be cached")
	}
}

func TestPerformEnforcesLifecycle(t *testing.T) {
	up := newFakeUpstream()
	svc := newTestService(up)
	ctx := context.Background()

	created, err := svc.Create(ctx, "tok", bookingBody("2024-05-01", "08:00", "A"))
	if err != nil {
		t.Fatal(err)
	}

	// Upstream has not caught up yet, the cache serves the booking.
	view, err := svc.CheckIn(ctx, "tok", created.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if view.Stage != models.StageCheckedIn {
		t.Fatalf("stage = %s", view.Stage)
	}
	up.sync()

	weight := 9000.0
	_, err = svc.Perform(ctx, "tok", created.ID, models.ActionWeightOut, LifecycleInput{Weighing: models.Weighing{Total: &weight}})
	if !errors.Is(err, models.ErrLifecycleOrder) {
		t.Fatalf("expected ErrLifecycleOrder, got %v", err)
	}
	if len(up.updates) != 1 {
		t.Fatalf("refused step must not reach upstream, updates=%v", up.updates)
	}

	if _, err := svc.StartDrain(ctx, "tok", created.ID, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.StopDrain(ctx, "tok", created.ID, nil); err != nil {
		t.Fatal(err)
	}
	in := 15000.0
	if _, err := svc.WeighIn(ctx, "tok", created.ID, models.Weighing{Total: &in}); err != nil {
		t.Fatal(err)
	}
	done, err := svc.WeighOut(ctx, "tok", created.ID, models.Weighing{Total: &weight})
	if err != nil {
		t.Fatal(err)
	}
	if done.Stage != models.StageCompleted || done.NetWeight == nil || *done.NetWeight != 6000 {
		t.Fatalf("unexpected final view %+v", done)
	}
}
