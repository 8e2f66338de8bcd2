package reporting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rubberworks/queuegate/internal/domain/models"
	"github.com/rubberworks/queuegate/internal/repository/sheets"
)

type stubLister struct {
	list  []models.BookingView
	token string
	err   error
}

func (s *stubLister) ListByDate(_ context.Context, token, _ string) ([]models.BookingView, error) {
	s.token = token
	return s.list, s.err
}

type memoryReports struct {
	saved map[string]models.DailyQueueReport
	err   error
}

func (m *memoryReports) SaveDailyReport(_ context.Context, r models.DailyQueueReport) error {
	if m.err != nil {
		return m.err
	}
	if m.saved == nil {
		m.saved = map[string]models.DailyQueueReport{}
	}
	m.saved[r.Date] = r
	return nil
}

func (m *memoryReports) GetDailyReport(_ context.Context, date string) (*models.DailyQueueReport, error) {
	r, ok := m.saved[date]
	if !ok {
		return nil, errors.New("missing")
	}
	return &r, nil
}

type memorySheet struct {
	sheets.Repository
	rows [][]interface{}
}

func (m *memorySheet) EnsureHeader(_ context.Context, _ string, header []interface{}) error {
	if len(m.rows) == 0 {
		m.rows = append(m.rows, header)
	}
	return nil
}

func (m *memorySheet) AppendIfAbsent(_ context.Context, _ string, values []interface{}) (bool, error) {
	if sheets.HasKey(m.rows, values[0]) {
		return false, nil
	}
	m.rows = append(m.rows, values)
	return true, nil
}

type recordingNotifier struct {
	sent []models.OutboundMessageRequest
	err  error
}

func (r *recordingNotifier) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	r.sent = append(r.sent, req)
	return r.err
}

func f(v float64) *float64 { return &v }

func sampleDay() []models.BookingView {
	bookings := []models.Booking{
		{ID: "1", SupplierCode: "S1"},
		{ID: "2", SupplierCode: "S1", CheckInTime: "08:00"},
		{ID: "3", SupplierCode: "S2", CheckInTime: "08:00", DrainStartTime: "08:10"},
		{ID: "4", SupplierName: "Somchai", CheckInTime: "08:00", DrainStartTime: "08:10", DrainStopTime: "08:30", WeightIn: f(12000.5)},
		{ID: "5", SupplierCode: "S3", CheckInTime: "08:00", DrainStartTime: "08:10", DrainStopTime: "08:30", WeightInHead: f(8000), WeightInTrailer: f(7000), WeightOut: f(9000)},
	}
	out := make([]models.BookingView, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.View())
	}
	return out
}

func TestAggregateCountsStagesAndWeights(t *testing.T) {
	r := Aggregate("2024-05-01", sampleDay())

	if r.TotalBookings != 5 || r.Pending != 1 || r.CheckedIn != 1 || r.InProgress != 2 || r.Completed != 1 {
		t.Fatalf("unexpected counts %+v", r)
	}
	if r.Suppliers != 4 {
		t.Errorf("suppliers = %d, want 4", r.Suppliers)
	}
	if r.TotalWeightIn != 27000.5 || r.TotalWeightOut != 9000 || r.NetWeight != 6000 {
		t.Errorf("unexpected weights in=%v out=%v net=%v", r.TotalWeightIn, r.TotalWeightOut, r.NetWeight)
	}
}

func TestRunDailyDeliversToEverySink(t *testing.T) {
	lister := &stubLister{list: sampleDay()}
	store := &memoryReports{}
	sheet := &memorySheet{}
	notifier := &recordingNotifier{}

	svc := NewService(lister, Options{Store: store, Sheet: sheet, Notifier: notifier, Recipient: "66800000000", Location: time.UTC}, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC) }

	for i := 0; i < 2; i++ {
		if _, err := svc.RunDaily(context.Background(), "upstream-token", "2024-05-01"); err != nil {
			t.Fatal(err)
		}
	}

	if lister.token != "upstream-token" {
		t.Errorf("report must list bookings with the caller's token, got %q", lister.token)
	}
	if _, ok := store.saved["2024-05-01"]; !ok {
		t.Error("report not stored")
	}
	if len(sheet.rows) != 2 {
		t.Errorf("expected header plus one row after rerun, got %d rows", len(sheet.rows))
	}
	if len(notifier.sent) != 2 || notifier.sent[0].To != "66800000000" {
		t.Fatalf("unexpected notifications %+v", notifier.sent)
	}
	if !strings.Contains(notifier.sent[0].Message, "Net: 6000.00 kg") {
		t.Errorf("summary missing net weight: %s", notifier.sent[0].Message)
	}
}

func TestRunDailyReturnsFirstSinkError(t *testing.T) {
	storeErr := errors.New("mongo down")
	notifier := &recordingNotifier{}
	svc := NewService(&stubLister{}, Options{Store: &memoryReports{err: storeErr}, Notifier: notifier, Recipient: "x"}, nil)

	report, err := svc.RunDaily(context.Background(), "tok", "2024-05-01")
	if !errors.Is(err, storeErr) || !errors.Is(err, ErrDelivery) {
		t.Fatalf("expected store error wrapped in ErrDelivery, got %v", err)
	}
	if report.Date != "2024-05-01" {
		t.Errorf("built report must be returned with a delivery error, got %+v", report)
	}
	if len(notifier.sent) != 1 {
		t.Error("later sinks must still run after a failure")
	}
}

func TestRunDailyStopsWhenListingFails(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := NewService(&stubLister{err: errors.New("upstream down")}, Options{Notifier: notifier, Recipient: "x"}, nil)

	_, err := svc.RunDaily(context.Background(), "tok", "2024-05-01")
	if err == nil || errors.Is(err, ErrDelivery) {
		t.Fatalf("expected a build error, got %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Error("nothing should be sent without a report")
	}
}

func TestStoredWithoutStore(t *testing.T) {
	svc := NewService(&stubLister{}, Options{}, nil)
	if _, err := svc.Stored(context.Background(), "2024-05-01"); !IsNotStored(err) {
		t.Fatalf("expected not stored, got %v", err)
	}
}
