package models

import "testing"

func TestBuildBookingCode(t *testing.T) {
	cases := []struct {
		date, start string
		seq         int
		want        string
	}{
		{"2024-05-01", "08:00", 3, "20240501-0800-03"},
		{"2024-05-01", "13:30:00", 12, "20240501-1330-12"},
		{"01/05/2024", "08:00", 1, ""},
		{"2024-05-01", "", 1, ""},
		{"2024-05-01", "08:00", 0, ""},
	}
	for _, tc := range cases {
		if got := BuildBookingCode(tc.date, tc.start, tc.seq); got != tc.want {
			t.Errorf("BuildBookingCode(%q, %q, %d) = %q, want %q", tc.date, tc.start, tc.seq, got, tc.want)
		}
	}
}

func TestFromRecordReadsAlternateKeys(t *testing.T) {
	r := Record{
		"_id":          float64(42),
		"bookingCode":  "20240501-0800-01",
		"bookingDate":  "2024-05-01T00:00:00Z",
		"startTime":    "08:00:00",
		"queueNo":      "1",
		"supplier":     map[string]any{"id": "s-9", "code": "SUP9", "first_name": "Somchai", "last_name": "Dee"},
		"truckType":    "พ่วง",
		"checkInTime":  "2024-05-01T08:05:00+07:00",
		"weightInHead": "12,000",
	}
	b := FromRecord(r)

	if b.ID != "42" {
		t.Errorf("id = %q", b.ID)
	}
	if b.BookingCode != "20240501-0800-01" || b.Date != "2024-05-01" || b.StartTime != "08:00" {
		t.Errorf("unexpected identity fields: %+v", b)
	}
	if b.Sequence != 1 {
		t.Errorf("sequence = %d", b.Sequence)
	}
	if b.SupplierID != "s-9" || b.SupplierCode != "SUP9" || b.SupplierName != "Somchai Dee" {
		t.Errorf("unexpected supplier fields: %+v", b)
	}
	if b.WeightInHead == nil || *b.WeightInHead != 12000 {
		t.Errorf("weight_in_head = %v", b.WeightInHead)
	}
	if !b.IsArticulated() {
		t.Error("expected articulated truck")
	}
}

func TestFromEventUsesStartAndExtendedProps(t *testing.T) {
	r := Record{
		"id":    "ev-1",
		"title": "Somchai",
		"start": "2024-05-01T09:00:00",
		"end":   "2024-05-01T10:00:00",
		"extendedProps": map[string]any{
			"booking_code": "20240501-0900-02",
			"sequence":     float64(2),
		},
	}
	b := FromEvent(r)
	if b.ID != "ev-1" || b.BookingCode != "20240501-0900-02" {
		t.Errorf("unexpected identity: %+v", b)
	}
	if b.Date != "2024-05-01" || b.StartTime != "09:00" || b.EndTime != "10:00" {
		t.Errorf("unexpected slot: %+v", b)
	}
	if b.SupplierName != "Somchai" || b.Sequence != 2 {
		t.Errorf("unexpected props: %+v", b)
	}
}

func TestDedupKeyPriority(t *testing.T) {
	if got := (Booking{BookingCode: "C", ID: "1"}).DedupKey(); got != "code:C" {
		t.Errorf("code key = %q", got)
	}
	if got := (Booking{ID: "1", Date: "2024-05-01"}).DedupKey(); got != "id:1" {
		t.Errorf("id key = %q", got)
	}
	if got := (Booking{Date: "2024-05-01", StartTime: "08:00", Sequence: 2}).DedupKey(); got != "slot:2024-05-01|08:00|2" {
		t.Errorf("slot key = %q", got)
	}
}

func TestDedupFirstOccurrenceWins(t *testing.T) {
	list := []Booking{
		{ID: "up-1", BookingCode: "A", SupplierName: "upstream"},
		{ID: "up-2", BookingCode: "B"},
		{ID: "local-1", BookingCode: "A", SupplierName: "cache"},
		{Date: "2024-05-01", StartTime: "08:00", Sequence: 3},
		{Date: "2024-05-01", StartTime: "08:00", Sequence: 3},
	}
	got := Dedup(list)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(got), got)
	}
	if got[0].SupplierName != "upstream" {
		t.Errorf("expected upstream entry to survive, got %+v", got[0])
	}
	seen := map[string]bool{}
	for _, b := range got {
		if b.BookingCode == "" {
			continue
		}
		if seen[b.BookingCode] {
			t.Errorf("duplicate booking_code %s", b.BookingCode)
		}
		seen[b.BookingCode] = true
	}
}
