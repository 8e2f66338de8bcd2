package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Booking is a scheduled truck visit tied to a supplier, a date and a time slot.
type Booking struct {
	ID               string     `json:"id,omitempty"`
	BookingCode      string     `json:"booking_code,omitempty"`
	Date             string     `json:"date"`
	StartTime        string     `json:"start_time"`
	EndTime          string     `json:"end_time,omitempty"`
	Sequence         int        `json:"sequence,omitempty"`
	SupplierID       string     `json:"supplier_id,omitempty"`
	SupplierCode     string     `json:"supplier_code,omitempty"`
	SupplierName     string     `json:"supplier_name,omitempty"`
	RubberType       string     `json:"rubber_type,omitempty"`
	TruckRegister    string     `json:"truck_register,omitempty"`
	TruckType        string     `json:"truck_type,omitempty"`
	Recorder         string     `json:"recorder,omitempty"`
	CheckInTime      string     `json:"check_in_time,omitempty"`
	DrainStartTime   string     `json:"drain_start_time,omitempty"`
	DrainStopTime    string     `json:"drain_stop_time,omitempty"`
	WeightIn         *float64   `json:"weight_in,omitempty"`
	WeightInHead     *float64   `json:"weight_in_head,omitempty"`
	WeightInTrailer  *float64   `json:"weight_in_trailer,omitempty"`
	WeightOut        *float64   `json:"weight_out,omitempty"`
	WeightOutHead    *float64   `json:"weight_out_head,omitempty"`
	WeightOutTrailer *float64   `json:"weight_out_trailer,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
}

// BookingView decorates a booking with its derived lifecycle state.
type BookingView struct {
	Booking
	Stage            Stage    `json:"stage"`
	AvailableActions []Action `json:"available_actions"`
	NetWeight        *float64 `json:"net_weight,omitempty"`
}

// View derives the lifecycle state of b.
func (b Booking) View() BookingView {
	view := BookingView{
		Booking:          b,
		Stage:            b.Stage(),
		AvailableActions: b.AvailableActions(),
	}
	if net, ok := b.NetWeight(); ok {
		f := net.InexactFloat64()
		view.NetWeight = &f
	}
	return view
}

// BuildBookingCode derives the booking code from date, slot start and sequence:
// YYYYMMDD-HHMM-NN. Returns an empty string when date or start time are malformed.
func BuildBookingCode(date, startTime string, sequence int) string {
	day, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return ""
	}
	slot, ok := normalizeClock(startTime)
	if !ok || sequence <= 0 {
		return ""
	}
	return fmt.Sprintf("%s-%s-%02d", day.Format("20060102"), strings.ReplaceAll(slot, ":", ""), sequence)
}

// FromRecord maps a booking object from the upstream bookings resource.
func FromRecord(r Record) Booking {
	b := Booking{
		ID:               r.String("id", "_id", "booking_id", "bookingId"),
		BookingCode:      r.String("booking_code", "bookingCode", "code"),
		Date:             normalizeDate(r.String("date", "booking_date", "bookingDate")),
		StartTime:        r.String("start_time", "startTime", "slot_start"),
		EndTime:          r.String("end_time", "endTime", "slot_end"),
		SupplierID:       r.String("supplier_id", "supplierId", "supplier"),
		SupplierCode:     r.String("supplier_code", "supplierCode"),
		SupplierName:     r.String("supplier_name", "supplierName"),
		RubberType:       r.String("rubber_type", "rubberType", "rubber_type_name", "rubber_type_id"),
		TruckRegister:    r.String("truck_register", "truckRegister", "truck_registration", "license_plate"),
		TruckType:        r.String("truck_type", "truckType"),
		Recorder:         r.String("recorder", "recorded_by", "recordedBy"),
		CheckInTime:      r.String("check_in_time", "checkInTime", "checkin_time"),
		DrainStartTime:   r.String("drain_start_time", "drainStartTime", "start_drain_at"),
		DrainStopTime:    r.String("drain_stop_time", "drainStopTime", "stop_drain_at"),
		WeightIn:         r.Float("weight_in", "weightIn"),
		WeightInHead:     r.Float("weight_in_head", "weightInHead"),
		WeightInTrailer:  r.Float("weight_in_trailer", "weightInTrailer"),
		WeightOut:        r.Float("weight_out", "weightOut"),
		WeightOutHead:    r.Float("weight_out_head", "weightOutHead"),
		WeightOutTrailer: r.Float("weight_out_trailer", "weightOutTrailer"),
	}
	if seq, ok := r.Int("sequence", "seq", "queue_no", "queueNo"); ok {
		b.Sequence = seq
	}
	if supplier := r.Object("supplier"); supplier != nil {
		if id := supplier.String("id", "_id"); id != "" {
			b.SupplierID = id
		}
		if b.SupplierCode == "" {
			b.SupplierCode = supplier.String("code", "supplier_code")
		}
		if b.SupplierName == "" {
			b.SupplierName = supplierDisplayName(supplier)
		}
	}
	if start, ok := normalizeClock(b.StartTime); ok {
		b.StartTime = start
	}
	if end, ok := normalizeClock(b.EndTime); ok {
		b.EndTime = end
	}
	if created := r.String("created_at", "createdAt"); created != "" {
		if ts, err := time.Parse(time.RFC3339, created); err == nil {
			b.CreatedAt = &ts
		}
	}
	return b
}

// FromEvent maps an entry of the upstream calendar events view into a booking.
func FromEvent(r Record) Booking {
	props := r.Object("extendedProps", "extended_props", "props")
	if props == nil {
		props = Record{}
	}
	b := FromRecord(props)
	if b.ID == "" {
		b.ID = r.String("id", "_id")
	}
	if b.BookingCode == "" {
		b.BookingCode = r.String("booking_code", "bookingCode")
	}
	if b.SupplierName == "" {
		b.SupplierName = r.String("title")
	}
	if date, clock := splitDateTime(r.String("start")); date != "" {
		if b.Date == "" {
			b.Date = date
		}
		if b.StartTime == "" {
			b.StartTime = clock
		}
	}
	if _, clock := splitDateTime(r.String("end")); clock != "" && b.EndTime == "" {
		b.EndTime = clock
	}
	return b
}

// DedupKey identifies a booking across the upstream list and the local cache.
func (b Booking) DedupKey() string {
	if b.BookingCode != "" {
		return "code:" + b.BookingCode
	}
	if b.ID != "" {
		return "id:" + b.ID
	}
	return fmt.Sprintf("slot:%s|%s|%d", b.Date, b.StartTime, b.Sequence)
}

// Dedup keeps the first booking for every DedupKey, preserving order.
func Dedup(bookings []Booking) []Booking {
	seen := make(map[string]struct{}, len(bookings))
	out := make([]Booking, 0, len(bookings))
	for _, b := range bookings {
		key := b.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, b)
	}
	return out
}

func supplierDisplayName(r Record) string {
	if name := r.String("name", "full_name", "fullName"); name != "" {
		return name
	}
	return strings.TrimSpace(strings.Join([]string{
		r.String("title", "prefix"),
		r.String("first_name", "firstName"),
		r.String("last_name", "lastName"),
	}, " "))
}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func splitDateTime(value string) (string, string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ""
	}
	for _, layout := range dateTimeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.Format(DateLayout), ts.Format(TimeLayout)
		}
	}
	if ts, err := time.Parse(DateLayout, value); err == nil {
		return ts.Format(DateLayout), ""
	}
	return "", ""
}

func normalizeDate(value string) string {
	if value == "" {
		return ""
	}
	if date, _ := splitDateTime(value); date != "" {
		return date
	}
	return value
}

func normalizeClock(value string) (string, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{TimeLayout, "15:04:05", "15.04"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.Format(TimeLayout), true
		}
	}
	return "", false
}

// NormalizeSlot validates a booking date and slot start, returning them in canonical form.
func NormalizeSlot(date, startTime string) (string, string, bool) {
	day, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return "", "", false
	}
	clock, ok := normalizeClock(startTime)
	if !ok {
		return "", "", false
	}
	return day.Format(DateLayout), clock, true
}
