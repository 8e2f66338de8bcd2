package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Stage is the lifecycle position of a booking, derived from which timestamps and
// measurements are present.
type Stage string

const (
	StageBooked    Stage = "booked"
	StageCheckedIn Stage = "checked_in"
	StageDraining  Stage = "draining"
	StageDrained   Stage = "drained"
	StageWeighedIn Stage = "weighed_in"
	StageCompleted Stage = "completed"
)

// Action is a lifecycle step recorded against a booking.
type Action string

const (
	ActionCheckIn    Action = "check-in"
	ActionDrainStart Action = "drain-start"
	ActionDrainStop  Action = "drain-stop"
	ActionWeightIn   Action = "weight-in"
	ActionWeightOut  Action = "weight-out"
)

// Actions lists every lifecycle action in recording order.
var Actions = []Action{ActionCheckIn, ActionDrainStart, ActionDrainStop, ActionWeightIn, ActionWeightOut}

var (
	// ErrLifecycleOrder indicates a step was requested before its prerequisites.
	ErrLifecycleOrder = errors.New("lifecycle order violated")
	// ErrAlreadyRecorded indicates the step already has a value.
	ErrAlreadyRecorded = errors.New("lifecycle step already recorded")
	// ErrInvalidMeasurement indicates a missing or non-positive weight.
	ErrInvalidMeasurement = errors.New("invalid weight measurement")
	// ErrUnknownAction indicates the action name is not a lifecycle step.
	ErrUnknownAction = errors.New("unknown lifecycle action")
)

// ParseAction validates an action name.
func ParseAction(name string) (Action, error) {
	for _, a := range Actions {
		if string(a) == name {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownAction, name)
}

// IsArticulated reports whether the truck is weighed as separate head and trailer.
func (b Booking) IsArticulated() bool {
	t := strings.ToLower(strings.TrimSpace(b.TruckType))
	switch t {
	case "trailer", "articulated", "semi-trailer", "semi_trailer", "full-trailer":
		return true
	}
	return strings.Contains(t, "พ่วง")
}

func (b Booking) HasCheckIn() bool    { return b.CheckInTime != "" }
func (b Booking) HasDrainStart() bool { return b.DrainStartTime != "" }
func (b Booking) HasDrainStop() bool  { return b.DrainStopTime != "" }

func (b Booking) HasWeightIn() bool {
	return b.WeightIn != nil || b.WeightInHead != nil || b.WeightInTrailer != nil
}

func (b Booking) HasWeightOut() bool {
	return b.WeightOut != nil || b.WeightOutHead != nil || b.WeightOutTrailer != nil
}

// TotalWeightIn returns the gross inbound weight; head and trailer are summed when no total
// was recorded.
func (b Booking) TotalWeightIn() (decimal.Decimal, bool) {
	return totalWeight(b.WeightIn, b.WeightInHead, b.WeightInTrailer)
}

// TotalWeightOut returns the outbound weight.
func (b Booking) TotalWeightOut() (decimal.Decimal, bool) {
	return totalWeight(b.WeightOut, b.WeightOutHead, b.WeightOutTrailer)
}

// NetWeight is weight-in minus weight-out, available once both exist.
func (b Booking) NetWeight() (decimal.Decimal, bool) {
	in, okIn := b.TotalWeightIn()
	out, okOut := b.TotalWeightOut()
	if !okIn || !okOut {
		return decimal.Zero, false
	}
	return in.Sub(out), true
}

func totalWeight(total, head, trailer *float64) (decimal.Decimal, bool) {
	if total != nil {
		return decimal.NewFromFloat(*total), true
	}
	if head == nil && trailer == nil {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	if head != nil {
		sum = sum.Add(decimal.NewFromFloat(*head))
	}
	if trailer != nil {
		sum = sum.Add(decimal.NewFromFloat(*trailer))
	}
	return sum, true
}

// Stage derives the lifecycle stage.
func (b Booking) Stage() Stage {
	switch {
	case b.HasWeightOut():
		return StageCompleted
	case b.HasWeightIn():
		return StageWeighedIn
	case b.HasDrainStop():
		return StageDrained
	case b.HasDrainStart():
		return StageDraining
	case b.HasCheckIn():
		return StageCheckedIn
	}
	return StageBooked
}

// CanPerform returns nil when action may be recorded now.
func (b Booking) CanPerform(action Action) error {
	var missing []string
	var recorded bool

	switch action {
	case ActionCheckIn:
		recorded = b.HasCheckIn()
	case ActionDrainStart:
		recorded = b.HasDrainStart()
		if !b.HasCheckIn() {
			missing = append(missing, "check_in_time")
		}
	case ActionDrainStop:
		recorded = b.HasDrainStop()
		if !b.HasDrainStart() {
			missing = append(missing, "drain_start_time")
		}
	case ActionWeightIn:
		recorded = b.HasWeightIn()
		if !b.HasCheckIn() {
			missing = append(missing, "check_in_time")
		}
	case ActionWeightOut:
		recorded = b.HasWeightOut()
		if !b.HasCheckIn() {
			missing = append(missing, "check_in_time")
		}
		if !b.HasDrainStart() {
			missing = append(missing, "drain_start_time")
		}
		if !b.HasDrainStop() {
			missing = append(missing, "drain_stop_time")
		}
		if !b.HasWeightIn() {
			missing = append(missing, "weight_in")
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}

	if recorded {
		return fmt.Errorf("%w: %s", ErrAlreadyRecorded, action)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s requires %s", ErrLifecycleOrder, action, strings.Join(missing, ", "))
	}
	return nil
}

// AvailableActions lists the actions a dashboard should render as enabled.
func (b Booking) AvailableActions() []Action {
	out := make([]Action, 0, len(Actions))
	for _, a := range Actions {
		if b.CanPerform(a) == nil {
			out = append(out, a)
		}
	}
	return out
}

// Weighing is the measurement submitted with weight-in / weight-out.
type Weighing struct {
	Total   *float64 `json:"weight,omitempty"`
	Head    *float64 `json:"head,omitempty"`
	Trailer *float64 `json:"trailer,omitempty"`
}

// Resolve validates the measurement for the truck type and returns head, trailer and total.
// Articulated trucks need both head and trailer; their total is the sum.
func (w Weighing) Resolve(articulated bool) (head, trailer *float64, total decimal.Decimal, err error) {
	if articulated {
		if !positive(w.Head) || !positive(w.Trailer) {
			return nil, nil, decimal.Zero, fmt.Errorf("%w: head and trailer weights are required", ErrInvalidMeasurement)
		}
		total = decimal.NewFromFloat(*w.Head).Add(decimal.NewFromFloat(*w.Trailer))
		return w.Head, w.Trailer, total, nil
	}
	value := w.Total
	if value == nil {
		value = w.Head
	}
	if !positive(value) {
		return nil, nil, decimal.Zero, fmt.Errorf("%w: weight must be greater than zero", ErrInvalidMeasurement)
	}
	return nil, nil, decimal.NewFromFloat(*value), nil
}

func positive(v *float64) bool {
	return v != nil && *v > 0
}

// Apply records action on b at the given time and returns the fields to send upstream.
func (b *Booking) Apply(action Action, at time.Time, w Weighing) (Record, error) {
	if err := b.CanPerform(action); err != nil {
		return nil, err
	}

	stamp := at.Format(time.RFC3339)
	patch := Record{}

	switch action {
	case ActionCheckIn:
		b.CheckInTime = stamp
		patch["check_in_time"] = stamp
	case ActionDrainStart:
		b.DrainStartTime = stamp
		patch["drain_start_time"] = stamp
	case ActionDrainStop:
		if started, ok := b.timestamp(b.DrainStartTime); ok && at.Before(started) {
			return nil, fmt.Errorf("%w: drain stop %s is before drain start %s", ErrLifecycleOrder, stamp, b.DrainStartTime)
		}
		b.DrainStopTime = stamp
		patch["drain_stop_time"] = stamp
	case ActionWeightIn, ActionWeightOut:
		head, trailer, total, err := w.Resolve(b.IsArticulated())
		if err != nil {
			return nil, err
		}
		totalValue := total.InexactFloat64()
		if action == ActionWeightIn {
			b.WeightIn, b.WeightInHead, b.WeightInTrailer = &totalValue, head, trailer
			patch["weight_in"] = totalValue
			if head != nil {
				patch["weight_in_head"], patch["weight_in_trailer"] = *head, *trailer
			}
		} else {
			if in, ok := b.TotalWeightIn(); ok && total.GreaterThan(in) {
				return nil, fmt.Errorf("%w: weight out %s exceeds weight in %s", ErrInvalidMeasurement, total, in)
			}
			b.WeightOut, b.WeightOutHead, b.WeightOutTrailer = &totalValue, head, trailer
			patch["weight_out"] = totalValue
			if head != nil {
				patch["weight_out_head"], patch["weight_out_trailer"] = *head, *trailer
			}
		}
	}
	return patch, nil
}

// timestamp parses a stored lifecycle value; clock-only values are anchored on the booking date.
func (b Booking) timestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateTimeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	if clock, ok := normalizeClock(value); ok {
		if ts, err := time.ParseInLocation(DateLayout+" "+TimeLayout, b.Date+" "+clock, time.Local); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
