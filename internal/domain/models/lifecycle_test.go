package models

import (
	"errors"
	"testing"
	"time"
)

func ptr(v float64) *float64 { return &v }

func TestWeightOutBlockedWithOnlyCheckIn(t *testing.T) {
	b := Booking{Date: "2024-05-01", StartTime: "08:00", CheckInTime: "2024-05-01T08:05:00+07:00"}

	for _, a := range b.AvailableActions() {
		if a == ActionWeightOut {
			t.Fatal("weight-out must not be available with only check-in recorded")
		}
	}
	err := b.CanPerform(ActionWeightOut)
	if !errors.Is(err, ErrLifecycleOrder) {
		t.Fatalf("expected ErrLifecycleOrder, got %v", err)
	}
	if _, err := b.Apply(ActionWeightOut, time.Now(), Weighing{Total: ptr(5000)}); !errors.Is(err, ErrLifecycleOrder) {
		t.Fatalf("Apply should refuse weight-out, got %v", err)
	}
}

func TestFullLifecycle(t *testing.T) {
	b := Booking{Date: "2024-05-01", StartTime: "08:00"}
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	if b.Stage() != StageBooked {
		t.Fatalf("stage = %s", b.Stage())
	}
	steps := []struct {
		action Action
		w      Weighing
		stage  Stage
	}{
		{ActionCheckIn, Weighing{}, StageCheckedIn},
		{ActionDrainStart, Weighing{}, StageDraining},
		{ActionDrainStop, Weighing{}, StageDrained},
		{ActionWeightIn, Weighing{Total: ptr(15000)}, StageWeighedIn},
		{ActionWeightOut, Weighing{Total: ptr(9000.5)}, StageCompleted},
	}
	for i, step := range steps {
		patch, err := b.Apply(step.action, base.Add(time.Duration(i)*10*time.Minute), step.w)
		if err != nil {
			t.Fatalf("%s: %v", step.action, err)
		}
		if len(patch) == 0 {
			t.Fatalf("%s: empty patch", step.action)
		}
		if b.Stage() != step.stage {
			t.Fatalf("after %s stage = %s, want %s", step.action, b.Stage(), step.stage)
		}
	}
	net, ok := b.NetWeight()
	if !ok || net.String() != "5999.5" {
		t.Fatalf("net weight = %s (%v)", net, ok)
	}
	if len(b.AvailableActions()) != 0 {
		t.Fatalf("completed booking still has actions: %v", b.AvailableActions())
	}
}

func TestDrainStopBeforeStartRejected(t *testing.T) {
	b := Booking{
		Date:           "2024-05-01",
		CheckInTime:    "2024-05-01T08:00:00Z",
		DrainStartTime: "2024-05-01T09:00:00Z",
	}
	_, err := b.Apply(ActionDrainStop, time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC), Weighing{})
	if !errors.Is(err, ErrLifecycleOrder) {
		t.Fatalf("expected ErrLifecycleOrder, got %v", err)
	}
}

func TestArticulatedWeighingNeedsHeadAndTrailer(t *testing.T) {
	b := Booking{TruckType: "trailer", CheckInTime: "08:00", Date: "2024-05-01"}

	if _, err := b.Apply(ActionWeightIn, time.Now(), Weighing{Total: ptr(20000)}); !errors.Is(err, ErrInvalidMeasurement) {
		t.Fatalf("expected ErrInvalidMeasurement, got %v", err)
	}
	patch, err := b.Apply(ActionWeightIn, time.Now(), Weighing{Head: ptr(12000.25), Trailer: ptr(8000.5)})
	if err != nil {
		t.Fatal(err)
	}
	if patch["weight_in"] != 20000.75 {
		t.Errorf("weight_in = %v", patch["weight_in"])
	}
	if patch["weight_in_head"] != 12000.25 || patch["weight_in_trailer"] != 8000.5 {
		t.Errorf("unexpected split: %v", patch)
	}
}

func TestAlreadyRecordedStep(t *testing.T) {
	b := Booking{CheckInTime: "2024-05-01T08:00:00Z"}
	if err := b.CanPerform(ActionCheckIn); !errors.Is(err, ErrAlreadyRecorded) {
		t.Fatalf("expected ErrAlreadyRecorded, got %v", err)
	}
}

func TestParseAction(t *testing.T) {
	if a, err := ParseAction("drain-stop"); err != nil || a != ActionDrainStop {
		t.Fatalf("ParseAction = %v, %v", a, err)
	}
	if _, err := ParseAction("teleport"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}
