package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestCheckTransitionTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		op      Operation
		from    MeetingStatus
		allowed bool
	}{
		{OperationReschedule, StatusInvited, true},
		{OperationReschedule, StatusRescheduled, true},
		{OperationReschedule, StatusCancelled, false},
		{OperationReschedule, StatusFinalized, false},
		{OperationReschedule, StatusClosed, false},
		{OperationCancel, StatusInvited, true},
		{OperationCancel, StatusRescheduled, true},
		{OperationCancel, StatusCancelled, false},
		{OperationCancel, StatusFinalized, false},
		{OperationFinalize, StatusInvited, true},
		{OperationFinalize, StatusRescheduled, true},
		{OperationFinalize, StatusFinalized, false},
		{OperationAmendMinutes, StatusFinalized, true},
		{OperationAmendMinutes, StatusInvited, false},
		{OperationAmendMinutes, StatusCancelled, false},
		{OperationClose, StatusInvited, true},
		{OperationClose, StatusRescheduled, true},
		{OperationClose, StatusCancelled, true},
		{OperationClose, StatusFinalized, true},
		{OperationClose, StatusClosed, false},
	}
	for _, tc := range cases {
		err := CheckTransition(tc.op, tc.from)
		if tc.allowed && err != nil {
			t.Errorf("%s from %s: unexpected error %v", tc.op, tc.from, err)
		}
		if !tc.allowed {
			if err == nil {
				t.Errorf("%s from %s: expected conflict", tc.op, tc.from)
				continue
			}
			if !errors.Is(err, ErrConflict) {
				t.Errorf("%s from %s: expected conflict kind, got %v", tc.op, tc.from, err)
			}
		}
	}
}

func TestCheckTransitionNamesOperationAndStatus(t *testing.T) {
	t.Parallel()

	err := CheckTransition(OperationCancel, StatusCancelled)
	if err == nil {
		t.Fatal("expected conflict")
	}
	if !strings.Contains(err.Error(), "cannot cancel: already cancelled") {
		t.Fatalf("expected message naming operation and status, got %q", err.Error())
	}
}

func TestStatusValid(t *testing.T) {
	t.Parallel()

	for _, status := range []MeetingStatus{StatusInvited, StatusRescheduled, StatusCancelled, StatusFinalized, StatusClosed} {
		if !status.Valid() {
			t.Errorf("expected %s to be valid", status)
		}
	}
	if MeetingStatus("held").Valid() {
		t.Error("expected unknown status to be invalid")
	}
}

func TestStatusUnfinished(t *testing.T) {
	t.Parallel()

	if !StatusInvited.Unfinished() || !StatusRescheduled.Unfinished() {
		t.Error("expected invited and rescheduled to be unfinished")
	}
	for _, status := range []MeetingStatus{StatusCancelled, StatusFinalized, StatusClosed} {
		if status.Unfinished() {
			t.Errorf("expected %s to be finished", status)
		}
	}
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	status, err := ParseStatus("finalized")
	if err != nil {
		t.Fatalf("parse status: %v", err)
	}
	if status != StatusFinalized {
		t.Fatalf("expected finalized, got %s", status)
	}
	if _, err := ParseStatus("held"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
