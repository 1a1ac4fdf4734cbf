package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	got, err := ParseOrderStatus(" paid ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != OrderStatusPaid {
		t.Fatalf("expected PAID got %s", got)
	}
	if _, err := ParseOrderStatus("SHIPPED"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
	if !OrderStatusCancelled.IsTerminal() || OrderStatusPaid.IsTerminal() {
		t.Fatal("terminal classification mismatch")
	}
}

func TestRequestStatusValidity(t *testing.T) {
	for _, s := range []RequestStatus{RequestStatusIdle, RequestStatusLoading, RequestStatusSucceeded, RequestStatusFailed} {
		if !s.IsValid() {
			t.Fatalf("%s should be valid", s)
		}
	}
	if RequestStatus("pending").IsValid() {
		t.Fatal("pending is not a request status")
	}
	if _, err := ParseRequestStatus("loading"); err != nil {
		t.Fatalf("parse loading: %v", err)
	}
}

func TestParseModalAndSort(t *testing.T) {
	if m, err := ParseModalType("success"); err != nil || m != ModalTypeSuccess {
		t.Fatalf("unexpected modal parse %v %v", m, err)
	}
	if _, err := ParseModalType("toast"); err == nil {
		t.Fatal("expected toast to be rejected")
	}
	if s, err := ParseSortOrder("highest"); err != nil || s != SortHighest {
		t.Fatalf("unexpected sort parse %v %v", s, err)
	}
	if _, err := ParseSortOrder("random"); err == nil {
		t.Fatal("expected random to be rejected")
	}
}
