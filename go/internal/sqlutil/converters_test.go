package sqlutil

import (
	"testing"

	"github.com/google/uuid"
)

func TestNullUUIDRoundTrip(t *testing.T) {
	if got := FromNullUUID(ToNullUUID(nil)); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	id := uuid.New()
	got := FromNullUUID(ToNullUUID(&id))
	if got == nil || *got != id {
		t.Fatalf("expected %s, got %v", id, got)
	}
}

func TestNullJSON(t *testing.T) {
	null, err := ToNullJSON(nil)
	if err != nil || null.Valid {
		t.Fatalf("expected NULL for nil value, got %+v, %v", null, err)
	}

	type result struct {
		Reason string `json:"reason"`
	}
	msg, err := ToNullJSON(result{Reason: "timer_expired"})
	if err != nil || !msg.Valid {
		t.Fatalf("ToNullJSON: %+v, %v", msg, err)
	}

	var out result
	ok, err := FromNullJSON(msg.RawMessage, &out)
	if err != nil || !ok || out.Reason != "timer_expired" {
		t.Fatalf("FromNullJSON: ok=%v out=%+v err=%v", ok, out, err)
	}

	ok, err = FromNullJSON(nil, &out)
	if err != nil || ok {
		t.Fatalf("NULL column should report false, got ok=%v err=%v", ok, err)
	}

	if _, err := FromNullJSON([]byte("{"), &out); err == nil {
		t.Fatalf("expected error for malformed json")
	}
}
