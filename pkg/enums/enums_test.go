package enums

import "testing"

func TestParseSharedCartStatus(t *testing.T) {
	for _, raw := range []string{"active", "completed", "expired"} {
		got, err := ParseSharedCartStatus(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got.String() != raw || !got.IsValid() {
			t.Fatalf("unexpected status %q", got)
		}
	}
	if _, err := ParseSharedCartStatus("converted"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestSharedCartStatusOpen(t *testing.T) {
	if !SharedCartStatusActive.Open() || !SharedCartStatusCompleted.Open() {
		t.Fatal("active and completed carts accept participant changes")
	}
	if SharedCartStatusExpired.Open() {
		t.Fatal("expired carts are closed")
	}
}

func TestParseOutboxEventType(t *testing.T) {
	if _, err := ParseOutboxEventType("shared_cart_completed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseOutboxEventType("order_created"); err == nil {
		t.Fatal("expected unknown event type to fail")
	}
	if !AggregateSharedCart.IsValid() {
		t.Fatal("shared_cart aggregate should be valid")
	}
}
