package env

import "testing"

func TestGetFallsBackWhenBlank(t *testing.T) {
	t.Setenv("GROUPCART_TEST_VALUE", "   ")
	if got := Get("GROUPCART_TEST_VALUE", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("GROUPCART_TEST_VALUE", "set")
	if got := Get("GROUPCART_TEST_VALUE", "fallback"); got != "set" {
		t.Fatalf("expected set, got %q", got)
	}
}

func TestBool(t *testing.T) {
	cases := []struct {
		raw      string
		fallback bool
		want     bool
	}{
		{raw: "", fallback: true, want: true},
		{raw: "false", fallback: true, want: false},
		{raw: "1", fallback: false, want: true},
		{raw: "nope", fallback: false, want: false},
	}
	for _, tc := range cases {
		t.Setenv("GROUPCART_TEST_BOOL", tc.raw)
		if got := Bool("GROUPCART_TEST_BOOL", tc.fallback); got != tc.want {
			t.Fatalf("Bool(%q, %v) = %v, want %v", tc.raw, tc.fallback, got, tc.want)
		}
	}
}
