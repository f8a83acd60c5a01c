package env

import "testing"

func TestGetFallsBackWhenBlank(t *testing.T) {
	t.Setenv("CARLINE_TEST_VALUE", "   ")
	if got := Get("CARLINE_TEST_VALUE", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}

	t.Setenv("CARLINE_TEST_VALUE", "set")
	if got := Get("CARLINE_TEST_VALUE", "fallback"); got != "set" {
		t.Fatalf("expected set, got %q", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("CARLINE_TEST_FLAG", "true")
	if !Bool("CARLINE_TEST_FLAG", false) {
		t.Fatal("expected true")
	}
	t.Setenv("CARLINE_TEST_FLAG", "nope")
	if Bool("CARLINE_TEST_FLAG", false) {
		t.Fatal("expected malformed value to use fallback")
	}
}
