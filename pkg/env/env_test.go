package env

import "testing"

func TestGetFallsBack(t *testing.T) {
	t.Setenv("MARKETPLACE_TEST_VALUE", "")
	if got := Get("MARKETPLACE_TEST_VALUE", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("MARKETPLACE_TEST_VALUE", " set ")
	if got := Get("MARKETPLACE_TEST_VALUE", "fallback"); got != "set" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
}

func TestGetBool(t *testing.T) {
	t.Setenv("MARKETPLACE_TEST_FLAG", "true")
	if !GetBool("MARKETPLACE_TEST_FLAG", false) {
		t.Fatal("expected true")
	}
	t.Setenv("MARKETPLACE_TEST_FLAG", "not-a-bool")
	if GetBool("MARKETPLACE_TEST_FLAG", false) {
		t.Fatal("expected fallback for malformed value")
	}
}
