package instance

import "testing"

func TestGetIDPrecedence(t *testing.T) {
	t.Setenv("DMS_INSTANCE_ID", "")
	t.Setenv("DYNO", "")
	t.Setenv("HOSTNAME", "")
	if got := GetID("api"); got != "api-0" {
		t.Fatalf("expected fallback api-0, got %q", got)
	}

	t.Setenv("HOSTNAME", "pod-7")
	if got := GetID("api"); got != "pod-7" {
		t.Fatalf("expected hostname, got %q", got)
	}

	t.Setenv("DMS_INSTANCE_ID", "cron-a")
	if got := GetID("cron-worker"); got != "cron-a" {
		t.Fatalf("expected explicit id, got %q", got)
	}
}
