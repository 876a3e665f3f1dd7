package node

import "testing"

func TestName(t *testing.T) {
	t.Setenv("NODE_NAME", "bench-1")
	t.Setenv("HOSTNAME", "host-a")

	if got := Name(); got != "bench-1" {
		t.Errorf("Name() = %q, want bench-1", got)
	}
	if got := ClientID(); got != "rgbnode-bench-1" {
		t.Errorf("ClientID() = %q, want rgbnode-bench-1", got)
	}
}

func TestNameFallsBackToHostname(t *testing.T) {
	t.Setenv("NODE_NAME", "")
	t.Setenv("HOSTNAME", "host-a")

	if got := Name(); got != "host-a" {
		t.Errorf("Name() = %q, want host-a", got)
	}
}

func TestNameNeverEmpty(t *testing.T) {
	t.Setenv("NODE_NAME", "")
	t.Setenv("HOSTNAME", "")

	if got := Name(); got == "" {
		t.Error("Name() returned empty string")
	}
}
