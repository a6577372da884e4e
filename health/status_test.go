package health

import "testing"

func TestStatusConstructors(t *testing.T) {
	tests := []struct {
		name        string
		status      Status
		wantHealthy bool
		wantState   string
	}{
		{"healthy", NewHealthy("editor", "ok"), true, "healthy"},
		{"degraded", NewDegraded("editor", "starting"), false, "degraded"},
		{"unhealthy", NewUnhealthy("editor", "stopped"), false, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.status.Healthy != tt.wantHealthy {
				t.Errorf("Healthy = %v, want %v", tt.status.Healthy, tt.wantHealthy)
			}
			if tt.status.Status != tt.wantState {
				t.Errorf("Status = %q, want %q", tt.status.Status, tt.wantState)
			}
			if tt.status.Component != "editor" {
				t.Errorf("Component = %q, want %q", tt.status.Component, "editor")
			}
			if tt.status.Timestamp.IsZero() {
				t.Error("Timestamp should be set")
			}
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	if !NewHealthy("c", "m").IsHealthy() {
		t.Error("NewHealthy should be IsHealthy")
	}
	if !NewDegraded("c", "m").IsDegraded() {
		t.Error("NewDegraded should be IsDegraded")
	}
	if !NewUnhealthy("c", "m").IsUnhealthy() {
		t.Error("NewUnhealthy should be IsUnhealthy")
	}
}

func TestWithSubStatusDoesNotShareSlices(t *testing.T) {
	parent := NewHealthy("service", "ok")
	a := parent.WithSubStatus(NewHealthy("editor", "ok"))
	b := parent.WithSubStatus(NewUnhealthy("store", "down"))

	if len(parent.SubStatuses) != 0 {
		t.Error("parent should be unchanged")
	}
	if len(a.SubStatuses) != 1 || a.SubStatuses[0].Component != "editor" {
		t.Error("first copy should hold only its own sub-status")
	}
	if len(b.SubStatuses) != 1 || b.SubStatuses[0].Component != "store" {
		t.Error("second copy should hold only its own sub-status")
	}
}
