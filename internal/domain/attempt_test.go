package domain

import (
	"encoding/json"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   ServiceStatus
	}{
		{"docker up", "Up 12 seconds", StatusRunning},
		{"up and running", "Up and running\n", StatusRunning},
		{"not running marker", "Service not running", StatusNotRunning},
		{"both markers", "Up\nService not running", StatusNotRunning},
		{"exited", "Exited (1) 3 seconds ago", StatusNotRunning},
		{"lowercase up", "up", StatusNotRunning},
		{"empty", "", StatusUnknown},
		{"whitespace", "  \n\t", StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyStatus(tt.output); got != tt.want {
				t.Errorf("ClassifyStatus(%q) = %v, want %v", tt.output, got, tt.want)
			}
		})
	}
}

func TestMarkers(t *testing.T) {
	if !IsHealthy("status: healthy") {
		t.Error("expected healthy body to match")
	}
	if IsHealthy("status: starting") {
		t.Error("starting body should not be healthy")
	}
	if !IsRunning("API is running") {
		t.Error("expected running body to match")
	}
	if IsRunning("root check failed") {
		t.Error("failure text should not be running")
	}
	// substring match, like grep
	if !IsHealthy(`{"status":"unhealthy"}`) {
		t.Error("marker match is a plain substring match")
	}
}

func TestStatusJSON(t *testing.T) {
	a := VerificationAttempt{AttemptNumber: 2, ServiceStatus: StatusRunning, HealthStatus: HealthHealthy}
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got VerificationAttempt
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ServiceStatus != StatusRunning || got.HealthStatus != HealthHealthy {
		t.Errorf("round trip lost statuses: %+v (json %s)", got, data)
	}
}
