package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantHealthy bool
	}{
		{"healthy", http.StatusOK, `{"status":"healthy"}`, true},
		{"starting", http.StatusOK, `{"status":"starting"}`, false},
		{"server error", http.StatusServiceUnavailable, `{"status":"healthy"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/health" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			res, err := New(time.Second).Check(context.Background(), ts.URL+"/api/health")
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if res.Healthy != tt.wantHealthy {
				t.Errorf("Healthy = %v, want %v", res.Healthy, tt.wantHealthy)
			}
			if res.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", res.StatusCode, tt.status)
			}
		})
	}
}

func TestCheckDoesNotFollowRedirects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer ts.Close()

	res, err := New(time.Second).Check(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if res.StatusCode != http.StatusFound {
		t.Errorf("StatusCode = %d, want 302", res.StatusCode)
	}
}

func TestCheckUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	res, err := New(200*time.Millisecond).Check(context.Background(), url)
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	if res.Error == "" || res.Healthy {
		t.Errorf("unexpected result: %+v", res)
	}
}
