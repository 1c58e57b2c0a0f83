package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrSnakeDoc/shipcheck/internal/logger"
)

func TestAllowOnlyCIDRS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		allowed    []string
		trustProxy bool
		remote     string
		xff        string
		want       int
	}{
		{"empty list passes", nil, false, "203.0.113.9:1234", "", http.StatusOK},
		{"cidr match", []string{"10.0.0.0/8"}, false, "10.1.2.3:5555", "", http.StatusOK},
		{"exact ip match", []string{"192.168.1.10"}, false, "192.168.1.10:80", "", http.StatusOK},
		{"outside range", []string{"10.0.0.0/8"}, false, "192.168.1.10:80", "", http.StatusForbidden},
		{"xff ignored without proxy trust", []string{"10.0.0.0/8"}, false, "192.168.1.10:80", "10.0.0.1", http.StatusForbidden},
		{"xff honoured behind proxy", []string{"10.0.0.0/8"}, true, "127.0.0.1:80", "10.0.0.1, 127.0.0.1", http.StatusOK},
		{"ipv6 prefix", []string{"fd00::/8"}, false, "[fd00::1]:443", "", http.StatusOK},
		{"garbage remote addr", []string{"10.0.0.0/8"}, false, "not-an-ip", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := AllowOnlyCIDRS(tt.allowed, tt.trustProxy, logger.Nop())(ok)
			req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestParseAddr(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"10.0.0.1", "10.0.0.1", true},
		{"10.0.0.1:8080", "10.0.0.1", true},
		{"[::1]:80", "::1", true},
		{" 10.0.0.2 ", "10.0.0.2", true},
		{"", "", false},
		{"host.example", "", false},
	}
	for _, tt := range tests {
		got, ok := parseAddr(tt.in)
		if ok != tt.ok {
			t.Errorf("parseAddr(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got.String() != tt.want {
			t.Errorf("parseAddr(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLogRecordsStatus(t *testing.T) {
	h := Log(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}
