package redis

import "testing"

func TestKeys(t *testing.T) {
	if got := ReportKey("abc"); got != "shipcheck:report:abc" {
		t.Errorf("ReportKey() = %q", got)
	}
	if got := TargetReportsKey("api"); got != "shipcheck:target:api:reports" {
		t.Errorf("TargetReportsKey() = %q", got)
	}
	if got := AllTargetsKey(); got != "shipcheck:targets:all" {
		t.Errorf("AllTargetsKey() = %q", got)
	}
}

func TestExtractReportID(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{"shipcheck:report:1234", "1234", false},
		{"shipcheck:report:", "", true},
		{"other:report:1234", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractReportID(tt.key)
		if (err != nil) != tt.wantErr {
			t.Errorf("ExtractReportID(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ExtractReportID(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestNewStoreDefaultTTL(t *testing.T) {
	if s := NewStore(nil, 0); s.ttl != DefaultReportTTL {
		t.Errorf("ttl = %v, want %v", s.ttl, DefaultReportTTL)
	}
}
