package format

import (
	"testing"
	"time"
)

func TestSize(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{4_500_000_000, "4.5 GB"},
		{1_000_000_000, "1.0 GB"},
		{500_000_000, "500 MB"},
		{0, "0 MB"},
	}
	for _, tc := range cases {
		if got := Size(tc.bytes); got != tc.want {
			t.Errorf("Size(%d) = %q, want %q", tc.bytes, got, tc.want)
		}
	}
}

func TestTimeAgo(t *testing.T) {
	cases := []struct {
		t    time.Time
		want string
	}{
		{time.Now().Add(-49 * time.Hour), "2 days ago"},
		{time.Now().Add(-25 * time.Hour), "1 day ago"},
		{time.Now().Add(-5 * time.Hour), "5 hours ago"},
		{time.Now().Add(-3 * time.Minute), "3 minutes ago"},
		{time.Now().Add(-90 * 24 * time.Hour), "3 months ago"},
		{time.Time{}, "unknown"},
	}
	for _, tc := range cases {
		if got := TimeAgo(tc.t); got != tc.want {
			t.Errorf("TimeAgo = %q, want %q", got, tc.want)
		}
	}
}

func TestUntil(t *testing.T) {
	if got := Until(time.Now().Add(5*time.Minute + 30*time.Second)); got != "5 minutes from now" {
		t.Errorf("Until = %q", got)
	}
	if got := Until(time.Now().Add(-time.Minute)); got != "expired" {
		t.Errorf("Until past = %q", got)
	}
	if got := Until(time.Time{}); got != "" {
		t.Errorf("Until zero = %q", got)
	}
}

func TestProcessor(t *testing.T) {
	if got := Processor(0, 0); got != "CPU" {
		t.Errorf("Processor = %q", got)
	}
	if got := Processor(1000, 1000); got != "100% GPU" {
		t.Errorf("Processor = %q", got)
	}
}
