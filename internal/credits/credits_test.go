package credits

import "testing"

func TestEstimate(t *testing.T) {
	cases := []struct {
		jobs     int
		provider string
		want     float64
	}{
		{10, "icypeas", 15},
		{1, "icypeas", 1.5},
		{10, "crawl4ai", 0},
		{10, "captain-data", 0},
		{10, "mock", 0},
		{10, "none", 0},
		{10, "unknown-provider", 0},
		{0, "icypeas", 0},
	}
	for _, tc := range cases {
		if got := Estimate(tc.jobs, tc.provider); got != tc.want {
			t.Errorf("Estimate(%d, %q) = %v, want %v", tc.jobs, tc.provider, got, tc.want)
		}
	}
}

func TestUsageLevel(t *testing.T) {
	cases := []struct {
		used, cap float64
		want      Level
	}{
		{0, 500, LevelOK},
		{249, 500, LevelOK},
		{250, 500, LevelWarning}, // boundary inclusive
		{399, 500, LevelWarning},
		{400, 500, LevelHigh},
		{474, 500, LevelHigh},
		{475, 500, LevelCritical},
		{500, 500, LevelCritical},
		{600, 500, LevelCritical},
		{100, 0, LevelOK},  // no cap configured
		{100, -5, LevelOK}, // negative cap treated as no cap
	}
	for _, tc := range cases {
		if got := UsageLevel(tc.used, tc.cap); got != tc.want {
			t.Errorf("UsageLevel(%v, %v) = %v, want %v", tc.used, tc.cap, got, tc.want)
		}
	}
}
