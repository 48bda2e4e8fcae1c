package filter

import (
	"testing"
	"time"

	"leadscout-engine/internal/domain"
)

func TestParseSalaryNumeric(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"", -1},
		{"not listed", -1},
		{"$120,000", 120000},
		{"£45K", 45000},
		{"$50K - $70K", 50000}, // first number wins
		{"$80/hr", 160000},     // hourly ×2000
		{"£500 per day", 125000},
		{"€95000", 95000},
	}
	for _, tc := range cases {
		if got := ParseSalaryNumeric(tc.in); got != tc.want {
			t.Errorf("ParseSalaryNumeric(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSortSalaryHigh(t *testing.T) {
	jobs := []domain.Job{
		{ID: "a", Salary: "$50K"},
		{ID: "b", Salary: "not listed"},
		{ID: "c", Salary: "$80/hr"},
		{ID: "d", Salary: "120,000"},
	}
	out := SortJobs(jobs, SortSalaryHigh, "")

	want := []string{"c", "d", "a", "b"}
	for i, id := range want {
		if out[i].ID != id {
			t.Fatalf("order = %v, want %v", ids(out), want)
		}
	}
	// Input untouched.
	if jobs[0].ID != "a" {
		t.Fatal("SortJobs mutated its input")
	}
}

func TestSortSalaryHighStable(t *testing.T) {
	jobs := []domain.Job{
		{ID: "a", Salary: ""},
		{ID: "b", Salary: "n/a"},
		{ID: "c", Salary: ""},
	}
	out := SortJobs(jobs, SortSalaryHigh, "")
	want := []string{"a", "b", "c"}
	for i, id := range want {
		if out[i].ID != id {
			t.Fatalf("equal keys reordered: %v", ids(out))
		}
	}
}

func TestSortRecent(t *testing.T) {
	base := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	jobs := []domain.Job{
		{ID: "old", PostedAt: base.Add(-48 * time.Hour)},
		{ID: "new", PostedAt: base},
		{ID: "mid", PostedAt: base.Add(-24 * time.Hour)},
	}
	out := SortJobs(jobs, SortRecent, "")
	want := []string{"new", "mid", "old"}
	for i, id := range want {
		if out[i].ID != id {
			t.Fatalf("order = %v, want %v", ids(out), want)
		}
	}
}

func TestSortCompanyAZ(t *testing.T) {
	jobs := []domain.Job{
		{ID: "1", Company: "zeta"},
		{ID: "2", Company: "Alpha"},
		{ID: "3", Company: "beta"},
	}
	out := SortJobs(jobs, SortCompanyAZ, "")
	want := []string{"2", "3", "1"}
	for i, id := range want {
		if out[i].ID != id {
			t.Fatalf("order = %v, want %v", ids(out), want)
		}
	}
}

func TestSortRelevance(t *testing.T) {
	jobs := []domain.Job{
		{ID: "none", Title: "Chef"},
		{ID: "title", Title: "Golang Engineer"},
		{ID: "both", Title: "Golang Engineer", Description: "golang services"},
		{ID: "desc", Title: "Engineer", Description: "we use golang"},
	}
	out := SortJobs(jobs, SortRelevance, "golang")
	want := []string{"both", "title", "desc", "none"}
	for i, id := range want {
		if out[i].ID != id {
			t.Fatalf("order = %v, want %v", ids(out), want)
		}
	}
}

func TestKeywordScore(t *testing.T) {
	j := domain.Job{Title: "Golang Engineer", Description: "golang and kubernetes"}
	words := []string{"golang", "kubernetes"}
	// golang: title +2, desc +1; kubernetes: desc +1.
	if got := KeywordScore(j, words); got != 4 {
		t.Errorf("KeywordScore = %d, want 4", got)
	}
}
