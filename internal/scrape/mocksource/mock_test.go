package mocksource

import (
	"context"
	"testing"

	"leadscout-engine/internal/domain"
	"leadscout-engine/internal/scrape"
)

func TestRunReportsRunningThenSucceeded(t *testing.T) {
	s := New()
	s.PollsUntilDone = 2
	ctx := context.Background()

	handle, err := s.StartRun(ctx, scrape.Options{JobTitle: "Engineer", MaxResults: 5})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		status, err := s.RunStatus(ctx, handle.RunID)
		if err != nil {
			t.Fatal(err)
		}
		if status != domain.RunRunning {
			t.Fatalf("poll %d status = %q, want RUNNING", i+1, status)
		}
	}
	status, err := s.RunStatus(ctx, handle.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if status != domain.RunSucceeded {
		t.Fatalf("status = %q, want SUCCEEDED", status)
	}
}

func TestUnknownRunReadsFailed(t *testing.T) {
	s := New()
	status, err := s.RunStatus(context.Background(), "no-such-run")
	if err != nil {
		t.Fatal(err)
	}
	if status != domain.RunFailed {
		t.Fatalf("status = %q, want FAILED", status)
	}
}

func TestFetchPagePaginates(t *testing.T) {
	s := New()
	ctx := context.Background()
	handle, err := s.StartRun(ctx, scrape.Options{JobTitle: "Engineer", MaxResults: 5})
	if err != nil {
		t.Fatal(err)
	}

	page1, err := s.FetchPage(ctx, handle.DatasetID, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	page2, err := s.FetchPage(ctx, handle.DatasetID, 3, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(page1) != 3 || len(page2) != 2 {
		t.Fatalf("pages = %d/%d, want 3/2", len(page1), len(page2))
	}
	if page1[0].JobID == page2[0].JobID {
		t.Fatal("pages overlap")
	}

	empty, err := s.FetchPage(ctx, handle.DatasetID, 5, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Fatalf("past-the-end page = %d items, want 0", len(empty))
	}
}
