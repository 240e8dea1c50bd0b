package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/kitchen-ledger/internal/jobs"
)

func TestStore_SaveAndGet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	job := &jobs.IngestUpdateJob{JobID: "j1", ChatID: 7, Status: jobs.JobStatusPending}
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob() error = %v", err)
	}

	job.Status = jobs.JobStatusRunning
	got, err := s.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Status != jobs.JobStatusPending {
		t.Errorf("stored job changed through caller pointer: %s", got.Status)
	}

	if err := s.SaveJob(ctx, &jobs.IngestUpdateJob{}); err == nil {
		t.Error("expected error saving job without ID")
	}
	if _, err := s.GetJob(ctx, "missing"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("GetJob(missing) error = %v, want ErrJobNotFound", err)
	}
}

func TestStore_ListJobs(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	for i, j := range []*jobs.IngestUpdateJob{
		{JobID: "a", ChatID: 1, Status: jobs.JobStatusCompleted},
		{JobID: "b", ChatID: 2, Status: jobs.JobStatusFailed, Stage: "extracting"},
		{JobID: "c", ChatID: 1, Status: jobs.JobStatusFailed, Stage: "persisting"},
		{JobID: "d", ChatID: 1, Status: jobs.JobStatusCompleted},
	} {
		j.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.SaveJob(ctx, j); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"all newest first", jobs.JobFilter{}, []string{"d", "c", "b", "a"}},
		{"by chat", jobs.JobFilter{ChatID: 1}, []string{"d", "c", "a"}},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusFailed}, []string{"c", "b"}},
		{"by stage", jobs.JobFilter{Stage: "extracting"}, []string{"b"}},
		{"limit", jobs.JobFilter{Limit: 2}, []string{"d", "c"}},
		{"offset", jobs.JobFilter{Offset: 3}, []string{"a"}},
		{"offset past end", jobs.JobFilter{Offset: 9}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListJobs() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ListJobs() returned %d jobs, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].JobID != id {
					t.Errorf("job[%d] = %s, want %s", i, got[i].JobID, id)
				}
			}
		})
	}
}

func TestStore_EvictsOldestFinishedJobs(t *testing.T) {
	s := NewStoreWithLimit(2)
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	for i, j := range []*jobs.IngestUpdateJob{
		{JobID: "old-running", Status: jobs.JobStatusRunning},
		{JobID: "old-done", Status: jobs.JobStatusCompleted},
		{JobID: "new-failed", Status: jobs.JobStatusFailed},
	} {
		j.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.SaveJob(ctx, j); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := s.GetJob(ctx, "old-done"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("oldest finished job should be evicted, GetJob error = %v", err)
	}
	for _, id := range []string{"old-running", "new-failed"} {
		if _, err := s.GetJob(ctx, id); err != nil {
			t.Errorf("GetJob(%s) error = %v", id, err)
		}
	}
}
