package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shedboard/shedboard-api/internal/models"
)

func TestScrapeJobRepository_InsertAndFinish(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	club := insertTestClub(t, repos, "alpha")

	job := &models.ScrapeJob{ClubID: club.ID}
	if err := repos.ScrapeJob.Insert(ctx, job); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if job.ID == "" || job.Status != models.ScrapeJobRunning {
		t.Fatalf("Insert() defaults not applied: %+v", job)
	}

	job.Status = models.ScrapeJobCompleted
	job.BoatsCount = 5
	job.BookingsCount = 42
	if err := repos.ScrapeJob.Finish(ctx, repos.DB, job); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	jobs, err := repos.ScrapeJob.LastN(ctx, club.ID, 10)
	if err != nil {
		t.Fatalf("LastN() error = %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("LastN() = %d jobs, want 1", len(jobs))
	}
	got := jobs[0]
	if got.Status != models.ScrapeJobCompleted || got.BoatsCount != 5 || got.BookingsCount != 42 {
		t.Errorf("job = %+v", got)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt not recorded")
	}
}

func TestScrapeJobRepository_FinishUnknownJob(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	club := insertTestClub(t, repos, "alpha")

	job := &models.ScrapeJob{ID: "missing", ClubID: club.ID, Status: models.ScrapeJobFailed, StartedAt: time.Now()}
	if err := repos.ScrapeJob.Finish(ctx, repos.DB, job); err == nil {
		t.Error("Finish() on unknown job succeeded, want error")
	}
}

func TestScrapeJobRepository_LastN_NewestFirst(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	club := insertTestClub(t, repos, "alpha")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		job := &models.ScrapeJob{
			ClubID:    club.ID,
			Status:    models.ScrapeJobCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repos.ScrapeJob.Insert(ctx, job); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	jobs, err := repos.ScrapeJob.LastN(ctx, club.ID, 3)
	if err != nil {
		t.Fatalf("LastN() error = %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("LastN() = %d jobs, want 3", len(jobs))
	}
	for i := 1; i < len(jobs); i++ {
		if jobs[i].StartedAt.After(jobs[i-1].StartedAt) {
			t.Errorf("jobs not newest first: %v then %v", jobs[i-1].StartedAt, jobs[i].StartedAt)
		}
	}
}

func TestScrapeJobRepository_LastSuccessTimes(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	clubA := insertTestClub(t, repos, "alpha")
	clubB := insertTestClub(t, repos, "bravo")

	// A: one completed job. B: only a failed job.
	jobA := &models.ScrapeJob{ClubID: clubA.ID, StartedAt: time.Now().Add(-10 * time.Minute)}
	if err := repos.ScrapeJob.Insert(ctx, jobA); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	jobA.Status = models.ScrapeJobCompleted
	if err := repos.ScrapeJob.Finish(ctx, repos.DB, jobA); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	jobB := &models.ScrapeJob{ClubID: clubB.ID, StartedAt: time.Now().Add(-10 * time.Minute)}
	if err := repos.ScrapeJob.Insert(ctx, jobB); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	jobB.Status = models.ScrapeJobFailed
	jobB.Error = "upstream down"
	if err := repos.ScrapeJob.Finish(ctx, repos.DB, jobB); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	times, err := repos.ScrapeJob.LastSuccessTimes(ctx)
	if err != nil {
		t.Fatalf("LastSuccessTimes() error = %v", err)
	}
	if _, ok := times[clubA.ID]; !ok {
		t.Error("club A missing from success times")
	}
	if _, ok := times[clubB.ID]; ok {
		t.Error("club B has no completed job but appears in success times")
	}
}

func TestScrapeJobRepository_StatsSince(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	club := insertTestClub(t, repos, "alpha")

	mk := func(status models.ScrapeJobStatus, age time.Duration) {
		t.Helper()
		job := &models.ScrapeJob{ClubID: club.ID, StartedAt: time.Now().Add(-age)}
		if err := repos.ScrapeJob.Insert(ctx, job); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		job.Status = status
		if err := repos.ScrapeJob.Finish(ctx, repos.DB, job); err != nil {
			t.Fatalf("Finish() error = %v", err)
		}
	}

	mk(models.ScrapeJobCompleted, 1*time.Hour)
	mk(models.ScrapeJobCompleted, 2*time.Hour)
	mk(models.ScrapeJobFailed, 3*time.Hour)
	mk(models.ScrapeJobCompleted, 48*time.Hour) // outside the window

	stats, err := repos.ScrapeJob.StatsSince(ctx, club.ID, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("StatsSince() error = %v", err)
	}
	if stats.SuccessCount != 2 {
		t.Errorf("SuccessCount = %d, want 2", stats.SuccessCount)
	}
	if stats.FailureCount != 1 {
		t.Errorf("FailureCount = %d, want 1", stats.FailureCount)
	}
}

func TestScrapeJobRepository_MarkStaleRunningFailed(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	club := insertTestClub(t, repos, "alpha")

	stale := &models.ScrapeJob{ClubID: club.ID, StartedAt: time.Now().Add(-3 * time.Hour)}
	if err := repos.ScrapeJob.Insert(ctx, stale); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	fresh := &models.ScrapeJob{ClubID: club.ID, StartedAt: time.Now()}
	if err := repos.ScrapeJob.Insert(ctx, fresh); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	n, err := repos.ScrapeJob.MarkStaleRunningFailed(ctx, time.Hour)
	if err != nil {
		t.Fatalf("MarkStaleRunningFailed() error = %v", err)
	}
	if n != 1 {
		t.Errorf("swept %d jobs, want 1", n)
	}

	jobs, err := repos.ScrapeJob.LastN(ctx, club.ID, 10)
	if err != nil {
		t.Fatalf("LastN() error = %v", err)
	}
	for _, j := range jobs {
		switch j.ID {
		case stale.ID:
			if j.Status != models.ScrapeJobFailed {
				t.Errorf("stale job status = %s, want failed", j.Status)
			}
		case fresh.ID:
			if j.Status != models.ScrapeJobRunning {
				t.Errorf("fresh job status = %s, want still running", j.Status)
			}
		}
	}
}
