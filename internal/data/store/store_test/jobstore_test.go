package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/akolanti/GroundedRAG/internal/config"
	"github.com/akolanti/GroundedRAG/internal/data/redisStore"
	"github.com/akolanti/GroundedRAG/internal/data/store"
	"github.com/akolanti/GroundedRAG/internal/domain/jobModel"
	"github.com/akolanti/GroundedRAG/internal/rag/memory"
)

func TestRedisJobStore_Lifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	internalStore := redisStore.NewTestStore(client)
	jobStore := store.NewRedisJobStore(internalStore)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	jobID := "job_abc_123"

	testJob := jobModel.Job{
		Id:     jobID,
		Status: jobModel.JobStatusRunning,
		JobPayload: jobModel.JobPayload{
			Mode:     jobModel.ModeGetPage,
			Question: "What is on page 3?",
			Page:     func() *int { p := 3; return &p }(),
		},
	}

	t.Run("Save and Get Roundtrip", func(t *testing.T) {
		err := jobStore.SaveJob(ctx, testJob)
		if err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}

		retrievedJob, found := jobStore.GetJob(ctx, jobID)
		if !found {
			t.Fatal("Job was saved but not found in Redis")
		}

		if retrievedJob.JobPayload.Question != testJob.JobPayload.Question {
			t.Errorf("Data mismatch! Got %s, want %s",
				retrievedJob.JobPayload.Question, testJob.JobPayload.Question)
		}
		if retrievedJob.JobPayload.Page == nil || *retrievedJob.JobPayload.Page != 3 {
			t.Errorf("page lost in roundtrip")
		}
		if ttl := mr.TTL(jobID); ttl != config.RedisJobStoreTTL {
			t.Errorf("expected ttl %v, got %v", config.RedisJobStoreTTL, ttl)
		}
	})

	t.Run("Get Non-Existent Job", func(t *testing.T) {
		_, found := jobStore.GetJob(ctx, "ghost-id")
		if found {
			t.Error("Expected found=false for non-existent key")
		}
	})

	t.Run("Delete Job", func(t *testing.T) {
		jobStore.DeleteJob(ctx, jobID)
		if mr.Exists(jobID) {
			t.Error("Job still exists in Redis after DeleteJob call")
		}
	})
}

func TestRedisJobStore_Race(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	jobStore := store.NewRedisJobStore(redisStore.NewTestStore(client))

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "race-trace")
	job := jobModel.Job{Id: "race-job"}

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = jobStore.SaveJob(ctx, job)
			_, _ = jobStore.GetJob(ctx, "race-job")
		}()
	}
	wg.Wait()
	if _, found := jobStore.GetJob(ctx, "race-job"); !found {
		t.Error("job missing after concurrent saves")
	}
}

func TestRedisSessionStore_Lifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := store.NewRedisSessionStore(redisStore.NewTestStore(client), time.Hour)
	ctx := context.Background()

	if _, found, err := sessions.Load(ctx, "s1"); err != nil || found {
		t.Fatalf("expected a miss, got found=%v err=%v", found, err)
	}

	snap := memory.Snapshot{
		SessionID:         "s1",
		TopicSummary:      "survival rates",
		ReferencedSources: []string{"trial.pdf p.3"},
		RecentTurns:       []memory.Turn{{Question: "What was the median survival?"}},
	}
	if err := sessions.Save(ctx, snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, found, err := sessions.Load(ctx, "s1")
	if err != nil || !found {
		t.Fatalf("expected a hit, got found=%v err=%v", found, err)
	}
	if got.TopicSummary != snap.TopicSummary || len(got.RecentTurns) != 1 {
		t.Errorf("snapshot mismatch: %+v", got)
	}

	mr.FastForward(2 * time.Hour)
	if _, found, _ := sessions.Load(ctx, "s1"); found {
		t.Error("session should expire with the ttl")
	}
}

func TestInMemorySessionStore(t *testing.T) {
	sessions := store.InitInMemorySessionStore(10, time.Hour)
	ctx := context.Background()

	if err := sessions.Save(ctx, memory.Snapshot{SessionID: "s1", TopicSummary: "x"}); err != nil {
		t.Fatal(err)
	}
	if got, found, _ := sessions.Load(ctx, "s1"); !found || got.TopicSummary != "x" {
		t.Errorf("expected stored snapshot, got %+v found=%v", got, found)
	}
	_ = sessions.Delete(ctx, "s1")
	if _, found, _ := sessions.Load(ctx, "s1"); found {
		t.Error("session should be deleted")
	}
}

func TestManagerOverRedis_SameQuestionTwice(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := store.NewRedisSessionStore(redisStore.NewTestStore(client), time.Hour)
	mgr := memory.NewManager(sessions, config.MemorySettings{MaxTurns: 4, MaxSources: 8}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := mgr.Update(ctx, "s1", "What was the response rate?", "45% (n=120)", []string{"trial.pdf p.4"}); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}
	hint, err := mgr.Hint(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(hint.ReferencedSources) != 1 || len(hint.RecentTurns) != 2 {
		t.Errorf("expected 1 source and 2 turns, got %+v", hint)
	}
}
