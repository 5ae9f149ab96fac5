package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/taskhive/taskhive/internal/worker"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestJobQueueEnqueue(t *testing.T) {
	client := setupRedis(t)
	queue := worker.NewJobQueue(client)

	if err := queue.Enqueue(worker.QueueDefault, worker.JobTypeOverdueAlerts, nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := queue.Enqueue(worker.QueueDefault, worker.JobTypeStaleTimers, map[string]interface{}{"reason": "test"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	size, err := queue.GetQueueSize(worker.QueueDefault)
	if err != nil {
		t.Fatalf("queue size: %v", err)
	}
	if size != 2 {
		t.Errorf("Expected queue size 2, got %d", size)
	}
}

func TestWorkerProcessesJob(t *testing.T) {
	client := setupRedis(t)
	queue := worker.NewJobQueue(client)

	w := worker.NewWorker(worker.WorkerConfig{RedisClient: client})

	processed := make(chan worker.JobType, 1)
	w.RegisterHandler(worker.JobTypeRecurringTasks, func(ctx context.Context, job *worker.Job) error {
		processed <- job.Type
		return nil
	})

	w.Start(1)
	defer w.Stop()

	if err := queue.Enqueue(worker.QueueMaintenance, worker.JobTypeRecurringTasks, nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case jobType := <-processed:
		if jobType != worker.JobTypeRecurringTasks {
			t.Errorf("Expected job type %s, got %s", worker.JobTypeRecurringTasks, jobType)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("job was not processed in time")
	}
}

func TestSchedulerTick(t *testing.T) {
	client := setupRedis(t)
	queue := worker.NewJobQueue(client)

	scheduler := worker.NewScheduler(queue, 8, 20)
	defer scheduler.Stop()

	// 08:00 triggers the morning summary, hourly alerts and sweeps.
	morning := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	scheduler.Tick(morning)

	notif, err := queue.GetQueueSize(worker.QueueNotifications)
	if err != nil {
		t.Fatalf("queue size: %v", err)
	}
	if notif != 2 {
		t.Errorf("Expected 2 notification jobs, got %d", notif)
	}

	maint, err := queue.GetQueueSize(worker.QueueMaintenance)
	if err != nil {
		t.Fatalf("queue size: %v", err)
	}
	if maint != 2 {
		t.Errorf("Expected 2 maintenance jobs, got %d", maint)
	}

	// The same hour on the same day does not re-enqueue the summary.
	scheduler.Tick(morning.Add(time.Minute))
	notif, _ = queue.GetQueueSize(worker.QueueNotifications)
	if notif != 2 {
		t.Errorf("Expected morning summary to run once per day, queue size %d", notif)
	}

	// The next day it fires again.
	scheduler.Tick(morning.Add(24 * time.Hour))
	notif, _ = queue.GetQueueSize(worker.QueueNotifications)
	if notif != 4 {
		t.Errorf("Expected next-day summary plus hourly alert, queue size %d", notif)
	}
}
