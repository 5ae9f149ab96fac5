package worker

import (
	"log"
	"sync"
	"time"
)

// Scheduler enqueues the periodic jobs: daily summaries at the
// configured hours, hourly overdue alerts, and regular maintenance
// sweeps for recurring tasks and stale timers.
type Scheduler struct {
	queue        *JobQueue
	morningHour  int
	eveningHour  int
	sweepEvery   time.Duration
	done         chan struct{}
	once         sync.Once
	lastSummary  map[JobType]string
	lastSummaryM sync.Mutex
}

func NewScheduler(queue *JobQueue, morningHour, eveningHour int) *Scheduler {
	return &Scheduler{
		queue:       queue,
		morningHour: morningHour,
		eveningHour: eveningHour,
		sweepEvery:  15 * time.Minute,
		done:        make(chan struct{}),
		lastSummary: make(map[JobType]string),
	}
}

func (s *Scheduler) Start() {
	go s.loop()
}

func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}

// Tick enqueues whatever is due at the given instant. Exposed for the
// main loop and tests; safe to call more than once per period because
// daily jobs are deduplicated per day and the sweeps are idempotent.
func (s *Scheduler) Tick(now time.Time) {
	if now.Hour() == s.morningHour {
		s.enqueueDaily(JobTypeMorningSummary, QueueNotifications, now)
	}
	if now.Hour() == s.eveningHour {
		s.enqueueDaily(JobTypeEveningSummary, QueueNotifications, now)
	}
	if now.Minute() == 0 {
		s.enqueue(JobTypeOverdueAlerts, QueueNotifications)
	}
	if now.Minute()%int(s.sweepEvery.Minutes()) == 0 {
		s.enqueue(JobTypeRecurringTasks, QueueMaintenance)
		s.enqueue(JobTypeStaleTimers, QueueMaintenance)
	}
}

func (s *Scheduler) enqueue(jobType JobType, queue string) {
	if err := s.queue.Enqueue(queue, jobType, nil); err != nil {
		log.Printf("scheduler: enqueue %s failed: %v", jobType, err)
	}
}

// enqueueDaily runs a job at most once per calendar day even though
// Tick fires every minute of the target hour.
func (s *Scheduler) enqueueDaily(jobType JobType, queue string, now time.Time) {
	day := now.Format("2006-01-02")

	s.lastSummaryM.Lock()
	already := s.lastSummary[jobType] == day
	if !already {
		s.lastSummary[jobType] = day
	}
	s.lastSummaryM.Unlock()

	if already {
		return
	}
	s.enqueue(jobType, queue)
}
