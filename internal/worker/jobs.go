package worker

import (
	"context"
	"time"

	"github.com/taskhive/taskhive/internal/notify"
	"github.com/taskhive/taskhive/internal/services"

	"gorm.io/gorm"
)

// Handlers binds job types to the services that do the actual work.
type Handlers struct {
	DB         *gorm.DB
	Tasks      services.TaskService
	Timers     services.TimerService
	Dispatcher *notify.Dispatcher

	// StaleTimerAfter is how long a timer may run before the
	// maintenance job force-stops it.
	StaleTimerAfter time.Duration
}

// Register wires every job type onto the worker.
func (h *Handlers) Register(w *Worker) {
	w.RegisterHandler(JobTypeMorningSummary, h.morningSummary)
	w.RegisterHandler(JobTypeEveningSummary, h.eveningSummary)
	w.RegisterHandler(JobTypeOverdueAlerts, h.overdueAlerts)
	w.RegisterHandler(JobTypeRecurringTasks, h.recurringTasks)
	w.RegisterHandler(JobTypeStaleTimers, h.staleTimers)
	w.RegisterHandler(JobTypeTaskReminder, h.taskReminder)
}

func (h *Handlers) morningSummary(ctx context.Context, job *Job) error {
	return h.Dispatcher.MorningSummary(time.Now())
}

func (h *Handlers) eveningSummary(ctx context.Context, job *Job) error {
	return h.Dispatcher.EveningSummary(time.Now())
}

func (h *Handlers) overdueAlerts(ctx context.Context, job *Job) error {
	return h.Dispatcher.OverdueAlerts(time.Now())
}

func (h *Handlers) recurringTasks(ctx context.Context, job *Job) error {
	_, err := h.Tasks.ProcessRecurring(h.DB, time.Now())
	return err
}

func (h *Handlers) staleTimers(ctx context.Context, job *Job) error {
	after := h.StaleTimerAfter
	if after <= 0 {
		after = 12 * time.Hour
	}
	_, err := h.Timers.CloseStale(h.DB, after, time.Now())
	return err
}

// taskReminder re-sends the overdue alert for ad-hoc reminder jobs
// enqueued via the API.
func (h *Handlers) taskReminder(ctx context.Context, job *Job) error {
	return h.Dispatcher.OverdueAlerts(time.Now())
}
