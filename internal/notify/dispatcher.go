package notify

import (
	"fmt"
	"log"
	"time"

	"github.com/taskhive/taskhive/internal/models"
	"github.com/taskhive/taskhive/internal/realtime"
	"github.com/taskhive/taskhive/internal/services"

	"gorm.io/gorm"
)

// Dispatcher consumes service events and periodic jobs, turning them
// into chat messages and websocket pushes. It implements
// services.Sink.
type Dispatcher struct {
	db        *gorm.DB
	tasks     services.TaskService
	messenger Messenger
	hub       *realtime.Hub
}

// Messenger mirrors the bot's outbound interface so the dispatcher
// does not depend on the bot package.
type Messenger interface {
	Send(channelID, text string) error
}

func NewDispatcher(db *gorm.DB, tasks services.TaskService, messenger Messenger, hub *realtime.Hub) *Dispatcher {
	return &Dispatcher{db: db, tasks: tasks, messenger: messenger, hub: hub}
}

// Publish forwards one event to the project channel and the websocket
// stream. Delivery failures are logged, never propagated back into the
// service call that produced the event.
func (d *Dispatcher) Publish(event services.Event) {
	text := eventLine(event)
	if text == "" {
		return
	}

	if channelID := d.channelFor(event); channelID != "" && d.messenger != nil {
		if err := d.messenger.Send(channelID, text); err != nil {
			log.Printf("notify: send to channel %s failed: %v", channelID, err)
		}
	}

	if d.hub != nil {
		for _, userID := range eventAudience(event) {
			if err := d.hub.BroadcastJSON(userID, wsEvent{
				Type: string(event.Type),
				Text: text,
				Task: event.Task,
				At:   event.At,
			}); err != nil {
				log.Printf("notify: websocket broadcast failed: %v", err)
			}
		}
	}
}

type wsEvent struct {
	Type string       `json:"type"`
	Text string       `json:"text"`
	Task *models.Task `json:"task,omitempty"`
	At   time.Time    `json:"at"`
}

func (d *Dispatcher) channelFor(event services.Event) string {
	var projectID any
	switch {
	case event.Task != nil:
		projectID = event.Task.ProjectID
	case event.Entry != nil:
		var task models.Task
		if err := d.db.Select("project_id").Where("id = ?", event.Entry.TaskID).First(&task).Error; err != nil {
			return ""
		}
		projectID = task.ProjectID
	default:
		return ""
	}

	var project models.Project
	if err := d.db.Select("channel_id").Where("id = ?", projectID).First(&project).Error; err != nil {
		return ""
	}
	return project.ChannelID
}

func eventAudience(event services.Event) []string {
	seen := map[string]struct{}{}
	var audience []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		audience = append(audience, id)
	}

	add(event.Actor.String())
	if event.Task != nil {
		add(event.Task.CreatorID.String())
		if event.Task.AssigneeID != nil {
			add(event.Task.AssigneeID.String())
		}
	}
	if event.Entry != nil {
		add(event.Entry.UserID.String())
	}
	return audience
}

func eventLine(event services.Event) string {
	switch event.Type {
	case services.EventTaskCreated:
		return fmt.Sprintf("📋 New task: %s", event.Task.Title)
	case services.EventTaskUpdated:
		if event.Task.Status == models.StatusDone {
			return fmt.Sprintf("✅ Completed: %s", event.Task.Title)
		}
		return fmt.Sprintf("✏️ Updated: %s (%s)", event.Task.Title, event.Task.Status)
	case services.EventTaskDeleted:
		return fmt.Sprintf("🗑 Deleted: %s", event.Task.Title)
	case services.EventTaskAssigned:
		if event.Task.Assignee != nil {
			return fmt.Sprintf("👤 %s assigned to %s", event.Task.Title, event.Task.Assignee.Name())
		}
		return fmt.Sprintf("👤 Assignment changed: %s", event.Task.Title)
	case services.EventTimerStarted:
		return "⏱ Timer started"
	case services.EventTimerStopped:
		return fmt.Sprintf("⏱ Timer stopped, %.2fh", event.Entry.DurationHours)
	}
	return ""
}

// MorningSummary sends each channel the tasks due today.
func (d *Dispatcher) MorningSummary(now time.Time) error {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.Add(24 * time.Hour)

	tasks, err := d.tasks.DueBetween(d.db, start, end, false)
	if err != nil {
		return err
	}
	return d.sendGrouped(tasks, "Good morning! Due today:")
}

// EveningSummary sends each channel what was completed today.
func (d *Dispatcher) EveningSummary(now time.Time) error {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var tasks []models.Task
	err := d.db.
		Where("status = ?", models.StatusDone).
		Where("completed_at >= ? AND completed_at < ?", start, start.Add(24*time.Hour)).
		Find(&tasks).Error
	if err != nil {
		return err
	}
	return d.sendGrouped(tasks, "Wrapping up. Completed today:")
}

// OverdueAlerts sends each channel its overdue tasks.
func (d *Dispatcher) OverdueAlerts(now time.Time) error {
	tasks, err := d.tasks.Overdue(d.db, now)
	if err != nil {
		return err
	}
	return d.sendGrouped(tasks, "⚠️ Overdue:")
}

// sendGrouped groups tasks by their project's channel and sends one
// message per channel. Projects without a bound channel are skipped.
func (d *Dispatcher) sendGrouped(tasks []models.Task, header string) error {
	if d.messenger == nil || len(tasks) == 0 {
		return nil
	}

	byProject := map[any][]models.Task{}
	for _, task := range tasks {
		byProject[task.ProjectID] = append(byProject[task.ProjectID], task)
	}

	for projectID, group := range byProject {
		var project models.Project
		if err := d.db.Select("channel_id").Where("id = ?", projectID).First(&project).Error; err != nil {
			continue
		}
		if project.ChannelID == "" {
			continue
		}

		text := header
		for _, task := range group {
			line := "\n- " + task.Title
			if task.DueDate != nil {
				line += " (due " + task.DueDate.Format("2006-01-02") + ")"
			}
			text += line
		}
		if err := d.messenger.Send(project.ChannelID, text); err != nil {
			log.Printf("notify: summary send to channel %s failed: %v", project.ChannelID, err)
		}
	}
	return nil
}
