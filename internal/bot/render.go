package bot

import (
	"fmt"
	"strings"

	"github.com/taskhive/taskhive/internal/models"

	"github.com/gofrs/uuid"
)

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

var priorityMarks = map[models.TaskPriority]string{
	models.PriorityLow:    "·",
	models.PriorityMedium: "•",
	models.PriorityHigh:   "!",
	models.PriorityUrgent: "‼",
}

func renderTask(task *models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s (%s", shortID(task.ID), priorityMarks[task.Priority], task.Title, task.Status)
	if task.DueDate != nil {
		fmt.Fprintf(&b, ", due %s", task.DueDate.Format("2006-01-02"))
	}
	if task.Assignee != nil {
		fmt.Fprintf(&b, ", %s", task.Assignee.Name())
	}
	b.WriteString(")")
	return b.String()
}

func renderTaskDetail(task *models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nID: %s\nStatus: %s\nPriority: %s\n", task.Title, task.ID, task.Status, task.Priority)
	if task.Project != nil {
		fmt.Fprintf(&b, "Project: %s\n", task.Project.Name)
	}
	if task.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", task.Description)
	}
	if task.DueDate != nil {
		fmt.Fprintf(&b, "Due: %s\n", task.DueDate.Format("2006-01-02 15:04"))
	}
	if task.Assignee != nil {
		fmt.Fprintf(&b, "Assignee: %s\n", task.Assignee.Name())
	}
	if len(task.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(task.Tags, ", "))
	}
	for name, value := range task.CustomFields {
		fmt.Fprintf(&b, "%s: %v\n", name, value)
	}
	if total := task.TotalHours(); total > 0 {
		fmt.Fprintf(&b, "Time logged: %.2fh\n", total)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderTaskList(tasks []models.Task) string {
	if len(tasks) == 0 {
		return "No tasks."
	}
	lines := make([]string, 0, len(tasks))
	for i := range tasks {
		lines = append(lines, renderTask(&tasks[i]))
	}
	return strings.Join(lines, "\n")
}

func renderProjectList(projects []models.Project) string {
	if len(projects) == 0 {
		return "No projects yet. Create one with `project create <name>`."
	}
	lines := make([]string, 0, len(projects))
	for i := range projects {
		p := &projects[i]
		lines = append(lines, fmt.Sprintf("[%s] %s (%d members)", shortID(p.ID), p.Name, len(p.Members)))
	}
	return strings.Join(lines, "\n")
}

func renderProjectDetail(project *models.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nID: %s\n", project.Name, project.ID)
	if project.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", project.Description)
	}
	if len(project.Members) > 0 {
		names := make([]string, 0, len(project.Members))
		for i := range project.Members {
			names = append(names, project.Members[i].Name())
		}
		fmt.Fprintf(&b, "Members: %s\n", strings.Join(names, ", "))
	}
	if !project.IsActive {
		b.WriteString("(archived)\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderActiveTimers(entries []models.TimeEntry) string {
	if len(entries) == 0 {
		return "No running timers."
	}
	lines := make([]string, 0, len(entries))
	for i := range entries {
		entry := &entries[i]
		title := shortID(entry.TaskID)
		if entry.Task != nil {
			title = entry.Task.Title
		}
		lines = append(lines, fmt.Sprintf("%s: running since %s", title, entry.StartTime.Format("15:04")))
	}
	return strings.Join(lines, "\n")
}

func helpText(prefix string) string {
	return strings.ReplaceAll(`Commands:
  !task add <title> [--project P] [--priority p] [--due YYYY-MM-DD] [--assign @user] [--tags a,b]
  !task show|edit|done|delete <id>
  !task list [--project P] [--status s] [--assignee @user] [--sort due|priority|created]
  !task overdue | !task search <query>
  !project create <name> [description]
  !project list | show <id> | archive <id>
  !project member add|remove <id> @user
  !timer start|stop <task-id> | !timer active | !timer log <task-id> <hours>
  !timezone <tz>`, "!", prefix)
}
