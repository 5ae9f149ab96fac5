package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/models"
	"github.com/taskhive/taskhive/internal/services"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const deleteTokenTTL = 2 * time.Minute

// Router turns chat messages into service calls. Each command maps
// 1:1 onto a service operation; replies are plain text through the
// Messenger.
type Router struct {
	db        *gorm.DB
	prefix    string
	features  config.FeatureConfig
	users     services.UserService
	projects  services.ProjectService
	tasks     services.TaskService
	timers    services.TimerService
	messenger Messenger

	mu      sync.Mutex
	pending map[string]pendingDelete
}

// pendingDelete is an issued confirmation for a destructive command.
type pendingDelete struct {
	taskID  uuid.UUID
	token   string
	expires time.Time
}

type RouterDeps struct {
	DB        *gorm.DB
	Users     services.UserService
	Projects  services.ProjectService
	Tasks     services.TaskService
	Timers    services.TimerService
	Messenger Messenger
}

func NewRouter(cfg config.BotConfig, features config.FeatureConfig, deps RouterDeps) *Router {
	prefix := cfg.CommandPrefix
	if prefix == "" {
		prefix = "!"
	}
	return &Router{
		db:        deps.DB,
		prefix:    prefix,
		features:  features,
		users:     deps.Users,
		projects:  deps.Projects,
		tasks:     deps.Tasks,
		timers:    deps.Timers,
		messenger: deps.Messenger,
		pending:   make(map[string]pendingDelete),
	}
}

// HandleMessage processes one incoming message. Messages without the
// command prefix are ignored.
func (r *Router) HandleMessage(msg Message) error {
	if !strings.HasPrefix(msg.Text, r.prefix) {
		return nil
	}

	user, err := r.users.GetOrCreate(r.db, msg.ChatID, msg.Username, msg.DisplayName, msg.AvatarURL)
	if err != nil {
		return err
	}

	tokens := tokenize(strings.TrimPrefix(msg.Text, r.prefix))
	if len(tokens) == 0 {
		return r.reply(msg, "Say `"+r.prefix+"help` for the command list.")
	}

	switch tokens[0] {
	case "help":
		return r.reply(msg, helpText(r.prefix))
	case "task":
		return r.handleTask(msg, user, tokens[1:])
	case "project":
		return r.handleProject(msg, user, tokens[1:])
	case "timer":
		return r.handleTimer(msg, user, tokens[1:])
	case "timezone":
		return r.handleTimezone(msg, user, tokens[1:])
	default:
		return r.reply(msg, fmt.Sprintf("Unknown command %q. Try `%shelp`.", tokens[0], r.prefix))
	}
}

func (r *Router) reply(msg Message, text string) error {
	return r.messenger.Send(msg.ChannelID, text)
}

// replyErr renders service errors as user-facing text.
func (r *Router) replyErr(msg Message, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return r.reply(msg, "Not found: "+err.Error())
	case errors.Is(err, services.ErrValidation):
		return r.reply(msg, "That doesn't work: "+err.Error())
	case errors.Is(err, services.ErrConflict):
		return r.reply(msg, "Conflict: "+err.Error())
	case errors.Is(err, services.ErrPermissionDenied):
		return r.reply(msg, "You can't do that: "+err.Error())
	default:
		return r.reply(msg, "Something went wrong, try again later.")
	}
}

func (r *Router) handleTask(msg Message, user *models.User, args []string) error {
	if len(args) == 0 {
		return r.reply(msg, "Usage: task add|show|edit|done|delete|list|overdue|search")
	}

	positional, flags := splitArgs(args[1:])

	switch args[0] {
	case "add":
		return r.taskAdd(msg, user, positional, flags)
	case "show":
		return r.taskShow(msg, positional)
	case "edit":
		return r.taskEdit(msg, user, positional, flags)
	case "done":
		return r.taskDone(msg, user, positional)
	case "delete":
		return r.taskDelete(msg, user, positional, flags)
	case "list":
		return r.taskList(msg, flags)
	case "overdue":
		return r.taskOverdue(msg)
	case "search":
		return r.taskSearch(msg, positional)
	default:
		return r.reply(msg, fmt.Sprintf("Unknown task subcommand %q.", args[0]))
	}
}

func (r *Router) taskAdd(msg Message, user *models.User, positional []string, flags map[string]string) error {
	if len(positional) == 0 {
		return r.reply(msg, "Usage: task add <title> [--project P] [--priority p] [--due YYYY-MM-DD] [--assign @user] [--tags a,b]")
	}

	project, err := r.resolveProject(msg, flags["project"])
	if err != nil {
		return r.replyErr(msg, err)
	}

	input := services.CreateTaskInput{
		ProjectID: project.ID,
		CreatorID: user.ID,
		Title:     strings.Join(positional, " "),
		Priority:  models.TaskPriority(flags["priority"]),
	}
	if raw, ok := flags["due"]; ok {
		due, err := parseDue(raw, user.Timezone)
		if err != nil {
			return r.reply(msg, "I can't read that due date, use YYYY-MM-DD.")
		}
		input.DueDate = &due
	}
	if raw, ok := flags["assign"]; ok {
		assignee, err := r.resolveUser(raw)
		if err != nil {
			return r.replyErr(msg, err)
		}
		input.AssigneeID = &assignee.ID
	}
	if raw, ok := flags["tags"]; ok {
		input.Tags = splitTags(raw)
	}

	task, err := r.tasks.Create(r.db, input)
	if err != nil {
		return r.replyErr(msg, err)
	}
	return r.reply(msg, fmt.Sprintf("Created task %s in %s.\n%s", shortID(task.ID), project.Name, renderTask(task)))
}

func (r *Router) taskShow(msg Message, positional []string) error {
	id, err := r.resolveTaskID(positional)
	if err != nil {
		return r.reply(msg, err.Error())
	}
	task, err := r.tasks.Get(r.db, id)
	if err != nil {
		return r.replyErr(msg, err)
	}
	return r.reply(msg, renderTaskDetail(task))
}

func (r *Router) taskEdit(msg Message, user *models.User, positional []string, flags map[string]string) error {
	id, err := r.resolveTaskID(positional)
	if err != nil {
		return r.reply(msg, err.Error())
	}

	patch := services.TaskPatch{}
	touched := false
	if raw, ok := flags["title"]; ok {
		patch.Title = &raw
		touched = true
	}
	if raw, ok := flags["status"]; ok {
		status := models.TaskStatus(raw)
		patch.Status = &status
		touched = true
	}
	if raw, ok := flags["priority"]; ok {
		priority := models.TaskPriority(raw)
		patch.Priority = &priority
		touched = true
	}
	if raw, ok := flags["due"]; ok {
		if raw == "none" {
			patch.ClearDueDate = true
		} else {
			due, err := parseDue(raw, user.Timezone)
			if err != nil {
				return r.reply(msg, "I can't read that due date, use YYYY-MM-DD.")
			}
			patch.DueDate = &due
		}
		touched = true
	}
	if !touched {
		return r.reply(msg, "Nothing to change. Use --title, --status, --priority or --due.")
	}

	task, err := r.tasks.Update(r.db, user.ID, id, patch)
	if err != nil {
		return r.replyErr(msg, err)
	}
	return r.reply(msg, "Updated.\n"+renderTask(task))
}

func (r *Router) taskDone(msg Message, user *models.User, positional []string) error {
	id, err := r.resolveTaskID(positional)
	if err != nil {
		return r.reply(msg, err.Error())
	}
	done := models.StatusDone
	task, err := r.tasks.Update(r.db, user.ID, id, services.TaskPatch{Status: &done})
	if err != nil {
		return r.replyErr(msg, err)
	}
	return r.reply(msg, fmt.Sprintf("Done: %s ✔", task.Title))
}

// taskDelete requires a confirmation token: the first call issues one,
// repeating the command with --confirm <token> performs the delete.
func (r *Router) taskDelete(msg Message, user *models.User, positional []string, flags map[string]string) error {
	id, err := r.resolveTaskID(positional)
	if err != nil {
		return r.reply(msg, err.Error())
	}

	confirm, hasConfirm := flags["confirm"]

	r.mu.Lock()
	issued, ok := r.pending[msg.ChatID]
	if ok && time.Now().After(issued.expires) {
		delete(r.pending, msg.ChatID)
		ok = false
	}

	if !hasConfirm || !ok || issued.taskID != id || issued.token != confirm {
		token := shortID(uuid.Must(uuid.NewV4()))
		r.pending[msg.ChatID] = pendingDelete{taskID: id, token: token, expires: time.Now().Add(deleteTokenTTL)}
		r.mu.Unlock()
		return r.reply(msg, fmt.Sprintf(
			"This permanently deletes the task and its time entries. Repeat within %s:\ntask delete %s --confirm %s",
			deleteTokenTTL, positional[0], token))
	}
	delete(r.pending, msg.ChatID)
	r.mu.Unlock()

	if err := r.tasks.Delete(r.db, user.ID, id); err != nil {
		return r.replyErr(msg, err)
	}
	return r.reply(msg, "Deleted.")
}

func (r *Router) taskList(msg Message, flags map[string]string) error {
	filter := services.TaskFilter{
		SortBy: sortKey(flags["sort"]),
		Order:  "asc",
	}
	if raw, ok := flags["project"]; ok {
		project, err := r.resolveProject(msg, raw)
		if err != nil {
			return r.replyErr(msg, err)
		}
		filter.ProjectID = &project.ID
	}
	if raw, ok := flags["status"]; ok {
		status := models.TaskStatus(raw)
		filter.Status = &status
	}
	if raw, ok := flags["assignee"]; ok {
		assignee, err := r.resolveUser(raw)
		if err != nil {
			return r.replyErr(msg, err)
		}
		filter.AssigneeID = &assignee.ID
	}

	tasks, err := r.tasks.List(r.db, filter)
	if err != nil {
		return r.replyErr(msg, err)
	}
	return r.reply(msg, renderTaskList(tasks))
}

func (r *Router) taskOverdue(msg Message) error {
	tasks, err := r.tasks.Overdue(r.db, time.Now())
	if err != nil {
		return r.replyErr(msg, err)
	}
	if len(tasks) == 0 {
		return r.reply(msg, "Nothing overdue. 🎉")
	}
	return r.reply(msg, "Overdue tasks:\n"+renderTaskList(tasks))
}

func (r *Router) taskSearch(msg Message, positional []string) error {
	if len(positional) == 0 {
		return r.reply(msg, "Usage: task search <query>")
	}
	tasks, err := r.tasks.Search(r.db, strings.Join(positional, " "), services.TaskFilter{})
	if err != nil {
		return r.replyErr(msg, err)
	}
	return r.reply(msg, renderTaskList(tasks))
}

func (r *Router) handleProject(msg Message, user *models.User, args []string) error {
	if len(args) == 0 {
		return r.reply(msg, "Usage: project create|list|show|archive|member")
	}

	positional, _ := splitArgs(args[1:])

	switch args[0] {
	case "create":
		if len(positional) == 0 {
			return r.reply(msg, "Usage: project create <name> [description]")
		}
		input := services.CreateProjectInput{
			Name:      positional[0],
			ChannelID: msg.ChannelID,
		}
		if len(positional) > 1 {
			input.Description = strings.Join(positional[1:], " ")
		}
		project, err := r.projects.Create(r.db, user.ID, input)
		if err != nil {
			return r.replyErr(msg, err)
		}
		return r.reply(msg, fmt.Sprintf("Created project %q (%s), bound to this channel.", project.Name, shortID(project.ID)))

	case "list":
		projects, err := r.projects.List(r.db, false)
		if err != nil {
			return r.replyErr(msg, err)
		}
		return r.reply(msg, renderProjectList(projects))

	case "show":
		project, err := r.resolveProject(msg, first(positional))
		if err != nil {
			return r.replyErr(msg, err)
		}
		return r.reply(msg, renderProjectDetail(project))

	case "archive":
		project, err := r.resolveProject(msg, first(positional))
		if err != nil {
			return r.replyErr(msg, err)
		}
		if err := r.projects.Archive(r.db, user.ID, project.ID); err != nil {
			return r.replyErr(msg, err)
		}
		return r.reply(msg, fmt.Sprintf("Archived %q. Its tasks and history are kept.", project.Name))

	case "member":
		return r.projectMember(msg, user, positional)

	default:
		return r.reply(msg, fmt.Sprintf("Unknown project subcommand %q.", args[0]))
	}
}

func (r *Router) projectMember(msg Message, user *models.User, positional []string) error {
	if len(positional) < 3 {
		return r.reply(msg, "Usage: project member add|remove <project> @user")
	}

	project, err := r.resolveProject(msg, positional[1])
	if err != nil {
		return r.replyErr(msg, err)
	}
	member, err := r.resolveUser(positional[2])
	if err != nil {
		return r.replyErr(msg, err)
	}

	switch positional[0] {
	case "add":
		if err := r.projects.AddMember(r.db, user.ID, project.ID, member.ID); err != nil {
			return r.replyErr(msg, err)
		}
		return r.reply(msg, fmt.Sprintf("Added %s to %q.", member.Name(), project.Name))
	case "remove":
		if err := r.projects.RemoveMember(r.db, user.ID, project.ID, member.ID); err != nil {
			return r.replyErr(msg, err)
		}
		return r.reply(msg, fmt.Sprintf("Removed %s from %q.", member.Name(), project.Name))
	default:
		return r.reply(msg, "Usage: project member add|remove <project> @user")
	}
}

func (r *Router) handleTimer(msg Message, user *models.User, args []string) error {
	if !r.features.TimeTracking {
		return r.reply(msg, "Time tracking is disabled on this server.")
	}
	if len(args) == 0 {
		return r.reply(msg, "Usage: timer start|stop|active|log")
	}

	positional, _ := splitArgs(args[1:])

	switch args[0] {
	case "start":
		id, err := r.resolveTaskID(positional)
		if err != nil {
			return r.reply(msg, err.Error())
		}
		entry, err := r.timers.Start(r.db, user.ID, id)
		if err != nil {
			return r.replyErr(msg, err)
		}
		return r.reply(msg, fmt.Sprintf("Timer started at %s.", entry.StartTime.Format("15:04")))

	case "stop":
		id, err := r.resolveTaskID(positional)
		if err != nil {
			return r.reply(msg, err.Error())
		}
		note := ""
		if len(positional) > 1 {
			note = strings.Join(positional[1:], " ")
		}
		entry, err := r.timers.Stop(r.db, user.ID, id, note)
		if err != nil {
			return r.replyErr(msg, err)
		}
		return r.reply(msg, fmt.Sprintf("Timer stopped, %.2fh recorded.", entry.DurationHours))

	case "active":
		entries, err := r.timers.Active(r.db, user.ID)
		if err != nil {
			return r.replyErr(msg, err)
		}
		return r.reply(msg, renderActiveTimers(entries))

	case "log":
		if len(positional) < 2 {
			return r.reply(msg, "Usage: timer log <task-id> <hours> [note]")
		}
		id, err := r.resolveTaskID(positional)
		if err != nil {
			return r.reply(msg, err.Error())
		}
		hours, err := strconv.ParseFloat(positional[1], 64)
		if err != nil {
			return r.reply(msg, "Hours must be a number, like 1.5.")
		}
		note := ""
		if len(positional) > 2 {
			note = strings.Join(positional[2:], " ")
		}
		entry, err := r.timers.Log(r.db, user.ID, id, hours, note)
		if err != nil {
			return r.replyErr(msg, err)
		}
		return r.reply(msg, fmt.Sprintf("Logged %.2fh.", entry.DurationHours))

	default:
		return r.reply(msg, fmt.Sprintf("Unknown timer subcommand %q.", args[0]))
	}
}

func (r *Router) handleTimezone(msg Message, user *models.User, args []string) error {
	if len(args) == 0 {
		return r.reply(msg, fmt.Sprintf("Your timezone is %s.", user.Timezone))
	}
	if err := r.users.SetTimezone(r.db, user.ID, args[0]); err != nil {
		return r.replyErr(msg, err)
	}
	return r.reply(msg, fmt.Sprintf("Timezone set to %s.", args[0]))
}

// resolveProject looks a project up by UUID, then by name, then falls
// back to the project bound to the current channel.
func (r *Router) resolveProject(msg Message, ref string) (*models.Project, error) {
	if ref == "" {
		return r.projects.ByChannel(r.db, msg.ChannelID)
	}
	if id, err := uuid.FromString(ref); err == nil {
		return r.projects.Get(r.db, id)
	}

	matches, err := r.projects.Search(r.db, ref)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		if strings.EqualFold(matches[i].Name, ref) {
			return r.projects.Get(r.db, matches[i].ID)
		}
	}
	return nil, fmt.Errorf("project %q: %w", ref, services.ErrNotFound)
}

// resolveUser accepts @username or a raw chat ID in mention form
// <@12345>.
func (r *Router) resolveUser(ref string) (*models.User, error) {
	if strings.HasPrefix(ref, "<@") && strings.HasSuffix(ref, ">") {
		chatID := strings.TrimSuffix(strings.TrimPrefix(ref, "<@"), ">")
		return r.users.ByChatID(r.db, chatID)
	}
	username := strings.TrimPrefix(ref, "@")

	matches, err := r.users.Search(r.db, username)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		if strings.EqualFold(matches[i].Username, username) {
			return &matches[i], nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", ref, services.ErrNotFound)
}

func (r *Router) resolveTaskID(positional []string) (uuid.UUID, error) {
	if len(positional) == 0 {
		return uuid.Nil, errors.New("Give me a task ID.")
	}
	id, err := uuid.FromString(positional[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%q doesn't look like a task ID.", positional[0])
	}
	return id, nil
}

// parseDue interprets a YYYY-MM-DD date as end of day in the user's
// timezone.
func parseDue(raw, timezone string) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(23*time.Hour + 59*time.Minute), nil
}

func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func sortKey(flag string) string {
	switch flag {
	case "due":
		return "due_date"
	case "priority":
		return "priority"
	case "created", "":
		return "created_at"
	}
	return flag
}

func first(positional []string) string {
	if len(positional) == 0 {
		return ""
	}
	return positional[0]
}
