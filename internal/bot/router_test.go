package bot_test

import (
	"strings"
	"testing"

	"github.com/taskhive/taskhive/internal/bot"
	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/services"
	"github.com/taskhive/taskhive/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingMessenger struct {
	sent []string
}

func (m *recordingMessenger) Send(channelID, text string) error {
	m.sent = append(m.sent, text)
	return nil
}

func (m *recordingMessenger) last() string {
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1]
}

func newRouter(t *testing.T, features config.FeatureConfig) (*bot.Router, *recordingMessenger, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	messenger := &recordingMessenger{}
	router := bot.NewRouter(
		config.BotConfig{CommandPrefix: "!"},
		features,
		bot.RouterDeps{
			DB:        db,
			Users:     services.NewUserService("UTC"),
			Projects:  services.NewProjectService(),
			Tasks:     services.NewTaskService(nil),
			Timers:    services.NewTimerService(nil),
			Messenger: messenger,
		},
	)
	return router, messenger, db
}

func send(t *testing.T, router *bot.Router, text string) {
	t.Helper()
	require.NoError(t, router.HandleMessage(bot.Message{
		ChannelID: "channel-1",
		ChatID:    "chat-alice",
		Username:  "alice",
		Text:      text,
	}))
}

func allFeatures() config.FeatureConfig {
	return config.FeatureConfig{TimeTracking: true}
}

func TestRouterIgnoresNonCommands(t *testing.T) {
	router, messenger, _ := newRouter(t, allFeatures())

	require.NoError(t, router.HandleMessage(bot.Message{Text: "just chatting"}))
	assert.Empty(t, messenger.sent)
}

func TestRouterHelp(t *testing.T) {
	router, messenger, _ := newRouter(t, allFeatures())

	send(t, router, "!help")
	assert.Contains(t, messenger.last(), "task add")
	assert.Contains(t, messenger.last(), "timezone")
}

func TestRouterProjectAndTaskFlow(t *testing.T) {
	router, messenger, _ := newRouter(t, allFeatures())

	send(t, router, `!project create Home my household chores`)
	assert.Contains(t, messenger.last(), `Created project "Home"`)

	// The project is bound to the channel, so no --project needed.
	send(t, router, `!task add "Buy milk" --priority high --due 2030-05-01 --tags errand,shopping`)
	assert.Contains(t, messenger.last(), "Buy milk")
	assert.Contains(t, messenger.last(), "todo")

	send(t, router, "!task list")
	assert.Contains(t, messenger.last(), "Buy milk")

	send(t, router, "!task search milk")
	assert.Contains(t, messenger.last(), "Buy milk")

	send(t, router, "!task overdue")
	assert.Contains(t, messenger.last(), "Nothing overdue")
}

func TestRouterTaskDoneAndEdit(t *testing.T) {
	router, messenger, db := newRouter(t, allFeatures())

	send(t, router, "!project create Home")
	send(t, router, `!task add "Buy milk"`)

	taskID := firstTaskID(t, db)

	send(t, router, "!task edit "+taskID+" --priority urgent")
	assert.Contains(t, messenger.last(), "Updated")

	send(t, router, "!task done "+taskID)
	assert.Contains(t, messenger.last(), "Done: Buy milk")

	// Terminal status rejects further edits.
	send(t, router, "!task edit "+taskID+" --status todo")
	assert.Contains(t, messenger.last(), "doesn't work")
}

func TestRouterTaskDeleteNeedsConfirmation(t *testing.T) {
	router, messenger, db := newRouter(t, allFeatures())

	send(t, router, "!project create Home")
	send(t, router, `!task add "Buy milk"`)
	taskID := firstTaskID(t, db)

	send(t, router, "!task delete "+taskID)
	reply := messenger.last()
	assert.Contains(t, reply, "--confirm")

	// Extract the issued token from the reply.
	idx := strings.LastIndex(reply, "--confirm ")
	require.Greater(t, idx, 0)
	token := strings.TrimSpace(reply[idx+len("--confirm "):])

	send(t, router, "!task delete "+taskID+" --confirm "+token)
	assert.Equal(t, "Deleted.", messenger.last())

	send(t, router, "!task show "+taskID)
	assert.Contains(t, messenger.last(), "Not found")
}

func TestRouterTaskDeleteWrongToken(t *testing.T) {
	router, messenger, db := newRouter(t, allFeatures())

	send(t, router, "!project create Home")
	send(t, router, `!task add "Buy milk"`)
	taskID := firstTaskID(t, db)

	send(t, router, "!task delete "+taskID)
	send(t, router, "!task delete "+taskID+" --confirm nonsense")
	// A wrong token re-issues instead of deleting.
	assert.Contains(t, messenger.last(), "--confirm")

	send(t, router, "!task show "+taskID)
	assert.Contains(t, messenger.last(), "Buy milk")
}

func TestRouterTimerFlow(t *testing.T) {
	router, messenger, db := newRouter(t, allFeatures())

	send(t, router, "!project create Home")
	send(t, router, `!task add "Buy milk"`)
	taskID := firstTaskID(t, db)

	send(t, router, "!timer start "+taskID)
	assert.Contains(t, messenger.last(), "Timer started")

	send(t, router, "!timer start "+taskID)
	assert.Contains(t, messenger.last(), "Conflict")

	send(t, router, "!timer active")
	assert.Contains(t, messenger.last(), "running since")

	send(t, router, "!timer stop "+taskID)
	assert.Contains(t, messenger.last(), "Timer stopped")

	send(t, router, "!timer log "+taskID+" 1.5 batch work")
	assert.Contains(t, messenger.last(), "Logged 1.50h")
}

func TestRouterTimerDisabled(t *testing.T) {
	router, messenger, _ := newRouter(t, config.FeatureConfig{TimeTracking: false})

	send(t, router, "!timer active")
	assert.Contains(t, messenger.last(), "disabled")
}

func TestRouterTimezone(t *testing.T) {
	router, messenger, _ := newRouter(t, allFeatures())

	send(t, router, "!timezone")
	assert.Contains(t, messenger.last(), "UTC")

	send(t, router, "!timezone Europe/Berlin")
	assert.Contains(t, messenger.last(), "Europe/Berlin")

	send(t, router, "!timezone Not/AZone")
	assert.Contains(t, messenger.last(), "doesn't work")
}

func TestRouterProjectMembers(t *testing.T) {
	router, messenger, db := newRouter(t, allFeatures())

	// Bob has interacted before, so he is resolvable by name.
	_, err := services.NewUserService("UTC").GetOrCreate(db, "chat-bob", "bob", "Bob", "")
	require.NoError(t, err)

	send(t, router, "!project create Home")
	send(t, router, "!project member add Home @bob")
	assert.Contains(t, messenger.last(), "Added")

	send(t, router, "!project member remove Home @bob")
	assert.Contains(t, messenger.last(), "Removed")
}

func TestRouterUnknownCommand(t *testing.T) {
	router, messenger, _ := newRouter(t, allFeatures())

	send(t, router, "!frobnicate")
	assert.Contains(t, messenger.last(), "Unknown command")
}

func firstTaskID(t *testing.T, db *gorm.DB) string {
	t.Helper()
	var id string
	require.NoError(t, db.Raw("SELECT id FROM tasks LIMIT 1").Scan(&id).Error)
	require.NotEmpty(t, id)
	return id
}
