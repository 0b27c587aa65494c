package telegram

import (
	"testing"

	"github.com/gigaz-dev/walker/internal/bot"
	"github.com/gigaz-dev/walker/internal/event"
	"github.com/stretchr/testify/assert"
)

type fakeManager struct {
	available []string
	running   []string
}

func (f fakeManager) AvailableSupervisors() []string { return f.available }
func (f fakeManager) Running() []string              { return f.running }

func (f fakeManager) Status(name string) bot.Stats {
	return bot.Stats{SupervisorName: name, State: "Active", SessionsStarted: 4, RoutesCompleted: 3}
}

func TestStatusReport(t *testing.T) {
	assert.Equal(t, "No supervisors configured.", statusReport(fakeManager{}))

	report := statusReport(fakeManager{available: []string{"alpha", "beta"}, running: []string{"beta"}})
	assert.Equal(t, "alpha: offline\nbeta: Active, 4 sessions, 3 routes completed", report)
}

func TestReplyOnlyToCommands(t *testing.T) {
	b := &Bot{manager: fakeManager{available: []string{"alpha"}}}

	reply, ok := b.reply(" Status ")
	assert.True(t, ok)
	assert.Equal(t, "alpha: offline", reply)

	_, ok = b.reply("good morning")
	assert.False(t, ok)
}

func TestFormatEvent(t *testing.T) {
	msg, ok := formatEvent(event.SessionTerminated(event.Text("alpha", ""), "id", "disconnected: server full"))
	assert.True(t, ok)
	assert.Equal(t, "[alpha] session ended: disconnected: server full", msg)

	_, ok = formatEvent(event.ChatReceived(event.Text("alpha", ""), "someone", "hi"))
	assert.False(t, ok)
}

func TestCloseWithoutAPI(t *testing.T) {
	var b *Bot
	b.Close()
	(&Bot{}).Close()
}
