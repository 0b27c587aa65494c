package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/gigaz-dev/walker/internal/bot"
	"github.com/gigaz-dev/walker/internal/event"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Manager is the read side of the supervisor manager.
type Manager interface {
	AvailableSupervisors() []string
	Running() []string
	Status(name string) bot.Stats
}

type Bot struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	manager Manager
	logger  *slog.Logger
}

// Start answers "status" and "list" from the configured chat until ctx ends.
func (b *Bot) Start(ctx context.Context) error {
	offset, err := b.getLatestOffset()
	if err != nil {
		return err
	}

	u := tgbotapi.NewUpdate(offset)
	u.Timeout = 5
	updates := b.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.bot.StopReceivingUpdates()
			for range updates {
			}
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.Chat == nil || update.Message.Chat.ID != b.chatID {
				continue
			}
			if reply, ok := b.reply(update.Message.Text); ok {
				if err := b.send(reply); err != nil {
					b.logger.Warn("Telegram reply failed", slog.Any("error", err))
				}
			}
		}
	}
}

// Handle forwards session lifecycle and route results to the chat.
func (b *Bot) Handle(_ context.Context, e event.Event) error {
	message, ok := formatEvent(e)
	if !ok {
		return nil
	}
	return b.send(message)
}

func (b *Bot) send(text string) error {
	_, err := b.bot.Send(tgbotapi.NewMessage(b.chatID, text))
	return err
}

func (b *Bot) reply(text string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "status", "list", "/status", "/list":
		return statusReport(b.manager), true
	}
	return "", false
}

func statusReport(m Manager) string {
	names := m.AvailableSupervisors()
	if len(names) == 0 {
		return "No supervisors configured."
	}

	running := m.Running()
	lines := make([]string, 0, len(names))
	for _, name := range names {
		if !slices.Contains(running, name) {
			lines = append(lines, fmt.Sprintf("%s: offline", name))
			continue
		}
		st := m.Status(name)
		lines = append(lines, fmt.Sprintf("%s: %s, %d sessions, %d routes completed",
			name, st.State, st.SessionsStarted, st.RoutesCompleted))
	}
	return strings.Join(lines, "\n")
}

func formatEvent(e event.Event) (string, bool) {
	switch evt := e.(type) {
	case event.SessionStartedEvent:
		return fmt.Sprintf("[%s] joined as %s", evt.Supervisor(), evt.Username), true
	case event.SessionTerminatedEvent:
		return fmt.Sprintf("[%s] session ended: %s", evt.Supervisor(), evt.Reason), true
	case event.RouteFinishedEvent:
		return fmt.Sprintf("[%s] %s", evt.Supervisor(), evt.Message()), true
	case event.NgrokTunnelEvent:
		return evt.Message(), true
	}
	return "", false
}

func (b *Bot) getLatestOffset() (int, error) {
	upds, err := b.bot.GetUpdates(tgbotapi.NewUpdate(-1))
	if err != nil {
		return 0, err
	}
	offset := 0
	if len(upds) > 0 {
		offset = upds[0].UpdateID + 1
	}
	return offset, nil
}
