package discord

import (
	"context"
	"fmt"

	"github.com/gigaz-dev/walker/internal/event"
)

// Handle posts session lifecycle and route results. Per-attempt and chat
// events are too chatty for a channel and are skipped.
func (b *Bot) Handle(ctx context.Context, e event.Event) error {
	message, ok := formatEvent(e)
	if !ok {
		return nil
	}
	return b.sendEventMessage(ctx, message)
}

func formatEvent(e event.Event) (string, bool) {
	switch evt := e.(type) {
	case event.SessionStartedEvent:
		return fmt.Sprintf("**[%s]** joined as **%s**", evt.Supervisor(), evt.Username), true
	case event.SessionTerminatedEvent:
		return fmt.Sprintf("**[%s]** session ended: %s", evt.Supervisor(), evt.Reason), true
	case event.RouteFinishedEvent:
		return fmt.Sprintf("**[%s]** %s", evt.Supervisor(), evt.Message()), true
	case event.NgrokTunnelEvent:
		return evt.Message(), true
	}
	return "", false
}

func (b *Bot) sendEventMessage(ctx context.Context, message string) error {
	if b.useWebhook {
		return b.webhookClient.Send(ctx, message)
	}

	_, err := b.discordSession.ChannelMessageSend(b.channelID, message)
	return err
}
