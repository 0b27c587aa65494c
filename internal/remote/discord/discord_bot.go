package discord

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/gigaz-dev/walker/internal/bot"
)

// Manager is the slice of the supervisor manager the chat commands drive.
type Manager interface {
	AvailableSupervisors() []string
	Running() []string
	Status(name string) bot.Stats
	Launch(ctx context.Context, name string) error
	Stop(name string)
}

type Bot struct {
	discordSession *discordgo.Session
	channelID      string
	admins         []string
	manager        Manager
	logger         *slog.Logger
	useWebhook     bool
	webhookClient  *webhookClient
}

func NewBot(token, channelID string, admins []string, manager Manager, useWebhook bool, webhookURL string, logger *slog.Logger) (*Bot, error) {
	botInstance := &Bot{
		channelID:  channelID,
		admins:     admins,
		manager:    manager,
		logger:     logger,
		useWebhook: useWebhook,
	}

	if useWebhook {
		if strings.TrimSpace(webhookURL) == "" {
			return nil, fmt.Errorf("webhook URL is required when using webhook mode")
		}
		botInstance.webhookClient = newWebhookClient(webhookURL)
		return botInstance, nil
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	botInstance.discordSession = dg

	return botInstance, nil
}

// Start listens for admin commands until ctx is done. In webhook mode there
// is nothing to listen to and it only waits.
func (b *Bot) Start(ctx context.Context) error {
	if b.useWebhook {
		<-ctx.Done()
		return nil
	}

	// supervisors started from chat live as long as the bot
	b.discordSession.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		b.onMessageCreated(ctx, s, m)
	})
	b.discordSession.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	if err := b.discordSession.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	<-ctx.Done()

	return b.discordSession.Close()
}

func (b *Bot) onMessageCreated(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || (s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}
	if !slices.Contains(b.admins, m.Author.ID) {
		return
	}

	reply, ok := b.execute(ctx, m.Content)
	if !ok {
		return
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
		b.logger.Warn("Discord reply failed", slog.Any("error", err))
	}
}
