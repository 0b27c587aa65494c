package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	sloggger "github.com/gigaz-dev/walker/cmd/walker/log"
	"github.com/gigaz-dev/walker/internal/bot"
	"github.com/gigaz-dev/walker/internal/config"
	"github.com/gigaz-dev/walker/internal/event"
	"github.com/gigaz-dev/walker/internal/remote/discord"
	"github.com/gigaz-dev/walker/internal/remote/messaging"
	ngrokremote "github.com/gigaz-dev/walker/internal/remote/ngrok"
	"github.com/gigaz-dev/walker/internal/remote/telegram"
	"github.com/gigaz-dev/walker/internal/route/store"
	"github.com/gigaz-dev/walker/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run [profiles...]",
	Short: "Run supervisors until interrupted",
	Long: `Run one supervisor per named profile, or per enabled profile when none
are named. Supervisors never give up on their own; stop them with Ctrl+C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args)
	},
}

func run(parent context.Context, profiles []string) error {
	logger, err := sloggger.NewLogger(config.Walker.Debug.Log, config.Walker.LogSaveDirectory, "")
	if err != nil {
		return fmt.Errorf("error starting logger: %w", err)
	}
	defer sloggger.FlushAndClose()

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if len(profiles) == 0 {
		profiles = enabledProfiles()
	}
	if len(profiles) == 0 {
		return fmt.Errorf("no enabled profiles under %s", config.Root())
	}
	for _, name := range profiles {
		if _, ok := config.GetProfile(name); !ok {
			return fmt.Errorf("%w: %s", config.ErrUnknownProfile, name)
		}
	}

	routes, err := store.Open(routeStorePath())
	if err != nil {
		return fmt.Errorf("error opening route store: %w", err)
	}
	defer routes.Close()

	g, ctx := errgroup.WithContext(ctx)

	eventListener := event.NewListener(logger)
	manager := bot.NewSupervisorManager(logger, routes)

	var srv *server.HttpServer
	if config.Walker.Viewer.Enabled {
		srv = server.New(logger, manager)
		manager.SetSessionHook(srv.AttachSession)
		eventListener.Register(srv.Handle)

		g.Go(wrapWithRecover(logger, func() error {
			srv.Run(ctx)
			return nil
		}))
		g.Go(wrapWithRecover(logger, func() error {
			// the viewer is optional; the supervisors keep running without it
			if err := srv.Listen(config.Walker.Viewer.Host, config.Walker.Viewer.Port); err != nil {
				logger.Error("Viewer could not be started", slog.Any("error", err))
			}
			return nil
		}))
	}

	var ngrokTunnel *ngrokremote.Tunnel
	if srv != nil && config.Walker.Ngrok.Enabled {
		if config.Walker.Ngrok.Authtoken == "" && os.Getenv("NGROK_AUTHTOKEN") == "" {
			logger.Warn("ngrok enabled but no authtoken set; skipping tunnel start")
		} else {
			tunnel, err := ngrokremote.Start(ctx, ngrokremote.Options{
				ViewerAddr:    fmt.Sprintf("%s:%d", config.Walker.Viewer.Host, config.Walker.Viewer.Port),
				Authtoken:     config.Walker.Ngrok.Authtoken,
				Region:        config.Walker.Ngrok.Region,
				Domain:        config.Walker.Ngrok.Domain,
				BasicAuthUser: config.Walker.Ngrok.BasicAuthUser,
				BasicAuthPass: config.Walker.Ngrok.BasicAuthPass,
			})
			if err != nil {
				logger.Error("ngrok tunnel failed to start", slog.Any("error", err))
			} else {
				logger.Info("ngrok tunnel established", slog.String("url", tunnel.URL()))
				if config.Walker.Ngrok.SendURL {
					event.Send(event.NgrokTunnel(tunnel.URL()))
				}
				ngrokTunnel = tunnel
			}
		}
	}

	if config.Walker.Discord.Enabled {
		discordBot, err := discord.NewBot(
			config.Walker.Discord.Token,
			config.Walker.Discord.ChannelID,
			config.Walker.Discord.BotAdmins,
			manager,
			config.Walker.Discord.UseWebhook,
			config.Walker.Discord.WebhookURL,
			logger,
		)
		if err != nil {
			logger.Error("Discord could not be initialized", slog.Any("error", err))
		} else {
			eventListener.Register(discordBot.Handle)
			g.Go(wrapWithRecover(logger, func() error {
				if err := discordBot.Start(ctx); err != nil {
					logger.Error("Discord bot stopped", slog.Any("error", err))
				}
				return nil
			}))
		}
	}

	if config.Walker.Telegram.Enabled {
		telegramBot, err := telegram.NewBot(config.Walker.Telegram.Token, config.Walker.Telegram.ChatID, manager, logger)
		if err != nil {
			logger.Error("Telegram could not be initialized", slog.Any("error", err))
		} else {
			eventListener.Register(telegramBot.Handle)
			g.Go(wrapWithRecover(logger, func() error {
				defer telegramBot.Close()
				if err := telegramBot.Start(ctx); err != nil {
					logger.Error("Telegram bot stopped", slog.Any("error", err))
				}
				return nil
			}))
		}
	}

	if config.Walker.Messaging.Enabled {
		publisher := messaging.NewPublisher(messaging.Config{
			Backend:     config.Walker.Messaging.Backend,
			Brokers:     config.Walker.Messaging.Brokers,
			TopicPrefix: config.Walker.Messaging.TopicPrefix,
			ClientID:    config.Walker.Messaging.ClientID,
		}, logger)
		if err := publisher.Connect(); err != nil {
			logger.Error("Event publisher could not connect", slog.Any("error", err))
		} else {
			defer publisher.Close()
			eventListener.Register(publisher.Handle)
		}
	}

	g.Go(wrapWithRecover(logger, func() error {
		return eventListener.Listen(ctx)
	}))

	for _, name := range profiles {
		name := name
		g.Go(wrapWithRecover(logger, func() error {
			// a profile that cannot be built is reported and left stopped
			if err := manager.Start(ctx, name); err != nil {
				logger.Error("Supervisor could not be started", slog.String("supervisor", name), slog.Any("error", err))
			}
			return nil
		}))
	}

	g.Go(wrapWithRecover(logger, func() error {
		<-ctx.Done()
		logger.Info("walker shutting down...")
		manager.StopAll()
		manager.Wait()
		if srv != nil {
			if err := srv.Stop(); err != nil {
				logger.Error("error stopping viewer", slog.Any("error", err))
			}
		}
		if ngrokTunnel != nil {
			if err := ngrokTunnel.Close(); err != nil {
				logger.Error("error stopping ngrok tunnel", slog.Any("error", err))
			}
		}
		return nil
	}))

	if err := g.Wait(); err != nil {
		logger.Error("Error running walker", slog.Any("error", err))
		return err
	}
	return nil
}

func enabledProfiles() []string {
	var out []string
	for name, cfg := range config.GetProfiles() {
		if cfg.Enabled {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func routeStorePath() string {
	p := config.Walker.RouteStorePath
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(config.Root(), p)
}
