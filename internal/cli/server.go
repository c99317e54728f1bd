package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"anxiety-quiz-bot/internal/app"
	"anxiety-quiz-bot/internal/config"
	transport "anxiety-quiz-bot/internal/transport/http"
	"anxiety-quiz-bot/internal/transport/telegram"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand that runs the bot and the HTTP server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the bot and the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := buildDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	client := telegram.NewClient(cfg.Telegram.Token, telegram.WithAPIURL(cfg.Telegram.APIURL))
	gate := app.NewGate(telegram.NewMembershipOracle(client), cfg.Telegram.Channel, log)
	flow := app.NewFlow(d.service, gate, log)
	bot := telegram.NewBot(client, flow, telegram.Options{
		Channel:     cfg.Telegram.Channel,
		BotUsername: cfg.Telegram.BotUsername,
		Workers:     cfg.Telegram.Workers,
		PollTimeout: config.TTLDuration(cfg.Telegram.PollTimeout, 30*time.Second),
		IsAdmin:     cfg.IsAdmin,
	}, log)

	routerCfg := transport.Config{Flow: flow, AdminToken: cfg.Server.AdminToken, Log: log}
	if cfg.Server.WSSecret != "" {
		routerCfg.WebAuth = transport.NewWebAuth(cfg.Server.WSSecret, webTokenTTL(cfg))
	} else {
		log.WarnContext(ctx, "server: ws_secret not set, websocket endpoint disabled")
	}
	if cfg.Server.AdminToken == "" {
		log.WarnContext(ctx, "server: admin_token not set, admin routes disabled")
	}
	webhook := cfg.Telegram.Token != "" && cfg.Telegram.WebhookURL != ""
	if webhook {
		routerCfg.Webhook = bot.WebhookHandler(cfg.Telegram.WebhookSecret)
	}

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(routerCfg),
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "server: HTTP listening", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	switch {
	case cfg.Telegram.Token == "":
		log.WarnContext(ctx, "telegram: no bot token configured, only HTTP and websocket are served")
	case webhook:
		if err := bot.RegisterWebhook(ctx, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
			stop()
			_ = g.Wait()
			return err
		}
	default:
		g.Go(func() error {
			return bot.Run(gctx)
		})
	}

	if d.memory != nil {
		g.Go(func() error {
			sweepSessions(gctx, d, log)
			return nil
		})
	}

	return g.Wait()
}

// sweepSessions drops idle in-memory sessions so abandoned attempts do not pile up.
func sweepSessions(ctx context.Context, d *deps, log *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := d.memory.Sweep(); n > 0 {
				log.DebugContext(ctx, "sessions: swept idle sessions", "count", n)
			}
		}
	}
}
