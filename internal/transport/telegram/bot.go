package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"anxiety-quiz-bot/internal/app"
	"anxiety-quiz-bot/internal/domain"
	"anxiety-quiz-bot/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

type Options struct {
	Channel     string
	BotUsername string
	Workers     int
	PollTimeout time.Duration
	// IsAdmin gates the /stats command. Nil means nobody is an admin.
	IsAdmin func(userID int64) bool
}

// Bot turns Telegram updates into flow events and renders the resulting views.
type Bot struct {
	client   *Client
	flow     *app.Flow
	renderer Renderer
	opts     Options
	log      *slog.Logger
}

func NewBot(client *Client, flow *app.Flow, opts Options, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30 * time.Second
	}
	if opts.IsAdmin == nil {
		opts.IsAdmin = func(int64) bool { return false }
	}
	return &Bot{
		client:   client,
		flow:     flow,
		renderer: Renderer{Channel: opts.Channel, BotUsername: opts.BotUsername},
		opts:     opts,
		log:      log.With("component", "telegram"),
	}
}

// Run long-polls for updates until ctx is canceled. Updates of one batch are handled
// concurrently, one goroutine per user, and the offset advances once the batch is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.client.DeleteWebhook(ctx); err != nil {
		b.log.WarnContext(ctx, "telegram: delete webhook failed", "error", err)
	}
	b.log.InfoContext(ctx, "telegram: long polling started", "workers", b.opts.Workers)

	offset := 0
	for {
		updates, err := b.client.GetUpdates(ctx, offset, b.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.log.ErrorContext(ctx, "telegram: get updates failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(3 * time.Second):
			}
			continue
		}
		if len(updates) == 0 {
			continue
		}

		b.dispatch(ctx, updates)
		offset = updates[len(updates)-1].UpdateID + 1
	}
}

// dispatch keeps the order of updates per user and runs different users in parallel.
func (b *Bot) dispatch(ctx context.Context, updates []Update) {
	var order []int64
	byUser := make(map[int64][]Update)
	for _, upd := range updates {
		id := senderID(upd)
		if _, ok := byUser[id]; !ok {
			order = append(order, id)
		}
		byUser[id] = append(byUser[id], upd)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for _, id := range order {
		batch := byUser[id]
		g.Go(func() error {
			for _, upd := range batch {
				if err := b.HandleUpdate(gctx, upd); err != nil {
					b.log.ErrorContext(gctx, "telegram: handle update failed", "update_id", upd.UpdateID, "error", err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

// HandleUpdate processes one update. Flow errors are reported to the user; only
// failures to talk to Telegram are returned.
func (b *Bot) HandleUpdate(ctx context.Context, upd Update) error {
	switch {
	case upd.CallbackQuery != nil:
		return b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		return b.handleMessage(ctx, upd.Message)
	default:
		return nil
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}
	user := toDomainUser(msg.From)

	var ev app.Event
	switch parseCommand(msg.Text) {
	case cmdStart:
		ev = app.Welcome{}
	case cmdHistory:
		ev = app.ShowHistory{}
	case cmdStats:
		return b.sendStats(ctx, msg.Chat.ID, user.ID)
	default:
		return nil
	}

	view, err := b.handle(ctx, user, ev)
	if err != nil {
		_, sendErr := b.client.SendMessage(ctx, msg.Chat.ID, ErrorText(err), nil)
		return sendErr
	}
	text, markup := b.renderer.Render(view)
	_, err = b.client.SendMessage(ctx, msg.Chat.ID, text, markup)
	return err
}

func (b *Bot) handleCallback(ctx context.Context, cq *CallbackQuery) error {
	if cq.From == nil {
		return b.client.AnswerCallbackQuery(ctx, cq.ID, "")
	}
	user := toDomainUser(cq.From)

	ev, err := ParseCallback(cq.Data)
	if err != nil {
		b.log.WarnContext(ctx, "telegram: unknown callback", "data", cq.Data, "user_id", user.ID)
		return b.client.AnswerCallbackQuery(ctx, cq.ID, ErrorText(err))
	}

	view, err := b.handle(ctx, user, ev)
	if err != nil {
		return b.client.AnswerCallbackQuery(ctx, cq.ID, ErrorText(err))
	}
	if err := b.client.AnswerCallbackQuery(ctx, cq.ID, ""); err != nil {
		b.log.WarnContext(ctx, "telegram: answer callback failed", "error", err)
	}

	text, markup := b.renderer.Render(view)
	if cq.Message != nil && cq.Message.Chat != nil {
		err := b.client.EditMessageText(ctx, cq.Message.Chat.ID, cq.Message.MessageID, text, markup)
		if err == nil || isNotModified(err) {
			return nil
		}
		b.log.WarnContext(ctx, "telegram: edit failed, sending new message", "error", err)
	}
	_, err = b.client.SendMessage(ctx, user.ID, text, markup)
	return err
}

func (b *Bot) handle(ctx context.Context, user domain.User, ev app.Event) (app.View, error) {
	telemetry.EventsHandled.WithLabelValues(ev.Name(), "telegram").Inc()
	view, err := b.flow.Handle(ctx, user, ev)
	if err != nil {
		level := slog.LevelInfo
		if errors.Is(err, domain.ErrStoreUnavailable) {
			level = slog.LevelError
		}
		b.log.Log(ctx, level, "telegram: event rejected", "event", ev.Name(), "user_id", user.ID, "error", err)
	}
	return view, err
}

func (b *Bot) sendStats(ctx context.Context, chatID, userID int64) error {
	if !b.opts.IsAdmin(userID) {
		_, err := b.client.SendMessage(ctx, chatID, "This command is for admins only.", nil)
		return err
	}
	stats, err := b.flow.Quiz().Stats(ctx)
	if err != nil {
		b.log.ErrorContext(ctx, "telegram: stats failed", "error", err)
		_, sendErr := b.client.SendMessage(ctx, chatID, ErrorText(err), nil)
		return sendErr
	}
	_, err = b.client.SendMessage(ctx, chatID, b.renderer.Stats(stats), nil)
	return err
}

// RegisterWebhook switches the bot to webhook delivery.
func (b *Bot) RegisterWebhook(ctx context.Context, url, secret string) error {
	if err := b.client.SetWebhook(ctx, url, secret); err != nil {
		return err
	}
	b.log.InfoContext(ctx, "telegram: webhook registered", "url", url)
	return nil
}

// WebhookHandler accepts updates pushed by Telegram. Requests without the
// configured secret token are rejected.
func (b *Bot) WebhookHandler(secret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(secretHeader)), []byte(secret)) != 1 {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		var upd Update
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		if err := b.HandleUpdate(r.Context(), upd); err != nil {
			b.log.ErrorContext(r.Context(), "telegram: webhook update failed", "update_id", upd.UpdateID, "error", err)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func toDomainUser(u *User) domain.User {
	return domain.User{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func senderID(upd Update) int64 {
	switch {
	case upd.CallbackQuery != nil && upd.CallbackQuery.From != nil:
		return upd.CallbackQuery.From.ID
	case upd.Message != nil && upd.Message.From != nil:
		return upd.Message.From.ID
	default:
		return 0
	}
}

func isNotModified(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Description, "message is not modified")
}
