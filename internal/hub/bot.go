package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"

	"github.com/exg1o/telegram-bots-hub/internal/designer"
	"github.com/exg1o/telegram-bots-hub/internal/flow"
	"github.com/exg1o/telegram-bots-hub/internal/scratch"
)

// tokenCheckInterval is how often the watchdog re-probes the bot token.
const tokenCheckInterval = 24 * time.Hour

// session is the slice of the Telegram Bot API the bot lifecycle
// touches. *telego.Bot implements it; tests substitute fakes.
type session interface {
	GetMe(ctx context.Context) (*telego.User, error)
	SetMyCommands(ctx context.Context, params *telego.SetMyCommandsParams) error
	SetWebhook(ctx context.Context, params *telego.SetWebhookParams) error
	DeleteWebhook(ctx context.Context, params *telego.DeleteWebhookParams) error
}

// Bot is one running bot: its Telegram session, Designer client and
// flow engine, plus the watchdog and background-task goroutines.
type Bot struct {
	serviceID int64
	token     string

	tg     session
	me     *telego.User
	api    designer.API
	kv     scratch.KV
	walker *flow.Walker
	router *flow.Router

	onInvalidToken func()
	log            *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// setup registers the bot's menu commands and its webhook.
func (b *Bot) setup(ctx context.Context, selfURL, webhookSecret string) error {
	if err := b.registerMenuCommands(ctx); err != nil {
		return fmt.Errorf("register menu commands: %w", err)
	}

	webhookURL := fmt.Sprintf("%s/telegram/bots/%d/webhook/",
		strings.TrimSuffix(selfURL, "/"), b.serviceID)
	err := b.tg.SetWebhook(ctx, &telego.SetWebhookParams{
		URL:         webhookURL,
		SecretToken: webhookSecret,
	})
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

// registerMenuCommands publishes the described command triggers as the
// bot's menu. Command names are sanitized because Telegram rejects
// menus with punctuation in a command.
func (b *Bot) registerMenuCommands(ctx context.Context) error {
	described := true
	triggers, err := b.api.Triggers(ctx, designer.TriggersFilter{
		HasCommand:            &described,
		HasCommandDescription: &described,
	})
	if err != nil {
		return err
	}

	commands := make([]telego.BotCommand, 0, len(triggers))
	for _, trigger := range triggers {
		if trigger.Command == nil || trigger.Command.Description == nil {
			continue
		}
		commands = append(commands, telego.BotCommand{
			Command:     stripPunctuation(trigger.Command.Command),
			Description: *trigger.Command.Description,
		})
	}
	if len(commands) == 0 {
		return nil
	}
	return b.tg.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: commands})
}

// run starts the bot's lifetime goroutines. The lifetime context is
// already in place before the bot becomes reachable, so an early
// webhook update never observes a half-built bot.
func (b *Bot) run() {
	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		b.watchToken(b.ctx, tokenCheckInterval)
	}()
	go func() {
		defer b.wg.Done()
		b.runBackgroundTasks(b.ctx)
	}()
}

// shutdown stops the lifetime goroutines and drops the webhook. The
// webhook delete is best effort.
func (b *Bot) shutdown(ctx context.Context) {
	b.cancel()
	b.wg.Wait()
	if err := b.tg.DeleteWebhook(ctx, &telego.DeleteWebhookParams{}); err != nil {
		b.log.Debug("failed to delete webhook", "error", err)
	}
}

// feed processes one webhook update on its own goroutine, so webhook
// responses return immediately.
func (b *Bot) feed(update telego.Update) {
	go func() {
		u := flow.FromTelegram(update)
		if err := b.router.Process(b.ctx, u); err != nil {
			b.log.Error("failed to process update", "update_id", update.UpdateID, "error", err)
		}
	}()
}

// watchToken re-probes the token periodically and retires the bot when
// Telegram revokes it. The stop runs on its own goroutine: stopping
// joins the watchdog, so calling it from here would deadlock.
func (b *Bot) watchToken(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		_, err := b.tg.GetMe(ctx)
		if err == nil {
			continue
		}
		var apiErr *telegoapi.Error
		if errors.As(err, &apiErr) && (apiErr.ErrorCode == 401 || apiErr.ErrorCode == 404) {
			b.log.Warn("bot token revoked, stopping bot")
			go b.onInvalidToken()
			return
		}
		b.log.Debug("token check failed", "error", err)
	}
}

// stripPunctuation drops ASCII punctuation, keeping letters, digits and
// everything else intact.
func stripPunctuation(s string) string {
	const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, s)
}
