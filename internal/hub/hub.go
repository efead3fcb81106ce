// Package hub hosts the running bots: one process, many bots, each
// with its own Designer client, sender and flow walker.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"

	"github.com/exg1o/telegram-bots-hub/internal/config"
	"github.com/exg1o/telegram-bots-hub/internal/designer"
	"github.com/exg1o/telegram-bots-hub/internal/flow"
	"github.com/exg1o/telegram-bots-hub/internal/scratch"
	"github.com/exg1o/telegram-bots-hub/internal/telegram"
)

var (
	// ErrNotFoundBot means the bot is not started on this hub.
	ErrNotFoundBot = errors.New("bot not started here")
	// ErrBotAlreadyEnabled means a second start for a running bot.
	ErrBotAlreadyEnabled = errors.New("bot already enabled")
	// ErrInvalidBotToken means Telegram rejected the bot token.
	ErrInvalidBotToken = errors.New("invalid bot token")
)

// Hub owns the table of running bots.
type Hub struct {
	cfg *config.Config
	kv  scratch.KV

	mu   sync.Mutex
	bots map[int64]*Bot
}

// New builds an empty hub.
func New(cfg *config.Config, kv scratch.KV) *Hub {
	return &Hub{
		cfg:  cfg,
		kv:   kv,
		bots: make(map[int64]*Bot),
	}
}

// List returns the service ids of all running bots, ascending.
func (h *Hub) List() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]int64, 0, len(h.bots))
	for id := range h.bots {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (h *Hub) get(serviceID int64) (*Bot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	bot, ok := h.bots[serviceID]
	if !ok {
		return nil, ErrNotFoundBot
	}
	return bot, nil
}

// Start brings one bot online: token check, menu commands, webhook,
// watchdog and background runner.
func (h *Hub) Start(ctx context.Context, serviceID int64, token string) error {
	h.mu.Lock()
	if _, ok := h.bots[serviceID]; ok {
		h.mu.Unlock()
		return ErrBotAlreadyEnabled
	}
	h.mu.Unlock()

	bot, err := h.newBot(ctx, serviceID, token)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if _, ok := h.bots[serviceID]; ok {
		h.mu.Unlock()
		bot.shutdown(ctx)
		return ErrBotAlreadyEnabled
	}
	h.bots[serviceID] = bot
	h.mu.Unlock()

	bot.run()
	slog.Info("bot started", "service_id", serviceID, "username", bot.me.Username)
	return nil
}

// Restart stops and starts the bot with its current token.
func (h *Hub) Restart(ctx context.Context, serviceID int64) error {
	bot, err := h.get(serviceID)
	if err != nil {
		return err
	}
	token := bot.token
	if err := h.Stop(ctx, serviceID); err != nil {
		return err
	}
	return h.Start(ctx, serviceID, token)
}

// Stop takes one bot offline. The webhook delete is best effort.
func (h *Hub) Stop(ctx context.Context, serviceID int64) error {
	h.mu.Lock()
	bot, ok := h.bots[serviceID]
	if !ok {
		h.mu.Unlock()
		return ErrNotFoundBot
	}
	delete(h.bots, serviceID)
	h.mu.Unlock()

	bot.shutdown(ctx)
	slog.Info("bot stopped", "service_id", serviceID)
	return nil
}

// StopAll takes every bot offline, for process shutdown.
func (h *Hub) StopAll(ctx context.Context) {
	for _, serviceID := range h.List() {
		if err := h.Stop(ctx, serviceID); err != nil && !errors.Is(err, ErrNotFoundBot) {
			slog.Error("failed to stop bot", "service_id", serviceID, "error", err)
		}
	}
}

// Feed routes one webhook update into the bot's flow engine. The
// update is processed asynchronously; the webhook response does not
// wait for the flow to finish.
func (h *Hub) Feed(_ context.Context, serviceID int64, update telego.Update) error {
	bot, err := h.get(serviceID)
	if err != nil {
		return err
	}
	bot.feed(update)
	return nil
}

func (h *Hub) newBot(ctx context.Context, serviceID int64, token string) (*Bot, error) {
	tg, err := telego.NewBot(token, telego.WithDefaultLogger(false, true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBotToken, err)
	}

	me, err := tg.GetMe(ctx)
	if err != nil {
		var apiErr *telegoapi.Error
		if errors.As(err, &apiErr) && (apiErr.ErrorCode == 401 || apiErr.ErrorCode == 404) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBotToken, err)
		}
		return nil, fmt.Errorf("probe bot token: %w", err)
	}

	api := designer.NewClient(h.cfg.ServiceURL, h.cfg.ServiceToken, h.cfg.ServiceUnixSock, serviceID)
	sender := telegram.NewSender(tg)
	walker := flow.NewWalker(api, sender, me.ID, h.cfg.ServiceURL)
	router := flow.NewRouter(api, h.kv, walker, me)

	bot := &Bot{
		serviceID: serviceID,
		token:     token,
		tg:        tg,
		me:        me,
		api:       api,
		kv:        h.kv,
		walker:    walker,
		router:    router,
		onInvalidToken: func() {
			if err := h.Stop(context.Background(), serviceID); err != nil {
				slog.Error("failed to stop bot after token check", "service_id", serviceID, "error", err)
			}
		},
		log: slog.Default().With("service_id", serviceID),
	}
	// The lifetime context exists before the bot is published in the
	// table; a webhook update arriving right after insertion already
	// sees it.
	bot.ctx, bot.cancel = context.WithCancel(context.Background())

	if err := bot.setup(ctx, h.cfg.SelfURL, h.cfg.WebhookSecret); err != nil {
		return nil, err
	}
	return bot, nil
}
