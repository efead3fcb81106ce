package flow

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	"golang.org/x/sync/errgroup"

	"github.com/exg1o/telegram-bots-hub/internal/designer"
	"github.com/exg1o/telegram-bots-hub/internal/scratch"
)

// Router turns one incoming update into the set of starting
// connections and hands them to the walker. Three fetchers contribute,
// in order: the armed expected trigger, command/message triggers, and
// keyboard buttons.
type Router struct {
	api     designer.API
	kv      scratch.KV
	walker  *Walker
	botUser *telego.User
	log     *slog.Logger
}

// NewRouter wires the router for one running bot. botUser is the
// bot's own Telegram identity.
func NewRouter(api designer.API, kv scratch.KV, walker *Walker, botUser *telego.User) *Router {
	return &Router{
		api:     api,
		kv:      kv,
		walker:  walker,
		botUser: botUser,
		log:     slog.Default().With("bot_id", botUser.ID),
	}
}

// Process registers the sighting of the update's user, applies the
// bot's access rule and routes the update. Updates without a user and
// updates from excluded users are dropped silently.
func (r *Router) Process(ctx context.Context, u Update) error {
	if u.User == nil {
		return nil
	}

	serviceUser, err := r.api.CreateUser(ctx, designer.CreateUser{
		TelegramID: u.User.ID,
		FullName:   FullName(u.User.FirstName, u.User.LastName),
	})
	if err != nil {
		return err
	}
	serviceBot, err := r.api.Bot(ctx)
	if err != nil {
		return err
	}
	if !ValidUser(serviceBot, serviceUser) {
		r.log.Debug("update dropped by access rule", "telegram_user_id", u.User.ID)
		return nil
	}

	var chatID int64
	if u.Chat != nil {
		chatID = u.Chat.ID
	}
	es := scratch.NewEventStorage(r.kv, r.botUser.ID, chatID, u.User.ID)
	vars := NewVariables(r.api, r.botUser, u)

	return r.Route(ctx, u, es, vars)
}

// ValidUser is the access rule: blocked users never pass, and a
// private bot additionally requires an allowance.
func ValidUser(bot *designer.Bot, user *designer.User) bool {
	return !user.IsBlocked && (!bot.IsPrivate || user.IsAllowed)
}

// Route gathers starting connections from all fetchers concurrently
// and walks them in fetcher order.
func (r *Router) Route(ctx context.Context, u Update, es *scratch.EventStorage, vars *Variables) error {
	type fetcher func(ctx context.Context, u Update, es *scratch.EventStorage, vars *Variables) ([]designer.Connection, error)
	fetchers := []fetcher{
		r.expectedTriggerConnections,
		r.triggerConnections,
		r.keyboardButtonConnections,
	}

	results := make([][]designer.Connection, len(fetchers))
	g, gctx := errgroup.WithContext(ctx)
	for i, fetch := range fetchers {
		g.Go(func() error {
			connections, err := fetch(gctx, u, es, vars)
			if err != nil {
				return err
			}
			results[i] = connections
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var connections []designer.Connection
	for _, result := range results {
		connections = append(connections, result...)
	}
	r.walker.HandleMany(ctx, u, connections, es, vars)
	return nil
}

// expectedTriggerConnections consumes the armed trigger when the input
// matches it. A non-matching input leaves the trigger armed.
func (r *Router) expectedTriggerConnections(ctx context.Context, u Update, es *scratch.EventStorage, vars *Variables) ([]designer.Connection, error) {
	if es.User == nil || u.Text() == "" {
		return nil, nil
	}

	raw, err := es.User.Get(ctx, "expected_trigger_id")
	if err != nil {
		return nil, err
	}
	triggerID, ok := raw.(float64)
	if !ok || triggerID == 0 {
		return nil, nil
	}

	trigger, err := r.api.Trigger(ctx, int64(triggerID))
	if err != nil {
		return nil, err
	}

	text := u.Text()
	var connections []designer.Connection

	switch {
	case trigger.Command != nil && strings.HasPrefix(text, "/") && len(text) > 1:
		command, payload := splitCommand(text)
		if command != trigger.Command.Command {
			return nil, nil
		}
		if trigger.Command.Payload != nil && *trigger.Command.Payload != "" && payload != *trigger.Command.Payload {
			return nil, nil
		}
		connections = trigger.SourceConnections

	case trigger.Message != nil && trigger.Message.Text != nil && *trigger.Message.Text != "":
		expanded, err := ExpandText(ctx, *trigger.Message.Text, vars)
		if err != nil {
			return nil, err
		}
		if text != expanded {
			return nil, nil
		}
		connections = trigger.SourceConnections

	case trigger.Message != nil:
		connections = trigger.SourceConnections

	default:
		return nil, nil
	}

	if err := es.User.Delete(ctx, "expected_trigger_id"); err != nil {
		return nil, err
	}
	return connections, nil
}

// triggerConnections matches the input against command and message
// triggers. Command matches come first.
func (r *Router) triggerConnections(ctx context.Context, u Update, _ *scratch.EventStorage, vars *Variables) ([]designer.Connection, error) {
	text := u.Text()
	if text == "" {
		return nil, nil
	}

	var commandTriggers, messageTriggers []designer.Trigger
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		commandTriggers, err = r.commandTriggers(gctx, text)
		return err
	})
	g.Go(func() error {
		var err error
		messageTriggers, err = r.messageTriggers(gctx, text, vars)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var connections []designer.Connection
	for _, trigger := range commandTriggers {
		connections = append(connections, trigger.SourceConnections...)
	}
	for _, trigger := range messageTriggers {
		connections = append(connections, trigger.SourceConnections...)
	}
	return connections, nil
}

func (r *Router) commandTriggers(ctx context.Context, text string) ([]designer.Trigger, error) {
	if !strings.HasPrefix(text, "/") || len(text) == 1 {
		return nil, nil
	}
	command, payload := splitCommand(text)

	hasPayload := payload != ""
	filter := designer.TriggersFilter{
		Command:           &command,
		HasCommandPayload: &hasPayload,
	}
	if hasPayload {
		filter.CommandPayload = &payload
	}
	return r.api.Triggers(ctx, filter)
}

// messageTriggers returns text triggers whose expanded template equals
// the input, followed by the textless catch-alls. Only entry triggers
// (no incoming connections) participate.
func (r *Router) messageTriggers(ctx context.Context, text string, vars *Variables) ([]designer.Trigger, error) {
	boolPtr := func(v bool) *bool { return &v }

	var withText, withoutText []designer.Trigger
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		withText, err = r.api.Triggers(gctx, designer.TriggersFilter{
			HasMessage:           boolPtr(true),
			HasMessageText:       boolPtr(true),
			HasTargetConnections: boolPtr(false),
		})
		return err
	})
	g.Go(func() error {
		var err error
		withoutText, err = r.api.Triggers(gctx, designer.TriggersFilter{
			HasMessage:           boolPtr(true),
			HasMessageText:       boolPtr(false),
			HasTargetConnections: boolPtr(false),
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matched := make([]designer.Trigger, 0, len(withText)+len(withoutText))
	matches := make([]bool, len(withText))
	g, gctx = errgroup.WithContext(ctx)
	for i, trigger := range withText {
		if trigger.Message == nil || trigger.Message.Text == nil {
			continue
		}
		g.Go(func() error {
			expanded, err := ExpandText(gctx, *trigger.Message.Text, vars)
			if err != nil {
				return err
			}
			matches[i] = text == expanded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, trigger := range withText {
		if matches[i] {
			matched = append(matched, trigger)
		}
	}
	return append(matched, withoutText...), nil
}

// keyboardButtonConnections routes a callback press by button id, or a
// text input by reply-button text.
func (r *Router) keyboardButtonConnections(ctx context.Context, u Update, _ *scratch.EventStorage, _ *Variables) ([]designer.Connection, error) {
	var filter designer.ButtonsFilter

	switch {
	case u.Callback != nil && isDigits(u.Callback.Data):
		id, err := strconv.ParseInt(u.Callback.Data, 10, 64)
		if err != nil {
			return nil, nil
		}
		filter.ID = &id
	case u.Text() != "":
		text := u.Text()
		filter.Text = &text
	default:
		return nil, nil
	}

	buttons, err := r.api.KeyboardButtons(ctx, filter)
	if err != nil {
		return nil, err
	}

	var connections []designer.Connection
	for _, button := range buttons {
		connections = append(connections, button.SourceConnections...)
	}
	return connections, nil
}

func splitCommand(text string) (string, string) {
	command, payload, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	return command, payload
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
