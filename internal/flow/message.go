package flow

import (
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"golang.org/x/sync/errgroup"

	"github.com/exg1o/telegram-bots-hub/internal/designer"
	"github.com/exg1o/telegram-bots-hub/internal/htmltext"
	"github.com/exg1o/telegram-bots-hub/internal/scratch"
	"github.com/exg1o/telegram-bots-hub/internal/telegram"
)

// handleMessage delivers a message node to the update's chat and
// remembers the sent message ids for later replacement.
func (w *Walker) handleMessage(ctx context.Context, u Update, id int64, es *scratch.EventStorage, vars *Variables) ([]designer.Connection, error) {
	if u.Chat == nil || u.User == nil || es.Chat == nil {
		return nil, nil
	}

	message, err := w.api.Message(ctx, id)
	if err != nil {
		return nil, err
	}

	if !message.Settings.SendAsNewMessage {
		w.deleteLastMessages(ctx, u.Chat.ID, es)
	}

	var (
		text              string
		photos, documents []telego.InputFile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		text, err = ExpandText(gctx, htmltext.Clean(message.Text), vars)
		return err
	})
	g.Go(func() error {
		photos = telegram.InputFiles(w.serviceURL, message.Images)
		documents = telegram.InputFiles(w.serviceURL, message.Documents)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	replyTo := 0
	if message.Settings.ReplyToUserMessage && u.Message != nil {
		replyTo = u.Message.MessageID
	}

	sent, err := telegram.Send(ctx, w.messenger, telegram.SendInput{
		ChatID:    tu.ID(u.Chat.ID),
		ReplyTo:   replyTo,
		Text:      text,
		Keyboard:  telegram.BuildReplyMarkup(message.Keyboard),
		Photos:    photos,
		Documents: documents,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(sent))
	for _, m := range sent {
		ids = append(ids, m.MessageID)
	}
	if err := es.Chat.Set(ctx, "last_bot_message_ids", ids); err != nil {
		return nil, err
	}

	if message.Settings.DeleteUserMessage && !u.User.IsBot && u.Message != nil {
		_ = w.messenger.DeleteMessage(ctx, &telego.DeleteMessageParams{
			ChatID:    tu.ID(u.Chat.ID),
			MessageID: u.Message.MessageID,
		})
	}

	return message.SourceConnections, nil
}

// deleteLastMessages clears the bot's previous output in this chat.
// Best effort: stale ids are already gone.
func (w *Walker) deleteLastMessages(ctx context.Context, chatID int64, es *scratch.EventStorage) {
	previous, err := es.Chat.Pop(ctx, "last_bot_message_ids")
	if err != nil {
		w.log.Debug("failed to pop last bot message ids", "chat_id", chatID, "error", err)
		return
	}
	list, ok := previous.([]any)
	if !ok || len(list) == 0 {
		return
	}

	ids := make([]int, 0, len(list))
	for _, value := range list {
		if f, ok := value.(float64); ok {
			ids = append(ids, int(f))
		}
	}
	if len(ids) == 0 {
		return
	}
	_ = w.messenger.DeleteMessages(ctx, &telego.DeleteMessagesParams{
		ChatID:     tu.ID(chatID),
		MessageIDs: ids,
	})
}
