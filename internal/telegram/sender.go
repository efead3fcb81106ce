// Package telegram wraps the Telegram Bot API with the hub's delivery
// policy: throttling, flood-wait retries and tolerance for recipients
// that went away.
package telegram

import (
	"context"
	"errors"
	"time"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"
	"golang.org/x/time/rate"
)

// Messenger is the send surface the flow engine uses. *Sender
// implements it; tests substitute recorders.
type Messenger interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error)
	SendDocument(ctx context.Context, params *telego.SendDocumentParams) (*telego.Message, error)
	SendVideo(ctx context.Context, params *telego.SendVideoParams) (*telego.Message, error)
	SendAudio(ctx context.Context, params *telego.SendAudioParams) (*telego.Message, error)
	SendMediaGroup(ctx context.Context, params *telego.SendMediaGroupParams) ([]telego.Message, error)
	DeleteMessage(ctx context.Context, params *telego.DeleteMessageParams) error
	DeleteMessages(ctx context.Context, params *telego.DeleteMessagesParams) error
}

// Sender applies the delivery policy to every call:
//
//   - a global per-bot rate limit keeps bursts under the platform cap;
//   - flood-wait (429) sleeps the advised delay and retries once;
//   - a gone recipient (403, 404), platform outage (5xx) or network
//     failure yields no result and no error, so one dead chat never
//     fails a whole flow branch.
type Sender struct {
	bot     *telego.Bot
	limiter *rate.Limiter
}

var _ Messenger = (*Sender)(nil)

// NewSender wraps bot with the delivery policy.
func NewSender(bot *telego.Bot) *Sender {
	return &Sender{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(25), 5),
	}
}

func call[T any](ctx context.Context, s *Sender, fn func() (T, error)) (T, error) {
	var zero T

	if err := s.limiter.Wait(ctx); err != nil {
		return zero, err
	}

	result, err := fn()
	if err == nil {
		return result, nil
	}

	var apiErr *telegoapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.ErrorCode == 429 {
			retryAfter := time.Second
			if apiErr.Parameters != nil && apiErr.Parameters.RetryAfter > 0 {
				retryAfter = time.Duration(apiErr.Parameters.RetryAfter) * time.Second
			}
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(retryAfter):
			}
			if result, err = fn(); err == nil {
				return result, nil
			}
			if !errors.As(err, &apiErr) {
				if ctx.Err() != nil {
					return zero, err
				}
				return zero, nil
			}
		}
		if apiErr.ErrorCode == 403 || apiErr.ErrorCode == 404 || apiErr.ErrorCode >= 500 {
			return zero, nil
		}
		return zero, err
	}

	if ctx.Err() != nil {
		return zero, err
	}
	// Network-level failure; the update is lost, the flow is not.
	return zero, nil
}

func (s *Sender) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	return call(ctx, s, func() (*telego.Message, error) { return s.bot.SendMessage(ctx, params) })
}

func (s *Sender) SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error) {
	return call(ctx, s, func() (*telego.Message, error) { return s.bot.SendPhoto(ctx, params) })
}

func (s *Sender) SendDocument(ctx context.Context, params *telego.SendDocumentParams) (*telego.Message, error) {
	return call(ctx, s, func() (*telego.Message, error) { return s.bot.SendDocument(ctx, params) })
}

func (s *Sender) SendVideo(ctx context.Context, params *telego.SendVideoParams) (*telego.Message, error) {
	return call(ctx, s, func() (*telego.Message, error) { return s.bot.SendVideo(ctx, params) })
}

func (s *Sender) SendAudio(ctx context.Context, params *telego.SendAudioParams) (*telego.Message, error) {
	return call(ctx, s, func() (*telego.Message, error) { return s.bot.SendAudio(ctx, params) })
}

func (s *Sender) SendMediaGroup(ctx context.Context, params *telego.SendMediaGroupParams) ([]telego.Message, error) {
	return call(ctx, s, func() ([]telego.Message, error) { return s.bot.SendMediaGroup(ctx, params) })
}

func (s *Sender) DeleteMessage(ctx context.Context, params *telego.DeleteMessageParams) error {
	_, err := call(ctx, s, func() (struct{}, error) {
		return struct{}{}, s.bot.DeleteMessage(ctx, params)
	})
	return err
}

func (s *Sender) DeleteMessages(ctx context.Context, params *telego.DeleteMessagesParams) error {
	_, err := call(ctx, s, func() (struct{}, error) {
		return struct{}{}, s.bot.DeleteMessages(ctx, params)
	})
	return err
}
