package telegram

import (
	"context"

	"github.com/mymmrac/telego"
)

// SendInput is one message node's delivery material, already expanded
// and sanitized.
type SendInput struct {
	ChatID    telego.ChatID
	ReplyTo   int
	Text      string
	Keyboard  telego.ReplyMarkup
	Photos    []telego.InputFile
	Documents []telego.InputFile
	Videos    []telego.InputFile
	Audios    []telego.InputFile
}

// Send executes the delivery plan for in and returns every message the
// platform acknowledged. Messages dropped by the delivery policy are
// simply absent from the result.
func Send(ctx context.Context, m Messenger, in SendInput) ([]telego.Message, error) {
	var replyParams *telego.ReplyParameters
	if in.ReplyTo != 0 {
		replyParams = &telego.ReplyParameters{MessageID: in.ReplyTo}
	}

	var sent []telego.Message
	for _, step := range Plan(PlanInput{
		Photos:      in.Photos,
		Documents:   in.Documents,
		Videos:      in.Videos,
		Audios:      in.Audios,
		Text:        in.Text,
		HasKeyboard: in.Keyboard != nil,
	}) {
		switch step.Kind {
		case StepText:
			msg, err := m.SendMessage(ctx, &telego.SendMessageParams{
				ChatID:          in.ChatID,
				Text:            in.Text,
				ParseMode:       telego.ModeHTML,
				ReplyParameters: replyParams,
				ReplyMarkup:     in.Keyboard,
			})
			if err != nil {
				return sent, err
			}
			if msg != nil {
				sent = append(sent, *msg)
			}

		case StepSingle:
			msg, err := sendSingle(ctx, m, in, step, replyParams)
			if err != nil {
				return sent, err
			}
			if msg != nil {
				sent = append(sent, *msg)
			}

		case StepGroup:
			msgs, err := m.SendMediaGroup(ctx, &telego.SendMediaGroupParams{
				ChatID:          in.ChatID,
				Media:           groupMedia(step.Media, step.Group),
				ReplyParameters: replyParams,
			})
			if err != nil {
				return sent, err
			}
			sent = append(sent, msgs...)
		}
	}
	return sent, nil
}

func sendSingle(ctx context.Context, m Messenger, in SendInput, step Step, replyParams *telego.ReplyParameters) (*telego.Message, error) {
	caption := ""
	parseMode := ""
	var markup telego.ReplyMarkup
	if step.WithText {
		caption = in.Text
		parseMode = telego.ModeHTML
		markup = in.Keyboard
	}

	switch step.Media {
	case MediaPhoto:
		return m.SendPhoto(ctx, &telego.SendPhotoParams{
			ChatID:          in.ChatID,
			Photo:           step.File,
			Caption:         caption,
			ParseMode:       parseMode,
			ReplyParameters: replyParams,
			ReplyMarkup:     markup,
		})
	case MediaVideo:
		return m.SendVideo(ctx, &telego.SendVideoParams{
			ChatID:          in.ChatID,
			Video:           step.File,
			Caption:         caption,
			ParseMode:       parseMode,
			ReplyParameters: replyParams,
			ReplyMarkup:     markup,
		})
	case MediaAudio:
		return m.SendAudio(ctx, &telego.SendAudioParams{
			ChatID:          in.ChatID,
			Audio:           step.File,
			Caption:         caption,
			ParseMode:       parseMode,
			ReplyParameters: replyParams,
			ReplyMarkup:     markup,
		})
	default:
		return m.SendDocument(ctx, &telego.SendDocumentParams{
			ChatID:          in.ChatID,
			Document:        step.File,
			Caption:         caption,
			ParseMode:       parseMode,
			ReplyParameters: replyParams,
			ReplyMarkup:     markup,
		})
	}
}

func groupMedia(kind MediaKind, files []telego.InputFile) []telego.InputMedia {
	media := make([]telego.InputMedia, 0, len(files))
	for _, file := range files {
		switch kind {
		case MediaPhoto:
			media = append(media, &telego.InputMediaPhoto{Type: telego.MediaTypePhoto, Media: file})
		case MediaVideo:
			media = append(media, &telego.InputMediaVideo{Type: telego.MediaTypeVideo, Media: file})
		case MediaAudio:
			media = append(media, &telego.InputMediaAudio{Type: telego.MediaTypeAudio, Media: file})
		default:
			media = append(media, &telego.InputMediaDocument{Type: telego.MediaTypeDocument, Media: file})
		}
	}
	return media
}
