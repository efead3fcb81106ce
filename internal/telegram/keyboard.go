package telegram

import (
	"sort"
	"strconv"

	"github.com/mymmrac/telego"

	"github.com/exg1o/telegram-bots-hub/internal/designer"
)

// BuildReplyMarkup assembles the platform keyboard for a message node.
// Buttons are laid out by (row, position). Inline and payment
// keyboards use the button id as callback data so a press can be
// routed back to the button's connections.
func BuildReplyMarkup(keyboard *designer.MessageKeyboard) telego.ReplyMarkup {
	if keyboard == nil || len(keyboard.Buttons) == 0 {
		return nil
	}

	buttons := make([]designer.KeyboardButton, len(keyboard.Buttons))
	copy(buttons, keyboard.Buttons)
	sort.SliceStable(buttons, func(i, j int) bool {
		if buttons[i].Row != buttons[j].Row {
			return buttons[i].Row < buttons[j].Row
		}
		return buttons[i].Position < buttons[j].Position
	})

	if keyboard.Type == designer.KeyboardDefault {
		var rows [][]telego.KeyboardButton
		for i, button := range buttons {
			if i == 0 || button.Row != buttons[i-1].Row {
				rows = append(rows, nil)
			}
			rows[len(rows)-1] = append(rows[len(rows)-1], telego.KeyboardButton{Text: button.Text})
		}
		return &telego.ReplyKeyboardMarkup{Keyboard: rows, ResizeKeyboard: true}
	}

	var rows [][]telego.InlineKeyboardButton
	for i, button := range buttons {
		if i == 0 || button.Row != buttons[i-1].Row {
			rows = append(rows, nil)
		}
		inline := telego.InlineKeyboardButton{Text: button.Text}
		if button.URL != nil && *button.URL != "" {
			inline.URL = *button.URL
		} else {
			inline.CallbackData = strconv.FormatInt(button.ID, 10)
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], inline)
	}
	return &telego.InlineKeyboardMarkup{InlineKeyboard: rows}
}
