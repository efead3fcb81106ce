// Package flow executes a bot's flow graph for one incoming update:
// it picks the starting connections, then walks the graph node by node.
package flow

import (
	"strings"

	"github.com/mymmrac/telego"
)

// Update is the effective view of one incoming event. Fields are nil
// when the event does not carry them.
type Update struct {
	Chat     *telego.Chat
	User     *telego.User
	Message  *telego.Message
	Callback *telego.CallbackQuery
}

// FromTelegram extracts the effective chat, user and message from a
// raw platform update.
func FromTelegram(raw telego.Update) Update {
	switch {
	case raw.Message != nil:
		return Update{
			Chat:    &raw.Message.Chat,
			User:    raw.Message.From,
			Message: raw.Message,
		}
	case raw.CallbackQuery != nil:
		u := Update{
			User:     &raw.CallbackQuery.From,
			Callback: raw.CallbackQuery,
		}
		if msg, ok := raw.CallbackQuery.Message.(*telego.Message); ok && msg != nil {
			u.Chat = &msg.Chat
			u.Message = msg
		}
		return u
	}
	return Update{}
}

// Synthetic builds the update a background task acts as: the user in
// their private chat, with no message.
func Synthetic(telegramID int64, fullName string) Update {
	firstName, lastName := SplitFullName(fullName)
	user := &telego.User{
		ID:        telegramID,
		FirstName: firstName,
		LastName:  lastName,
	}
	return Update{
		User: user,
		Chat: &telego.Chat{
			ID:        telegramID,
			Type:      telego.ChatTypePrivate,
			FirstName: firstName,
			LastName:  lastName,
		},
	}
}

// SplitFullName folds a stored full name back into Telegram's
// first/last split. First names cap at 64 characters.
func SplitFullName(fullName string) (string, string) {
	runes := []rune(fullName)
	if len(runes) <= 64 {
		return fullName, ""
	}
	return string(runes[:64]), string(runes[64:])
}

// FullName joins the Telegram first/last name pair.
func FullName(firstName, lastName string) string {
	if lastName == "" {
		return firstName
	}
	return strings.TrimSpace(firstName + " " + lastName)
}

// Text returns the message text, or "" when the update has none.
func (u Update) Text() string {
	if u.Message == nil {
		return ""
	}
	return u.Message.Text
}
