package flow

import (
	"strings"
	"testing"

	"github.com/mymmrac/telego"
)

func TestFromTelegram(t *testing.T) {
	t.Run("message", func(t *testing.T) {
		raw := telego.Update{Message: &telego.Message{
			MessageID: 3,
			Text:      "hi",
			Chat:      telego.Chat{ID: 5},
			From:      &telego.User{ID: 7},
		}}
		u := FromTelegram(raw)
		if u.Chat == nil || u.Chat.ID != 5 {
			t.Errorf("chat = %#v, want id 5", u.Chat)
		}
		if u.User == nil || u.User.ID != 7 {
			t.Errorf("user = %#v, want id 7", u.User)
		}
		if u.Text() != "hi" {
			t.Errorf("Text() = %q, want hi", u.Text())
		}
	})

	t.Run("callback with accessible message", func(t *testing.T) {
		raw := telego.Update{CallbackQuery: &telego.CallbackQuery{
			From: telego.User{ID: 7},
			Data: "42",
			Message: &telego.Message{
				MessageID: 3,
				Chat:      telego.Chat{ID: 5},
			},
		}}
		u := FromTelegram(raw)
		if u.Callback == nil || u.Callback.Data != "42" {
			t.Errorf("callback = %#v, want data 42", u.Callback)
		}
		if u.Chat == nil || u.Chat.ID != 5 {
			t.Errorf("chat = %#v, want id 5", u.Chat)
		}
	})

	t.Run("unsupported update", func(t *testing.T) {
		u := FromTelegram(telego.Update{})
		if u.User != nil || u.Chat != nil {
			t.Errorf("empty update produced %#v", u)
		}
	})
}

func TestSynthetic(t *testing.T) {
	u := Synthetic(99, "Ann Smith")
	if u.User == nil || u.User.ID != 99 {
		t.Fatalf("user = %#v, want id 99", u.User)
	}
	if u.Chat == nil || u.Chat.ID != 99 || u.Chat.Type != telego.ChatTypePrivate {
		t.Fatalf("chat = %#v, want private chat 99", u.Chat)
	}
	if u.User.FirstName != "Ann Smith" || u.User.LastName != "" {
		t.Errorf("name split = (%q, %q)", u.User.FirstName, u.User.LastName)
	}
	if u.Message != nil {
		t.Error("synthetic update carries a message")
	}
}

func TestSplitFullName(t *testing.T) {
	t.Run("short name stays first", func(t *testing.T) {
		first, last := SplitFullName("Ann Smith")
		if first != "Ann Smith" || last != "" {
			t.Errorf("SplitFullName() = (%q, %q)", first, last)
		}
	})

	t.Run("long name splits at the platform cap", func(t *testing.T) {
		long := strings.Repeat("é", 70)
		first, last := SplitFullName(long)
		if got := len([]rune(first)); got != 64 {
			t.Errorf("first name runes = %d, want 64", got)
		}
		if got := len([]rune(last)); got != 6 {
			t.Errorf("last name runes = %d, want 6", got)
		}
	})
}

func TestFullName(t *testing.T) {
	tests := []struct {
		first, last, want string
	}{
		{"Ann", "Smith", "Ann Smith"},
		{"Ann", "", "Ann"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := FullName(tt.first, tt.last); got != tt.want {
			t.Errorf("FullName(%q, %q) = %q, want %q", tt.first, tt.last, got, tt.want)
		}
	}
}
