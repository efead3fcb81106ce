package designer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	auth   string
	body   string
}

func newRecordingServer(t *testing.T, response string) (*httptest.Server, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*rec = recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
			body:   string(body),
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, response)
	}))
	t.Cleanup(server.Close)
	return server, rec
}

func TestClientRequestShape(t *testing.T) {
	server, rec := newRecordingServer(t, `{"id": 1, "is_private": false}`)
	client := NewClient(server.URL, "secret-token", "", 7)

	bot, err := client.Bot(context.Background())
	if err != nil {
		t.Fatalf("Bot() error = %v", err)
	}
	if bot.ID != 1 {
		t.Errorf("bot id = %d, want 1", bot.ID)
	}
	if rec.path != "/api/telegram-bots-hub/telegram-bots/7/" {
		t.Errorf("path = %q", rec.path)
	}
	if rec.auth != "Token secret-token" {
		t.Errorf("authorization = %q", rec.auth)
	}
}

func TestClientTriggersFilter(t *testing.T) {
	server, rec := newRecordingServer(t, `[]`)
	client := NewClient(server.URL, "t", "", 7)

	command := "start"
	hasPayload := false
	_, err := client.Triggers(context.Background(), TriggersFilter{
		Command:           &command,
		HasCommandPayload: &hasPayload,
	})
	if err != nil {
		t.Fatalf("Triggers() error = %v", err)
	}
	if rec.path != "/api/telegram-bots-hub/telegram-bots/7/triggers/" {
		t.Errorf("path = %q", rec.path)
	}
	if rec.query != "command=start&has_command_payload=false" {
		t.Errorf("query = %q, want lowercase booleans", rec.query)
	}
}

func TestClientKeyboardButtonsFilter(t *testing.T) {
	server, rec := newRecordingServer(t, `[]`)
	client := NewClient(server.URL, "t", "", 7)

	id := int64(42)
	if _, err := client.KeyboardButtons(context.Background(), ButtonsFilter{ID: &id}); err != nil {
		t.Fatalf("KeyboardButtons() error = %v", err)
	}
	if rec.path != "/api/telegram-bots-hub/telegram-bots/7/messages-keyboard-buttons/" {
		t.Errorf("path = %q", rec.path)
	}
	if rec.query != "id=42" {
		t.Errorf("query = %q", rec.query)
	}
}

func TestClientCreateUser(t *testing.T) {
	server, rec := newRecordingServer(t, `{"id": 9, "telegram_id": 100, "full_name": "Ann", "is_allowed": true}`)
	client := NewClient(server.URL, "t", "", 7)

	user, err := client.CreateUser(context.Background(), CreateUser{TelegramID: 100, FullName: "Ann"})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if rec.method != http.MethodPost || rec.path != "/api/telegram-bots-hub/telegram-bots/7/users/" {
		t.Errorf("request = %s %s", rec.method, rec.path)
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(rec.body), &body); err != nil {
		t.Fatalf("body is not json: %v", err)
	}
	if body["telegram_id"] != 100.0 || body["full_name"] != "Ann" {
		t.Errorf("body = %#v", body)
	}
	if user.ID != 9 || !user.IsAllowed {
		t.Errorf("user = %#v", user)
	}
}

func TestClientCreateDatabaseRecordWrapsData(t *testing.T) {
	server, rec := newRecordingServer(t, `{"id": 1, "data": {"k": "v"}}`)
	client := NewClient(server.URL, "t", "", 7)

	if _, err := client.CreateDatabaseRecord(context.Background(), map[string]any{"k": "v"}); err != nil {
		t.Fatalf("CreateDatabaseRecord() error = %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(rec.body), &body); err != nil {
		t.Fatal(err)
	}
	if _, ok := body["data"]; !ok {
		t.Errorf("body = %#v, want the record under data", body)
	}
}

func TestClientUpdateDatabaseRecords(t *testing.T) {
	tests := []struct {
		name       string
		overwrite  bool
		wantMethod string
	}{
		{"partial update patches", false, http.MethodPatch},
		{"overwrite puts", true, http.MethodPut},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, rec := newRecordingServer(t, `[]`)
			client := NewClient(server.URL, "t", "", 7)

			_, err := client.UpdateDatabaseRecords(context.Background(),
				map[string]any{"seen": true}, tt.overwrite, `"name": "Ann"`)
			if err != nil {
				t.Fatalf("UpdateDatabaseRecords() error = %v", err)
			}
			if rec.method != tt.wantMethod {
				t.Errorf("method = %q, want %q", rec.method, tt.wantMethod)
			}
			if rec.path != "/api/telegram-bots-hub/telegram-bots/7/database-records/update-many/" {
				t.Errorf("path = %q", rec.path)
			}
			if rec.query != `search=%22name%22%3A+%22Ann%22` {
				t.Errorf("query = %q", rec.query)
			}
		})
	}
}

func TestClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(server.Close)
	client := NewClient(server.URL, "t", "", 7)

	if _, err := client.Bot(context.Background()); err == nil {
		t.Error("Bot() on a 403 returned nil error")
	}
}
