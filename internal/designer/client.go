package designer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// API is the part of the Designer Service the flow engine and the hub
// consume. *Client implements it; tests substitute fakes.
type API interface {
	Bot(ctx context.Context) (*Bot, error)
	Triggers(ctx context.Context, filter TriggersFilter) ([]Trigger, error)
	Trigger(ctx context.Context, id int64) (*Trigger, error)
	Message(ctx context.Context, id int64) (*Message, error)
	KeyboardButtons(ctx context.Context, filter ButtonsFilter) ([]KeyboardButton, error)
	Condition(ctx context.Context, id int64) (*Condition, error)
	APIRequest(ctx context.Context, id int64) (*APIRequest, error)
	DatabaseOperation(ctx context.Context, id int64) (*DatabaseOperation, error)
	BackgroundTasks(ctx context.Context) ([]BackgroundTask, error)
	Variables(ctx context.Context, name *string) ([]Variable, error)
	Users(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, user CreateUser) (*User, error)
	DatabaseRecords(ctx context.Context, filter RecordsFilter) ([]DatabaseRecord, error)
	CreateDatabaseRecord(ctx context.Context, data any) (*DatabaseRecord, error)
	UpdateDatabaseRecords(ctx context.Context, data any, overwrite bool, search string) ([]DatabaseRecord, error)
}

// TriggersFilter narrows the triggers listing. Nil fields are omitted.
type TriggersFilter struct {
	HasCommand            *bool
	Command               *string
	HasCommandPayload     *bool
	CommandPayload        *string
	HasCommandDescription *bool
	HasMessage            *bool
	HasMessageText        *bool
	HasTargetConnections  *bool
}

func (f TriggersFilter) values() url.Values {
	v := url.Values{}
	addBool(v, "has_command", f.HasCommand)
	addStr(v, "command", f.Command)
	addBool(v, "has_command_payload", f.HasCommandPayload)
	addStr(v, "command_payload", f.CommandPayload)
	addBool(v, "has_command_description", f.HasCommandDescription)
	addBool(v, "has_message", f.HasMessage)
	addBool(v, "has_message_text", f.HasMessageText)
	addBool(v, "has_target_connections", f.HasTargetConnections)
	return v
}

// ButtonsFilter narrows the keyboard buttons listing.
type ButtonsFilter struct {
	ID   *int64
	Text *string
}

func (f ButtonsFilter) values() url.Values {
	v := url.Values{}
	if f.ID != nil {
		v.Set("id", strconv.FormatInt(*f.ID, 10))
	}
	addStr(v, "text", f.Text)
	return v
}

// RecordsFilter narrows the database records listing.
type RecordsFilter struct {
	Search      *string
	HasDataPath *string
}

func (f RecordsFilter) values() url.Values {
	v := url.Values{}
	addStr(v, "search", f.Search)
	addStr(v, "has_data_path", f.HasDataPath)
	return v
}

func addBool(v url.Values, key string, val *bool) {
	if val != nil {
		v.Set(key, strconv.FormatBool(*val))
	}
}

func addStr(v url.Values, key string, val *string) {
	if val != nil {
		v.Set(key, *val)
	}
}

// Client is a Designer Service client scoped to one hosted bot.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

var _ API = (*Client)(nil)

// NewClient builds a client rooted at the per-bot API prefix. When
// unixSock is non-empty all requests are dialed over that socket.
func NewClient(serviceURL, token string, unixSock string, botServiceID int64) *Client {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	if unixSock != "" {
		httpClient.Transport = &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", unixSock)
			},
		}
	}
	return &Client{
		http: httpClient,
		baseURL: fmt.Sprintf("%s/api/telegram-bots-hub/telegram-bots/%d/",
			strings.TrimSuffix(serviceURL, "/"), botServiceID),
		token: token,
	}
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("designer: encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("designer: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("designer: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("designer: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("designer: %s %s: decode response: %w", method, path, err)
	}
	return nil
}

func (c *Client) Bot(ctx context.Context) (*Bot, error) {
	var bot Bot
	if err := c.do(ctx, http.MethodGet, "", nil, nil, &bot); err != nil {
		return nil, err
	}
	return &bot, nil
}

func (c *Client) Triggers(ctx context.Context, filter TriggersFilter) ([]Trigger, error) {
	var triggers []Trigger
	if err := c.do(ctx, http.MethodGet, "triggers/", filter.values(), nil, &triggers); err != nil {
		return nil, err
	}
	return triggers, nil
}

func (c *Client) Trigger(ctx context.Context, id int64) (*Trigger, error) {
	var trigger Trigger
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("triggers/%d/", id), nil, nil, &trigger); err != nil {
		return nil, err
	}
	return &trigger, nil
}

func (c *Client) Message(ctx context.Context, id int64) (*Message, error) {
	var message Message
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("messages/%d/", id), nil, nil, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

func (c *Client) KeyboardButtons(ctx context.Context, filter ButtonsFilter) ([]KeyboardButton, error) {
	var buttons []KeyboardButton
	if err := c.do(ctx, http.MethodGet, "messages-keyboard-buttons/", filter.values(), nil, &buttons); err != nil {
		return nil, err
	}
	return buttons, nil
}

func (c *Client) Condition(ctx context.Context, id int64) (*Condition, error) {
	var condition Condition
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("conditions/%d/", id), nil, nil, &condition); err != nil {
		return nil, err
	}
	return &condition, nil
}

func (c *Client) APIRequest(ctx context.Context, id int64) (*APIRequest, error) {
	var request APIRequest
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("api-requests/%d/", id), nil, nil, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

func (c *Client) DatabaseOperation(ctx context.Context, id int64) (*DatabaseOperation, error) {
	var op DatabaseOperation
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("database-operations/%d/", id), nil, nil, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

func (c *Client) BackgroundTasks(ctx context.Context) ([]BackgroundTask, error) {
	var tasks []BackgroundTask
	if err := c.do(ctx, http.MethodGet, "background-tasks/", nil, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) Variables(ctx context.Context, name *string) ([]Variable, error) {
	params := url.Values{}
	addStr(params, "name", name)

	var variables []Variable
	if err := c.do(ctx, http.MethodGet, "variables/", params, nil, &variables); err != nil {
		return nil, err
	}
	return variables, nil
}

func (c *Client) Users(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.do(ctx, http.MethodGet, "users/", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) CreateUser(ctx context.Context, user CreateUser) (*User, error) {
	var created User
	if err := c.do(ctx, http.MethodPost, "users/", nil, user, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DatabaseRecords(ctx context.Context, filter RecordsFilter) ([]DatabaseRecord, error) {
	var records []DatabaseRecord
	if err := c.do(ctx, http.MethodGet, "database-records/", filter.values(), nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) CreateDatabaseRecord(ctx context.Context, data any) (*DatabaseRecord, error) {
	var record DatabaseRecord
	body := map[string]any{"data": data}
	if err := c.do(ctx, http.MethodPost, "database-records/", nil, body, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateDatabaseRecords patches records matching search. Overwrite
// replaces the whole document instead of merging.
func (c *Client) UpdateDatabaseRecords(ctx context.Context, data any, overwrite bool, search string) ([]DatabaseRecord, error) {
	method := http.MethodPatch
	if overwrite {
		method = http.MethodPut
	}
	params := url.Values{}
	params.Set("search", search)

	var records []DatabaseRecord
	body := map[string]any{"data": data}
	if err := c.do(ctx, method, "database-records/update-many/", params, body, &records); err != nil {
		return nil, err
	}
	return records, nil
}
