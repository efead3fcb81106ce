// Package designer talks to the Designer Service, the system of record
// for bots, flow objects and database records.
package designer

// ObjectType identifies what kind of flow node a connection endpoint is.
type ObjectType string

const (
	ObjectTrigger           ObjectType = "trigger"
	ObjectMessage           ObjectType = "message"
	ObjectCondition         ObjectType = "condition"
	ObjectAPIRequest        ObjectType = "api_request"
	ObjectDatabaseOperation ObjectType = "database_operation"
)

// Connection is a directed edge of the flow graph.
type Connection struct {
	ID               int64      `json:"id"`
	SourceObjectType ObjectType `json:"source_object_type"`
	SourceObjectID   int64      `json:"source_object_id"`
	TargetObjectType ObjectType `json:"target_object_type"`
	TargetObjectID   int64      `json:"target_object_id"`
}

// Bot is the Designer-side bot row for one hosted bot.
type Bot struct {
	ID        int64 `json:"id"`
	IsPrivate bool  `json:"is_private"`
}

// TriggerCommand matches updates that carry a slash command.
type TriggerCommand struct {
	Command     string  `json:"command"`
	Payload     *string `json:"payload"`
	Description *string `json:"description"`
}

// TriggerMessage matches plain text updates. A nil Text is a catch-all.
type TriggerMessage struct {
	Text *string `json:"text"`
}

// Trigger is an entry node of the flow graph.
type Trigger struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Command           *TriggerCommand `json:"command"`
	Message           *TriggerMessage `json:"message"`
	SourceConnections []Connection    `json:"source_connections"`
}

// MessageSettings control how a message node is delivered.
type MessageSettings struct {
	ReplyToUserMessage bool `json:"reply_to_user_message"`
	DeleteUserMessage  bool `json:"delete_user_message"`
	SendAsNewMessage   bool `json:"send_as_new_message"`
}

// MessageMedia is one attached image or document.
type MessageMedia struct {
	ID       int64   `json:"id"`
	Position int     `json:"position"`
	URL      *string `json:"url"`
	FromURL  *string `json:"from_url"`
}

// KeyboardType selects the keyboard rendering.
type KeyboardType string

const (
	KeyboardDefault KeyboardType = "default"
	KeyboardInline  KeyboardType = "inline"
	KeyboardPayment KeyboardType = "payment"
)

// KeyboardButton is one button of a message keyboard. Its ID doubles as
// the callback data for inline keyboards.
type KeyboardButton struct {
	ID                int64        `json:"id"`
	Row               int          `json:"row"`
	Position          int          `json:"position"`
	Text              string       `json:"text"`
	URL               *string      `json:"url"`
	SourceConnections []Connection `json:"source_connections"`
}

// MessageKeyboard is the keyboard attached to a message node.
type MessageKeyboard struct {
	Type    KeyboardType     `json:"type"`
	Buttons []KeyboardButton `json:"buttons"`
}

// Message is a send-to-user node of the flow graph.
type Message struct {
	ID                int64            `json:"id"`
	Name              string           `json:"name"`
	Settings          MessageSettings  `json:"settings"`
	Images            []MessageMedia   `json:"images"`
	Documents         []MessageMedia   `json:"documents"`
	Text              string           `json:"text"`
	Keyboard          *MessageKeyboard `json:"keyboard"`
	SourceConnections []Connection     `json:"source_connections"`
}

// ConditionPartOperator compares the two expanded operands of a part.
type ConditionPartOperator string

const (
	OperatorEqual        ConditionPartOperator = "=="
	OperatorNotEqual     ConditionPartOperator = "!="
	OperatorGreater      ConditionPartOperator = ">"
	OperatorGreaterEqual ConditionPartOperator = ">="
	OperatorLess         ConditionPartOperator = "<"
	OperatorLessEqual    ConditionPartOperator = "<="
)

// ConditionNextPartOperator combines a part with the one after it.
type ConditionNextPartOperator string

const (
	NextPartAnd ConditionNextPartOperator = "&&"
	NextPartOr  ConditionNextPartOperator = "||"
)

// ConditionPart is one comparison of a condition node.
type ConditionPart struct {
	ID               int64                      `json:"id"`
	FirstValue       string                     `json:"first_value"`
	Operator         ConditionPartOperator      `json:"operator"`
	SecondValue      string                     `json:"second_value"`
	NextPartOperator *ConditionNextPartOperator `json:"next_part_operator"`
}

// Condition is a branch node of the flow graph.
type Condition struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Parts             []ConditionPart `json:"parts"`
	SourceConnections []Connection    `json:"source_connections"`
}

// APIRequestMethod is the HTTP method of an api-request node, lower case
// on the wire.
type APIRequestMethod string

const (
	MethodGet    APIRequestMethod = "get"
	MethodPost   APIRequestMethod = "post"
	MethodPut    APIRequestMethod = "put"
	MethodPatch  APIRequestMethod = "patch"
	MethodDelete APIRequestMethod = "delete"
)

// APIRequest is an outbound HTTP call node.
type APIRequest struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	URL               string            `json:"url"`
	Method            APIRequestMethod  `json:"method"`
	Headers           map[string]string `json:"headers"`
	Body              any               `json:"body"`
	SourceConnections []Connection      `json:"source_connections"`
}

// DatabaseCreateOperation inserts a new record built from Data.
type DatabaseCreateOperation struct {
	Data any `json:"data"`
}

// DatabaseUpdateOperation updates records matching the lookup field.
type DatabaseUpdateOperation struct {
	Overwrite        bool   `json:"overwrite"`
	LookupFieldName  string `json:"lookup_field_name"`
	LookupFieldValue string `json:"lookup_field_value"`
	CreateIfNotFound bool   `json:"create_if_not_found"`
	NewData          any    `json:"new_data"`
}

// DatabaseOperation is a record create/update node. Exactly one of the
// two operations is set.
type DatabaseOperation struct {
	ID                int64                    `json:"id"`
	Name              string                   `json:"name"`
	CreateOperation   *DatabaseCreateOperation `json:"create_operation"`
	UpdateOperation   *DatabaseUpdateOperation `json:"update_operation"`
	SourceConnections []Connection             `json:"source_connections"`
}

// BackgroundTask is a timed entry node. Interval is in days.
type BackgroundTask struct {
	ID                int64        `json:"id"`
	Name              string       `json:"name"`
	Interval          int          `json:"interval"`
	SourceConnections []Connection `json:"source_connections"`
}

// Variable is a designer-defined named value, addressable from flow
// texts as {{ SELF.<name> }}.
type Variable struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// User is one Telegram user known to a bot.
type User struct {
	ID         int64  `json:"id"`
	TelegramID int64  `json:"telegram_id"`
	FullName   string `json:"full_name"`
	IsAllowed  bool   `json:"is_allowed"`
	IsBlocked  bool   `json:"is_blocked"`
}

// CreateUser is the payload for registering a user sighting.
type CreateUser struct {
	TelegramID int64  `json:"telegram_id"`
	FullName   string `json:"full_name"`
}

// DatabaseRecord is one JSON document of the bot's record store.
type DatabaseRecord struct {
	ID   int64 `json:"id"`
	Data any   `json:"data"`
}
