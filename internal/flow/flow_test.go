package flow

import (
	"context"
	"sync"
	"time"

	"github.com/mymmrac/telego"

	"github.com/exg1o/telegram-bots-hub/internal/designer"
)

// fakeAPI implements designer.API through overridable hooks. A method
// without a hook returns zero values.
type fakeAPI struct {
	bot         *designer.Bot
	triggers    func(filter designer.TriggersFilter) ([]designer.Trigger, error)
	trigger     func(id int64) (*designer.Trigger, error)
	message     func(id int64) (*designer.Message, error)
	buttons     func(filter designer.ButtonsFilter) ([]designer.KeyboardButton, error)
	condition   func(id int64) (*designer.Condition, error)
	apiRequest  func(id int64) (*designer.APIRequest, error)
	databaseOp  func(id int64) (*designer.DatabaseOperation, error)
	variables   func(name *string) ([]designer.Variable, error)
	users       func() ([]designer.User, error)
	createUser  func(user designer.CreateUser) (*designer.User, error)
	records     func(filter designer.RecordsFilter) ([]designer.DatabaseRecord, error)
	createRec   func(data any) (*designer.DatabaseRecord, error)
	updateRecs  func(data any, overwrite bool, search string) ([]designer.DatabaseRecord, error)
	backgroundT func() ([]designer.BackgroundTask, error)
}

var _ designer.API = (*fakeAPI)(nil)

func (f *fakeAPI) Bot(context.Context) (*designer.Bot, error) {
	if f.bot != nil {
		return f.bot, nil
	}
	return &designer.Bot{ID: 1}, nil
}

func (f *fakeAPI) Triggers(_ context.Context, filter designer.TriggersFilter) ([]designer.Trigger, error) {
	if f.triggers != nil {
		return f.triggers(filter)
	}
	return nil, nil
}

func (f *fakeAPI) Trigger(_ context.Context, id int64) (*designer.Trigger, error) {
	if f.trigger != nil {
		return f.trigger(id)
	}
	return &designer.Trigger{ID: id}, nil
}

func (f *fakeAPI) Message(_ context.Context, id int64) (*designer.Message, error) {
	if f.message != nil {
		return f.message(id)
	}
	return &designer.Message{ID: id}, nil
}

func (f *fakeAPI) KeyboardButtons(_ context.Context, filter designer.ButtonsFilter) ([]designer.KeyboardButton, error) {
	if f.buttons != nil {
		return f.buttons(filter)
	}
	return nil, nil
}

func (f *fakeAPI) Condition(_ context.Context, id int64) (*designer.Condition, error) {
	if f.condition != nil {
		return f.condition(id)
	}
	return &designer.Condition{ID: id}, nil
}

func (f *fakeAPI) APIRequest(_ context.Context, id int64) (*designer.APIRequest, error) {
	if f.apiRequest != nil {
		return f.apiRequest(id)
	}
	return &designer.APIRequest{ID: id}, nil
}

func (f *fakeAPI) DatabaseOperation(_ context.Context, id int64) (*designer.DatabaseOperation, error) {
	if f.databaseOp != nil {
		return f.databaseOp(id)
	}
	return &designer.DatabaseOperation{ID: id}, nil
}

func (f *fakeAPI) BackgroundTasks(context.Context) ([]designer.BackgroundTask, error) {
	if f.backgroundT != nil {
		return f.backgroundT()
	}
	return nil, nil
}

func (f *fakeAPI) Variables(_ context.Context, name *string) ([]designer.Variable, error) {
	if f.variables != nil {
		return f.variables(name)
	}
	return nil, nil
}

func (f *fakeAPI) Users(context.Context) ([]designer.User, error) {
	if f.users != nil {
		return f.users()
	}
	return nil, nil
}

func (f *fakeAPI) CreateUser(_ context.Context, user designer.CreateUser) (*designer.User, error) {
	if f.createUser != nil {
		return f.createUser(user)
	}
	return &designer.User{ID: 1, TelegramID: user.TelegramID, FullName: user.FullName, IsAllowed: true}, nil
}

func (f *fakeAPI) DatabaseRecords(_ context.Context, filter designer.RecordsFilter) ([]designer.DatabaseRecord, error) {
	if f.records != nil {
		return f.records(filter)
	}
	return nil, nil
}

func (f *fakeAPI) CreateDatabaseRecord(_ context.Context, data any) (*designer.DatabaseRecord, error) {
	if f.createRec != nil {
		return f.createRec(data)
	}
	return &designer.DatabaseRecord{ID: 1, Data: data}, nil
}

func (f *fakeAPI) UpdateDatabaseRecords(_ context.Context, data any, overwrite bool, search string) ([]designer.DatabaseRecord, error) {
	if f.updateRecs != nil {
		return f.updateRecs(data, overwrite, search)
	}
	return nil, nil
}

// mapKV is an in-memory scratch backend.
type mapKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMapKV() *mapKV {
	return &mapKV{data: map[string]string{}}
}

func (m *mapKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *mapKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// recorderMessenger records every send and acknowledges it with an
// incrementing message id.
type recorderMessenger struct {
	mu       sync.Mutex
	nextID   int
	messages []*telego.SendMessageParams
	photos   []*telego.SendPhotoParams
	docs     []*telego.SendDocumentParams
	groups   []*telego.SendMediaGroupParams
	deleted  []*telego.DeleteMessagesParams
}

func (r *recorderMessenger) ack() telego.Message {
	r.nextID++
	return telego.Message{MessageID: r.nextID}
}

func (r *recorderMessenger) SendMessage(_ context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, params)
	msg := r.ack()
	return &msg, nil
}

func (r *recorderMessenger) SendPhoto(_ context.Context, params *telego.SendPhotoParams) (*telego.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.photos = append(r.photos, params)
	msg := r.ack()
	return &msg, nil
}

func (r *recorderMessenger) SendDocument(_ context.Context, params *telego.SendDocumentParams) (*telego.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, params)
	msg := r.ack()
	return &msg, nil
}

func (r *recorderMessenger) SendVideo(_ context.Context, _ *telego.SendVideoParams) (*telego.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg := r.ack()
	return &msg, nil
}

func (r *recorderMessenger) SendAudio(_ context.Context, _ *telego.SendAudioParams) (*telego.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg := r.ack()
	return &msg, nil
}

func (r *recorderMessenger) SendMediaGroup(_ context.Context, params *telego.SendMediaGroupParams) ([]telego.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = append(r.groups, params)
	msgs := make([]telego.Message, len(params.Media))
	for i := range msgs {
		msgs[i] = r.ack()
	}
	return msgs, nil
}

func (r *recorderMessenger) DeleteMessage(context.Context, *telego.DeleteMessageParams) error {
	return nil
}

func (r *recorderMessenger) DeleteMessages(_ context.Context, params *telego.DeleteMessagesParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, params)
	return nil
}

// testVariables builds a bag with a fixed bot identity plus extra
// names.
func testVariables(api designer.API, extra map[string]any) *Variables {
	vars := NewVariables(api, &telego.User{ID: 10, FirstName: "Test", Username: "test_bot"}, Update{})
	for name, value := range extra {
		vars.Add(name, value)
	}
	return vars
}

// testUpdate is a plain private-chat text message.
func testUpdate(text string) Update {
	user := &telego.User{ID: 100, FirstName: "Ann", Username: "ann"}
	chat := &telego.Chat{ID: 100, Type: telego.ChatTypePrivate}
	return Update{
		Chat: chat,
		User: user,
		Message: &telego.Message{
			MessageID: 7,
			Text:      text,
			Chat:      *chat,
			From:      user,
		},
	}
}
