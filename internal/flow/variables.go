package flow

import (
	"context"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"

	"github.com/exg1o/telegram-bots-hub/internal/designer"
	"github.com/exg1o/telegram-bots-hub/internal/htmltext"
)

// Variables is the substitution bag one update travels with. Besides
// the seeded update facts it resolves two remote namespaces on demand:
// SELF.<name> reads a designer-defined variable and DATABASE.<path>
// reads into the bot's record store.
type Variables struct {
	api   designer.API
	store map[string]any
}

// NewVariables seeds the bag from the bot identity and the update.
func NewVariables(api designer.API, bot *telego.User, u Update) *Variables {
	store := map[string]any{
		"BOT_NAME":     FullName(bot.FirstName, bot.LastName),
		"BOT_USERNAME": bot.Username,
	}
	if user := u.User; user != nil {
		store["USER_ID"] = user.ID
		store["USER_USERNAME"] = user.Username
		store["USER_FIRST_NAME"] = user.FirstName
		store["USER_LAST_NAME"] = user.LastName
		store["USER_FULL_NAME"] = FullName(user.FirstName, user.LastName)
		store["USER_LANGUAGE_CODE"] = user.LanguageCode
	}
	if msg := u.Message; msg != nil {
		store["USER_MESSAGE_ID"] = msg.MessageID
		store["USER_MESSAGE_TEXT"] = msg.Text
		store["USER_MESSAGE_DATE"] = time.Unix(msg.Date, 0).UTC().Format(time.RFC3339)
	}
	return &Variables{api: api, store: store}
}

// Add makes value addressable as {{ name }} downstream of the caller.
func (v *Variables) Add(name string, value any) {
	v.store[name] = value
}

// Clone gives a forked flow branch its own bag. Nodes on one branch
// never see names added on a sibling.
func (v *Variables) Clone() *Variables {
	return &Variables{api: v.api, store: maps.Clone(v.store)}
}

// Get resolves one placeholder name. A nil result with a nil error
// means the name is unknown and the placeholder stays literal.
func (v *Variables) Get(ctx context.Context, name string) (any, error) {
	prefix, rest, nested := strings.Cut(name, ".")

	switch {
	case prefix == "SELF" && nested:
		return v.designerVariable(ctx, rest)
	case prefix == "DATABASE" && nested:
		return v.databaseValue(ctx, rest)
	case nested:
		if root, ok := v.store[prefix]; ok && isContainer(root) {
			return resolveDataPath(root, rest), nil
		}
	}
	return v.store[name], nil
}

func (v *Variables) designerVariable(ctx context.Context, name string) (any, error) {
	variables, err := v.api.Variables(ctx, &name)
	if err != nil {
		return nil, err
	}
	if len(variables) == 0 {
		return nil, nil
	}
	return htmltext.Clean(variables[0].Value), nil
}

func (v *Variables) databaseValue(ctx context.Context, path string) (any, error) {
	records, err := v.api.DatabaseRecords(ctx, designer.RecordsFilter{HasDataPath: &path})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return resolveDataPath(records[0].Data, path), nil
}

func isContainer(value any) bool {
	switch value.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

// resolveDataPath walks a dotted path through nested JSON containers.
// Integer segments index arrays. Any step that does not apply yields
// nil.
func resolveDataPath(data any, path string) any {
	for segment := range strings.SplitSeq(path, ".") {
		switch container := data.(type) {
		case map[string]any:
			value, ok := container[segment]
			if !ok {
				return nil
			}
			data = value
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(container) {
				return nil
			}
			data = container[index]
		default:
			return nil
		}
	}
	return data
}
