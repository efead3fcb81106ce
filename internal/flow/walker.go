package flow

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/exg1o/telegram-bots-hub/internal/designer"
	"github.com/exg1o/telegram-bots-hub/internal/scratch"
	"github.com/exg1o/telegram-bots-hub/internal/telegram"
)

// MaxDepth caps how deep one traversal may go. A graph with a cycle
// stops here instead of looping forever.
const MaxDepth = 64

// Walker executes flow nodes and fans out over their outgoing
// connections. One Walker serves one running bot.
type Walker struct {
	api        designer.API
	messenger  telegram.Messenger
	botID      int64
	serviceURL string
	outbound   *http.Client
	log        *slog.Logger
}

// NewWalker builds the walker for one bot. botID is the bot's Telegram
// id; it scopes scratch keys and tags outbound api-request calls.
func NewWalker(api designer.API, messenger telegram.Messenger, botID int64, serviceURL string) *Walker {
	return &Walker{
		api:        api,
		messenger:  messenger,
		botID:      botID,
		serviceURL: serviceURL,
		outbound:   newOutboundClient(),
		log:        slog.Default().With("bot_id", botID),
	}
}

// HandleMany walks every starting connection concurrently. Each branch
// forks the variables bag, and a failing branch is logged without
// touching its siblings.
func (w *Walker) HandleMany(ctx context.Context, u Update, connections []designer.Connection, es *scratch.EventStorage, vars *Variables) {
	w.handleMany(ctx, uuid.NewString(), u, connections, es, vars, 0)
}

func (w *Walker) handleMany(ctx context.Context, traversal string, u Update, connections []designer.Connection, es *scratch.EventStorage, vars *Variables, depth int) {
	if len(connections) == 0 {
		return
	}
	if depth >= MaxDepth {
		w.log.Warn("flow depth limit reached",
			"traversal", traversal,
			"connections", len(connections))
		return
	}

	var g errgroup.Group
	for _, connection := range connections {
		g.Go(func() error {
			branchVars := vars.Clone()
			next, err := w.handleOne(ctx, u, connection, es, branchVars)
			if err != nil {
				w.log.Error("flow node failed",
					"traversal", traversal,
					"object_type", connection.TargetObjectType,
					"object_id", connection.TargetObjectID,
					"error", err)
				return nil
			}
			w.handleMany(ctx, traversal, u, next, es, branchVars, depth+1)
			return nil
		})
	}
	g.Wait()
}

func (w *Walker) handleOne(ctx context.Context, u Update, connection designer.Connection, es *scratch.EventStorage, vars *Variables) ([]designer.Connection, error) {
	switch connection.TargetObjectType {
	case designer.ObjectTrigger:
		return w.handleTrigger(ctx, connection.TargetObjectID, es)
	case designer.ObjectMessage:
		return w.handleMessage(ctx, u, connection.TargetObjectID, es, vars)
	case designer.ObjectCondition:
		return w.handleCondition(ctx, connection.TargetObjectID, vars)
	case designer.ObjectAPIRequest:
		return w.handleAPIRequest(ctx, connection.TargetObjectID, vars)
	case designer.ObjectDatabaseOperation:
		return w.handleDatabaseOperation(ctx, connection.TargetObjectID, vars)
	}
	return nil, fmt.Errorf("unknown flow object type %q", connection.TargetObjectType)
}

// handleTrigger arms an expected trigger: the flow pauses here until
// the user's next matching input.
func (w *Walker) handleTrigger(ctx context.Context, id int64, es *scratch.EventStorage) ([]designer.Connection, error) {
	if es.User == nil {
		return nil, nil
	}
	if err := es.User.Set(ctx, "expected_trigger_id", id); err != nil {
		return nil, err
	}
	return nil, nil
}

// handleCondition continues along the condition's connections only
// when the folded comparison comes out true.
func (w *Walker) handleCondition(ctx context.Context, id int64, vars *Variables) ([]designer.Connection, error) {
	condition, err := w.api.Condition(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := EvaluateCondition(ctx, condition, vars)
	if err != nil {
		return nil, err
	}
	if !result {
		return nil, nil
	}
	return condition.SourceConnections, nil
}
