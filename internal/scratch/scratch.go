// Package scratch is the per-bot working state store. Every scope
// (bot, chat, user) owns a single JSON object kept under one key.
package scratch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Expiry refreshes on every write; idle scopes age out on their own.
const Expiry = 30 * 24 * time.Hour

const keyPrefix = "tbh"

// KV is the minimal key/value backend the store needs. Get returns
// ("", nil) for a missing key.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Store reads and writes one scope's JSON object.
type Store struct {
	kv  KV
	key string
}

// ForBot returns the bot-wide scope.
func ForBot(kv KV, botID int64) *Store {
	return newStore(kv, botID)
}

// ForChat returns the per-chat scope.
func ForChat(kv KV, botID, chatID int64) *Store {
	return newStore(kv, botID, chatID)
}

// ForUser returns the per-user scope within a chat.
func ForUser(kv KV, botID, chatID, userID int64) *Store {
	return newStore(kv, botID, chatID, userID)
}

func newStore(kv KV, ids ...int64) *Store {
	parts := make([]string, 0, len(ids)+1)
	parts = append(parts, keyPrefix)
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return &Store{kv: kv, key: strings.Join(parts, ":")}
}

// Key returns the backend key of this scope.
func (s *Store) Key() string {
	return s.key
}

// Data returns the whole scope object. A missing key is an empty map.
func (s *Store) Data(ctx context.Context) (map[string]any, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("scratch: get %s: %w", s.key, err)
	}
	if raw == "" {
		return map[string]any{}, nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("scratch: corrupt data at %s: %w", s.key, err)
	}
	return data, nil
}

func (s *Store) write(ctx context.Context, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("scratch: encode %s: %w", s.key, err)
	}
	if err := s.kv.Set(ctx, s.key, string(raw), Expiry); err != nil {
		return fmt.Errorf("scratch: set %s: %w", s.key, err)
	}
	return nil
}

// Get returns one field, or nil when absent.
func (s *Store) Get(ctx context.Context, field string) (any, error) {
	data, err := s.Data(ctx)
	if err != nil {
		return nil, err
	}
	return data[field], nil
}

// Pop removes and returns one field.
func (s *Store) Pop(ctx context.Context, field string) (any, error) {
	data, err := s.Data(ctx)
	if err != nil {
		return nil, err
	}
	value, ok := data[field]
	if !ok {
		return nil, nil
	}
	delete(data, field)
	if err := s.write(ctx, data); err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores one field, refreshing the scope expiry.
func (s *Store) Set(ctx context.Context, field string, value any) error {
	data, err := s.Data(ctx)
	if err != nil {
		return err
	}
	data[field] = value
	return s.write(ctx, data)
}

// Delete removes one field. Absent fields are not an error.
func (s *Store) Delete(ctx context.Context, field string) error {
	data, err := s.Data(ctx)
	if err != nil {
		return err
	}
	if _, ok := data[field]; !ok {
		return nil
	}
	delete(data, field)
	return s.write(ctx, data)
}

// EventStorage bundles the scratch scopes visible to one update. Chat
// and User are nil when the update carries no chat or user.
type EventStorage struct {
	Chat *Store
	User *Store
}

// NewEventStorage builds the per-update scopes. Zero chatID or userID
// means the corresponding scope is unavailable.
func NewEventStorage(kv KV, botID, chatID, userID int64) *EventStorage {
	es := &EventStorage{}
	if chatID != 0 {
		es.Chat = ForChat(kv, botID, chatID)
		if userID != 0 {
			es.User = ForUser(kv, botID, chatID, userID)
		}
	}
	return es
}
