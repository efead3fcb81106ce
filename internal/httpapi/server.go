// Package httpapi exposes the hub's management endpoints and the
// Telegram webhook receiver.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mymmrac/telego"

	"github.com/exg1o/telegram-bots-hub/internal/hub"
)

// BotService is what the server manages. *hub.Hub implements it.
type BotService interface {
	List() []int64
	Start(ctx context.Context, serviceID int64, token string) error
	Restart(ctx context.Context, serviceID int64) error
	Stop(ctx context.Context, serviceID int64) error
	Feed(ctx context.Context, serviceID int64, update telego.Update) error
}

// Server serves the management API and the webhook receiver.
type Server struct {
	bots          BotService
	selfToken     string
	webhookSecret string
	httpServer    *http.Server
}

// New builds the server. selfToken guards the management endpoints and
// webhookSecret guards the webhook receiver.
func New(addr string, bots BotService, selfToken, webhookSecret string) *Server {
	s := &Server{
		bots:          bots,
		selfToken:     selfToken,
		webhookSecret: webhookSecret,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /bots/", s.requireSelfToken(s.handleListBots))
	mux.HandleFunc("POST /bots/{serviceID}/start/", s.requireSelfToken(s.handleStartBot))
	mux.HandleFunc("POST /bots/{serviceID}/restart/", s.requireSelfToken(s.handleRestartBot))
	mux.HandleFunc("POST /bots/{serviceID}/stop/", s.requireSelfToken(s.handleStopBot))
	mux.HandleFunc("POST /telegram/bots/{serviceID}/webhook/", s.requireWebhookSecret(s.handleWebhook))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start serves until Shutdown. It returns nil on graceful shutdown.
func (s *Server) Start() error {
	slog.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the routing for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) requireSelfToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-KEY")
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.selfToken)) != 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) requireWebhookSecret(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		secret := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(secret), []byte(s.webhookSecret)) != 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleListBots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.bots.List())
}

func (s *Server) handleStartBot(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := pathServiceID(w, r)
	if !ok {
		return
	}

	var body struct {
		BotToken string `json:"bot_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.BotToken == "" {
		writeError(w, "invalid_bot_token", "A bot token is required.")
		return
	}

	if err := s.bots.Start(r.Context(), serviceID, body.BotToken); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRestartBot(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := pathServiceID(w, r)
	if !ok {
		return
	}
	if err := s.bots.Restart(r.Context(), serviceID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleStopBot(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := pathServiceID(w, r)
	if !ok {
		return
	}
	if err := s.bots.Stop(r.Context(), serviceID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := pathServiceID(w, r)
	if !ok {
		return
	}

	var update telego.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := s.bots.Feed(r.Context(), serviceID, update); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func pathServiceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	serviceID, err := strconv.ParseInt(r.PathValue("serviceID"), 10, 64)
	if err != nil {
		writeError(w, "not_found_bot", "The bot id must be an integer.")
		return 0, false
	}
	return serviceID, true
}

// apiError is the error body the Designer Service expects back.
type apiError struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, hub.ErrNotFoundBot):
		writeError(w, "not_found_bot", "The bot is not started on this hub.")
	case errors.Is(err, hub.ErrBotAlreadyEnabled):
		writeError(w, "bot_already_enabled", "The bot is already started on this hub.")
	case errors.Is(err, hub.ErrInvalidBotToken):
		writeError(w, "invalid_bot_token", "Telegram rejected the bot token.")
	default:
		slog.Error("request failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, code, detail string) {
	writeJSON(w, http.StatusBadRequest, apiError{Code: code, Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		slog.Debug("failed to encode response", "error", err)
	}
}
