// Package app wires configuration, the model client, the guardian engine,
// the room, and the HTTP surface into one runnable application.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"molttown/internal/archive"
	"molttown/internal/config"
	"molttown/internal/guardian"
	"molttown/internal/llm"
	"molttown/internal/room"
	"molttown/internal/websocket"
	"molttown/pkg/types"
)

// Application owns every long-lived component.
type Application struct {
	config     *config.Config
	log        *zap.Logger
	transcript *archive.Store // nil when archiving is disabled
	room       *room.Room
	httpServer *http.Server
}

// New builds the application. Initialization order: archive -> model ->
// guardian engine -> room -> websocket handler -> HTTP server.
func New(cfg *config.Config, log *zap.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var store *archive.Store
	if cfg.Archive.Path != "" {
		var err error
		store, err = archive.Open(cfg.Archive.Path, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open transcript archive: %w", err)
		}
		log.Info("transcript archive enabled", zap.String("path", cfg.Archive.Path))
	}

	model, err := llm.New(llm.Config{
		Provider:  cfg.Model.Provider,
		APIKey:    cfg.Model.APIKey,
		BaseURL:   cfg.Model.BaseURL,
		Model:     cfg.Model.ID,
		MaxTokens: cfg.Model.MaxTokens,
		Timeout:   cfg.Model.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build model client: %w", err)
	}

	secrets := make([]guardian.Secret, 0, len(cfg.Guardians))
	for _, g := range cfg.Guardians {
		secrets = append(secrets, guardian.Secret{Name: g.Name, Phrase: g.Secret})
	}
	guard := guardian.NewEngine(secrets, log)

	var transcript room.Transcript
	if store != nil {
		transcript = store
	}

	rm := room.NewRoom(room.Settings{
		RateLimitWindow: cfg.Chat.RateLimitWindow,
		FloodCooldown:   cfg.Chat.FloodCooldown,
		HistorySize:     cfg.Chat.HistorySize,
		MaxMentions:     cfg.Chat.MaxMentions,
	}, model, guard, transcript, log)

	// The guardians live in the roster from the start, so they are
	// addressable before the front end pushes its first agent cache.
	for _, g := range cfg.Guardians {
		rm.Roster().Seed(types.AgentRecord{
			Name:        g.Name,
			Karma:       g.Karma,
			Personality: g.Personality,
		})
	}

	wsHandler := websocket.NewHandler(rm, log)

	a := &Application{
		config:     cfg,
		log:        log,
		transcript: store,
		room:       rm,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", a.handleHealth)
	r.Get("/ws", wsHandler.HandleWebSocket)
	r.Get("/api/stats", a.handleStats)
	r.Get("/api/transcript", a.handleTranscript)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return a, nil
}

// Start launches the room loop.
func (a *Application) Start(ctx context.Context) error {
	return a.room.Start(ctx)
}

// Serve blocks on the HTTP listener until shutdown.
func (a *Application) Serve() error {
	a.log.Info("listening", zap.String("addr", a.httpServer.Addr))
	if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Stop shuts everything down in reverse dependency order:
// HTTP listener -> room -> archive.
func (a *Application) Stop(ctx context.Context) error {
	a.log.Info("shutting down")

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Warn("http shutdown error", zap.Error(err))
	}
	if err := a.room.Stop(); err != nil && err != room.ErrRoomNotRunning {
		a.log.Warn("room shutdown error", zap.Error(err))
	}
	if a.transcript != nil {
		if err := a.transcript.Close(); err != nil {
			a.log.Warn("archive shutdown error", zap.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}

// Addr returns the configured listen address.
func (a *Application) Addr() string {
	return a.httpServer.Addr
}

func (a *Application) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (a *Application) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a.room.Stats())
}

func (a *Application) handleTranscript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if a.transcript == nil {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "transcript archive disabled"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := a.transcript.Recent(r.Context(), limit)
	if err != nil {
		a.log.Warn("transcript query failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "transcript unavailable"})
		return
	}
	if entries == nil {
		entries = []archive.Entry{}
	}
	_ = json.NewEncoder(w).Encode(entries)
}
