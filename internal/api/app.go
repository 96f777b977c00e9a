package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/teris-io/shortid"

	"github.com/mfreile/supportchat/internal/config"
	"github.com/mfreile/supportchat/internal/database"
	"github.com/mfreile/supportchat/internal/server"
	"github.com/mfreile/supportchat/internal/stats"
)

type App struct {
	log            *log.Logger
	db             database.Repository
	mux            *http.Server
	hub            *server.Hub
	stats          stats.StatsProvider
	signingKey     []byte
	allowedOrigins []string
	presenceWindow time.Duration

	generateShortId func() (string, error)
}

func NewApp(mux *http.ServeMux, logger *log.Logger, hub *server.Hub, db database.Repository, statsProvider stats.StatsProvider, cfg *config.Config) *App {
	s := &App{
		log:            logger,
		db:             db,
		hub:            hub,
		stats:          statsProvider,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		presenceWindow: cfg.PresenceWindow,

		generateShortId: shortid.Generate,
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))

	mux.HandleFunc("GET /api/rooms", s.listRooms)
	mux.Handle("POST /api/rooms", s.authMiddleware(s.createRoom))

	mux.HandleFunc("GET /api/messages", s.getMessages)
	mux.HandleFunc("GET /api/messages/message", s.getMessage)
	mux.Handle("POST /api/messages", s.authMiddleware(s.createMessage))
	mux.Handle("DELETE /api/messages", s.authMiddleware(s.deleteMessage))
	mux.Handle("PUT /api/messages/pin", s.authMiddleware(s.pinMessage))

	mux.HandleFunc("GET /api/unread", s.unreadCount)
	mux.HandleFunc("GET /api/unread/rooms", s.unreadCountByRoom)

	mux.Handle("POST /api/presence", s.authMiddleware(s.heartbeat))
	mux.Handle("DELETE /api/presence", s.authMiddleware(s.clearPresence))
	mux.HandleFunc("GET /api/presence/count", s.onlineCount)

	mux.HandleFunc("GET /api/admin", s.isAdmin)

	// the feed is readable without a session; optionalAuth only attaches
	// the user id when a valid cookie is present
	mux.HandleFunc("GET /ws", s.optionalAuth(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *App) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *App) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
