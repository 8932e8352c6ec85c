package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/scoutline/apiserver/config"
	"github.com/scoutline/apiserver/internal/db"
	"github.com/scoutline/apiserver/internal/dispatch"
	"github.com/scoutline/apiserver/internal/handlers"
	"github.com/scoutline/apiserver/internal/mailer"
	"github.com/scoutline/apiserver/internal/services"
	"github.com/scoutline/apiserver/internal/session"
	"github.com/scoutline/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer    *http.Server
	router        *chi.Mux
	db            *sql.DB
	queue         *dispatch.Queue
	auth          *services.AuthService
	sweepInterval time.Duration
	stopSweep     context.CancelFunc
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewManager(session.Config{
		Secret: []byte(strings.TrimSpace(cfg.Auth.SessionSecret)),
		TTL:    cfg.Auth.SessionTTL,
	})
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	var (
		mail  mailer.Mailer
		queue *dispatch.Queue
	)
	if strings.EqualFold(cfg.Broker.Backend, "smtp") {
		smtpMailer, err := mailer.NewSMTPMailer(cfg.SMTP, cfg.Auth.CodeTTL)
		if err != nil {
			_ = dbConn.Close()
			return nil, err
		}
		mail = smtpMailer
	} else {
		broker, err := dispatch.NewBrokerFromConfig(ctx, cfg.Broker)
		if err != nil {
			_ = dbConn.Close()
			return nil, err
		}
		queue = dispatch.New(broker)
		mail = mailer.NewQueueMailer(queue)
	}

	userRepo := store.NewUserRepository(dbConn)
	codeRepo := store.NewCodeRepository(dbConn)

	authService := services.NewAuthService(userRepo, codeRepo, mail, sessions, cfg.Auth.CodeTTL)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService, cfg.Production)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer:    httpServer,
		router:        router,
		db:            dbConn,
		queue:         queue,
		auth:          authService,
		sweepInterval: cfg.Auth.SweepInterval,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. When a sweep interval is configured, a
// background ticker purges expired one-time codes alongside it.
func (s *Server) Start() error {
	if s.sweepInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopSweep = cancel
		go s.runSweeper(ctx)
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.stopSweep != nil {
		s.stopSweep()
	}
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.auth.SweepExpiredCodes(ctx)
			if err != nil {
				log.Printf("server: code sweep failed: %v", err)
				continue
			}
			if deleted > 0 {
				log.Printf("server: swept %d expired codes", deleted)
			}
		}
	}
}
