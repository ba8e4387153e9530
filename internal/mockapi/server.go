// Package mockapi реализует сервер каталога для локальной разработки и интеграционных тестов клиента.
package mockapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"catalogshell/client/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// Server: HTTP-сервер каталога на echo.
type Server struct {
	cfg  Config
	echo *echo.Echo
	log  *logging.Logger
}

// New собирает маршруты /api/auth/* и /api/products.
func New(cfg Config, store *Store, log *logging.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = errorHandler(log)
	e.Use(middleware.Recover(), requestID(), requestLogger(log))

	h := &handlers{store: store, tokens: NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL), log: log}
	api := e.Group("/api")
	api.POST("/auth/register", h.register)
	api.POST("/auth/login", h.login)

	products := api.Group("/products", requireAuth(h.tokens))
	products.GET("", h.listProducts)
	products.POST("", h.createProduct, requireAdmin)
	products.PUT("/:id", h.updateProduct, requireAdmin)
	products.DELETE("/:id", h.deleteProduct, requireAdmin)

	return &Server{cfg: cfg, echo: e, log: log}
}

// Handler возвращает http.Handler для httptest и встраивания.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run слушает cfg.ListenAddr до отмены ctx и затем плавно останавливается.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("mock api listening on %s", s.cfg.ListenAddr)
		if err := s.echo.Start(s.cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Infof("shutting down mock api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Bootstrap открывает базу, выполняет миграции и создаёт администратора из конфигурации.
func Bootstrap(ctx context.Context, cfg Config, log *logging.Logger) (*Server, error) {
	db, err := OpenDB(cfg.Database)
	if err != nil {
		return nil, err
	}
	store, err := NewStore(db)
	if err != nil {
		return nil, err
	}
	if cfg.SeedAdmin != nil {
		if err := store.EnsureUser(ctx, cfg.SeedAdmin.Username, cfg.SeedAdmin.Password, RoleAdmin); err != nil {
			return nil, fmt.Errorf("seed admin: %w", err)
		}
		log.Infof("seeded admin %q", cfg.SeedAdmin.Username)
	}
	return New(cfg, store, log), nil
}
