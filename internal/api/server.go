package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orrn/printqueue/internal/api/handlers"
	"github.com/orrn/printqueue/internal/api/middleware"
	"github.com/orrn/printqueue/internal/config"
	"github.com/orrn/printqueue/internal/db"
	"github.com/orrn/printqueue/internal/feed"
	"github.com/orrn/printqueue/internal/logging"
	"github.com/orrn/printqueue/internal/storage"
	"github.com/orrn/printqueue/internal/webhook"
)

// Server owns the HTTP listener and the background components behind it.
type Server struct {
	http   *http.Server
	hub    *feed.Hub
	sender *webhook.Sender
	logger *logging.Logger
}

func NewServer(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	hub := feed.NewHub()
	metrics := middleware.NewMetrics(func() float64 { return float64(hub.Subscribers()) })

	auth, err := middleware.NewAuthMiddleware(middleware.AuthConfig{
		TokenDuration:      cfg.Auth.TokenDuration,
		SecureCookie:       cfg.Auth.SecureCookie,
		LoginRatePerMinute: cfg.Auth.LoginRatePerMinute,
	}, metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init auth: %w", err)
	}

	var uploader storage.Uploader
	if cfg.Storage.Enabled() {
		client, err := storage.NewClient(storage.Config{
			Endpoint:      cfg.Storage.Endpoint,
			Access:        cfg.Storage.AccessKey,
			Secret:        cfg.Storage.SecretKey,
			Bucket:        cfg.Storage.Bucket,
			UseSSL:        cfg.Storage.UseSSL,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		uploader = client
	} else {
		logger.Info("image storage disabled, uploads will return 503")
	}

	sender := webhook.NewSender(db.Webhooks, logger, webhook.Config{
		RetryCount:  cfg.Webhooks.RetryCount,
		RetryDelay:  cfg.Webhooks.RetryDelay,
		Timeout:     cfg.Webhooks.Timeout,
		WorkerCount: cfg.Webhooks.Workers,
		QueueSize:   cfg.Webhooks.QueueSize,
	})

	router := NewRouter(Deps{
		Auth:     auth,
		Metrics:  metrics,
		Logger:   logger,
		Notify:   handlers.Notifiers{Events: sender, Feed: hub},
		Uploader: uploader,
		Tester:   sender,
		Feed:     feed.NewServer(hub, feed.StoreSource{}, logger),
	})

	return &Server{
		http: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
		hub:    hub,
		sender: sender,
		logger: logger,
	}, nil
}

// Start runs the webhook workers and the listener in the background.
func (s *Server) Start() {
	s.sender.Start()
	go func() {
		s.logger.Info("listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server failed", "error", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.hub.Close()
	s.sender.Stop()
	return err
}
