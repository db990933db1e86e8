package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/authority/config"
	"github.com/tech-arch1tect/authority/server"
	"github.com/tech-arch1tect/authority/services/auth"
	"github.com/tech-arch1tect/authority/services/logging"
	"github.com/tech-arch1tect/authority/services/permissions"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	fx          *fx.App
	config      *config.Config
	logger      *logging.Service
	services    *ServiceContainer
	db          *gorm.DB
	server      *server.Server
	controller  *auth.Controller
	permissions *permissions.Service
}

func (a *App) Start() error {
	return a.fx.Start(context.Background())
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() {
	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	if a.logger != nil {
		a.logger.Info("received shutdown signal, stopping gracefully", zap.String("signal", sig.String()))
	} else {
		log.Printf("Received signal %v, shutting down gracefully...", sig)
	}

	a.Stop()
}

func (a *App) Stop() {
	a.stop(30 * time.Second)
}

func (a *App) StopTest() {
	a.stop(2 * time.Second)
}

func (a *App) stop(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.fx.Stop(ctx); err != nil {
		if a.logger != nil {
			a.logger.Error("failed to stop application gracefully", zap.Error(err))
		} else {
			log.Printf("Failed to stop application gracefully: %v", err)
		}
	}
}

func (a *App) Echo() *echo.Echo {
	if a.server == nil {
		if a.logger != nil {
			a.logger.Warn("server not initialized through dependency injection")
		}
		return nil
	}
	return a.server.Echo()
}

func (a *App) Server() *server.Server {
	return a.server
}

func (a *App) DB() *gorm.DB {
	return a.db
}

func (a *App) Logger() *logging.Service {
	return a.logger
}

func (a *App) Config() *config.Config {
	return a.config
}

// Controller exposes the auth protocol for callers mounting their own routes.
func (a *App) Controller() *auth.Controller {
	return a.controller
}

// Permissions administers roles and grants.
func (a *App) Permissions() *permissions.Service {
	return a.permissions
}

func (a *App) RegisterRoutes(fn func(*echo.Echo)) {
	if e := a.Echo(); e != nil {
		fn(e)
	}
}
