package authhttp

import (
	"context"
	"fmt"

	"github.com/tech-arch1tect/authority/config"
	"github.com/tech-arch1tect/authority/middleware/ratelimit"
	"github.com/tech-arch1tect/authority/openapi"
	"github.com/tech-arch1tect/authority/server"
	"github.com/tech-arch1tect/authority/services/logging"
	"go.uber.org/fx"
)

const apiVersion = "1.0.0"

// Mount registers the auth routes under cfg.Server.APIPrefix and, when docs
// are enabled, serves their description at /openapi.json and /openapi.yaml.
func Mount(srv *server.Server, h *Handler, cfg *config.Config, store ratelimit.Store, logger *logging.Service) error {
	h.RegisterRoutes(srv.Group(cfg.Server.APIPrefix), ratelimit.NewFromConfig(cfg, store, logger))

	if !cfg.Server.DocsEnabled {
		return nil
	}

	doc := openapi.New(cfg.App.Name, apiVersion).
		Description("Session and token authority: sign-in, refresh token rotation, device sessions and password recovery.").
		Server(cfg.App.URL, "")
	Document(doc, cfg.Server.APIPrefix, cfg.Auth.CookieName)

	if err := doc.Validate(context.Background()); err != nil {
		return fmt.Errorf("invalid API document: %w", err)
	}

	srv.Get("/openapi.json", doc.JSONHandler())
	srv.Get("/openapi.yaml", doc.YAMLHandler())
	return nil
}

var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(Mount),
)
