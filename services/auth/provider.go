package auth

import (
	"github.com/tech-arch1tect/authority/config"
	"github.com/tech-arch1tect/authority/services/jwt"
	"github.com/tech-arch1tect/authority/services/logging"
	"github.com/tech-arch1tect/authority/services/mail"
	"github.com/tech-arch1tect/authority/services/metrics"
	"github.com/tech-arch1tect/authority/services/password"
	"github.com/tech-arch1tect/authority/services/permissions"
	"github.com/tech-arch1tect/authority/services/revocation"
	"github.com/tech-arch1tect/authority/services/users"
	"github.com/tech-arch1tect/authority/session"
	"go.uber.org/fx"
)

type ControllerParams struct {
	fx.In

	Config      *config.Config
	Users       *users.Store
	Sessions    *session.Store
	Permissions *permissions.Service
	Tokens      *jwt.Service
	Hasher      *password.Hasher
	Notifier    *mail.Notifier
	Ledger      *revocation.Service
	Metrics     *metrics.Collector `optional:"true"`
	Logger      *logging.Service   `optional:"true"`
}

func ProvideController(p ControllerParams) *Controller {
	return NewController(Deps{
		Config:      p.Config,
		Users:       p.Users,
		Sessions:    p.Sessions,
		Permissions: p.Permissions,
		Tokens:      p.Tokens,
		Hasher:      p.Hasher,
		Notifier:    p.Notifier,
		Ledger:      p.Ledger,
		Metrics:     p.Metrics,
		Logger:      p.Logger,
	})
}

var Module = fx.Options(
	fx.Provide(ProvideController),
)
