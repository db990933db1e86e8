package mail

import (
	"context"
	"fmt"

	"github.com/tech-arch1tect/authority/config"
	"github.com/tech-arch1tect/authority/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func ProvideMailer(lc fx.Lifecycle, cfg *config.Config, logger *logging.Service) (Mailer, error) {
	if logger != nil {
		logger.Info("initializing mailer", zap.String("transport", cfg.Mail.Transport))
	}

	switch cfg.Mail.Transport {
	case "smtp":
		return NewSMTPMailer(cfg.Mail, logger)
	case "amqp":
		mailer := NewAMQPMailer(cfg.Mail.AMQPURL, cfg.Mail.AMQPQueue, logger)
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return mailer.Close()
			},
		})
		return mailer, nil
	case "log":
		return NewLogMailer(logger), nil
	default:
		return nil, fmt.Errorf("unsupported mail transport: %s", cfg.Mail.Transport)
	}
}

var Module = fx.Options(
	fx.Provide(ProvideMailer),
	fx.Provide(NewNotifier),
)
