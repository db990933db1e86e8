package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/tech-arch1tect/authority/config"
	"github.com/tech-arch1tect/authority/services/logging"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

type smtpClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type SMTPMailer struct {
	config config.MailConfig
	client smtpClient
	logger *logging.Service
}

func NewSMTPMailer(cfg config.MailConfig, logger *logging.Service) (*SMTPMailer, error) {
	if logger != nil {
		logger.Info("initializing smtp mailer",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
			zap.String("encryption", cfg.Encryption),
			zap.String("from_address", cfg.FromAddress))
	}

	clientOpts := []mail.Option{
		mail.WithPort(cfg.Port),
	}

	switch cfg.Encryption {
	case "ssl":
		clientOpts = append(clientOpts, mail.WithSSL())
	case "none":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	if cfg.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}

	client, err := mail.NewClient(cfg.Host, clientOpts...)
	if err != nil {
		if logger != nil {
			logger.Error("failed to create mail client", zap.Error(err), zap.String("host", cfg.Host))
		}
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return newSMTPMailer(cfg, client, logger), nil
}

func newSMTPMailer(cfg config.MailConfig, client smtpClient, logger *logging.Service) *SMTPMailer {
	return &SMTPMailer{config: cfg, client: client, logger: logger}
}

func (s *SMTPMailer) Send(ctx context.Context, to, subject, text, html string) error {
	if to == "" {
		return ErrNoRecipient
	}

	message, err := s.newMessage(to, subject, text, html)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.client.DialAndSendWithContext(ctx, message)
	duration := time.Since(start)

	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to send email",
				zap.Error(err),
				zap.String("to", to),
				zap.Duration("attempt_duration", duration))
		}
		return fmt.Errorf("failed to send email: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("email sent",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Duration("send_duration", duration))
	}

	return nil
}

func (s *SMTPMailer) newMessage(to, subject, text, html string) (*mail.Msg, error) {
	message := mail.NewMsg()

	from := s.config.FromAddress
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress)
	}

	if err := message.From(from); err != nil {
		return nil, fmt.Errorf("failed to set FROM address: %w", err)
	}
	if err := message.To(to); err != nil {
		return nil, fmt.Errorf("failed to set TO address: %w", err)
	}

	message.Subject(subject)
	message.SetBodyString(mail.TypeTextPlain, text)
	if html != "" {
		message.AddAlternativeString(mail.TypeTextHTML, html)
	}

	return message, nil
}
