package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmlTemplate "html/template"
	"net/url"
	"strings"
	textTemplate "text/template"

	"github.com/tech-arch1tect/authority/config"
	"github.com/tech-arch1tect/authority/services/logging"
	"go.uber.org/zap"
)

//go:embed templates/*.txt templates/*.html
var templateFS embed.FS

const (
	TemplateRegister           = "register"
	TemplateActivated          = "activated"
	TemplateRecoverExistent    = "recover_existent"
	TemplateRecoverNonexistent = "recover_nonexistent"
	TemplatePasswordChanged    = "password_changed"
	TemplatePasswordReset      = "password_reset"
)

var subjects = map[string]string{
	TemplateRegister:           "Registration Confirmation",
	TemplateActivated:          "Account activated",
	TemplateRecoverExistent:    "Reset Password Instructions",
	TemplateRecoverNonexistent: "Reset Password Instructions",
	TemplatePasswordChanged:    "Your password was changed",
	TemplatePasswordReset:      "Your password was reset",
}

type TemplateData struct {
	AppName string
	Email   string
	Link    string
}

// Notifier renders the account lifecycle emails and hands them to a Mailer.
type Notifier struct {
	mailer  Mailer
	appName string
	baseURL string
	text    *textTemplate.Template
	html    *htmlTemplate.Template
	logger  *logging.Service
}

func NewNotifier(mailer Mailer, cfg *config.Config, logger *logging.Service) (*Notifier, error) {
	text, err := textTemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text templates: %w", err)
	}

	html, err := htmlTemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML templates: %w", err)
	}

	return &Notifier{
		mailer:  mailer,
		appName: cfg.App.Name,
		baseURL: strings.TrimRight(cfg.App.URL, "/"),
		text:    text,
		html:    html,
		logger:  logger,
	}, nil
}

func (n *Notifier) SendRegistered(ctx context.Context, to, activationToken string) error {
	return n.send(ctx, TemplateRegister, to, n.link("/activate", activationToken))
}

func (n *Notifier) SendActivated(ctx context.Context, to string) error {
	return n.send(ctx, TemplateActivated, to, "")
}

func (n *Notifier) SendRecoverExistent(ctx context.Context, to, resetToken string) error {
	return n.send(ctx, TemplateRecoverExistent, to, n.link("/reset", resetToken))
}

func (n *Notifier) SendRecoverNonexistent(ctx context.Context, to string) error {
	return n.send(ctx, TemplateRecoverNonexistent, to, n.baseURL+"/register")
}

func (n *Notifier) SendPasswordChanged(ctx context.Context, to string) error {
	return n.send(ctx, TemplatePasswordChanged, to, "")
}

func (n *Notifier) SendPasswordReset(ctx context.Context, to string) error {
	return n.send(ctx, TemplatePasswordReset, to, "")
}

// Render returns the subject and both bodies of a template.
func (n *Notifier) Render(name string, data TemplateData) (subject, text, html string, err error) {
	subject, ok := subjects[name]
	if !ok {
		return "", "", "", fmt.Errorf("unknown mail template: %s", name)
	}

	var textBuf bytes.Buffer
	if err := n.text.ExecuteTemplate(&textBuf, name+".txt", data); err != nil {
		return "", "", "", fmt.Errorf("failed to execute text template: %w", err)
	}

	var htmlBuf bytes.Buffer
	if err := n.html.ExecuteTemplate(&htmlBuf, name+".html", data); err != nil {
		return "", "", "", fmt.Errorf("failed to execute HTML template: %w", err)
	}

	return subject, textBuf.String(), htmlBuf.String(), nil
}

func (n *Notifier) send(ctx context.Context, name, to, link string) error {
	subject, text, html, err := n.Render(name, TemplateData{AppName: n.appName, Email: to, Link: link})
	if err != nil {
		if n.logger != nil {
			n.logger.Error("failed to render email", zap.String("template", name), zap.Error(err))
		}
		return err
	}

	return n.mailer.Send(ctx, to, subject, text, html)
}

func (n *Notifier) link(path, token string) string {
	return n.baseURL + path + "?token=" + url.QueryEscape(token)
}
