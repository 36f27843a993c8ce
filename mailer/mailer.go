// Package mailer is an SMTP backed users.Notifier. Notification templates
// are django views resolved by name, the rendered output becomes the HTML
// body of the outgoing message.
package mailer

import (
	"bytes"
	"context"

	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-users"
	"gopkg.in/gomail.v2"
)

// DefaultTemplateExt is the extension appended to template names.
const DefaultTemplateExt = ".html"

// Sender delivers assembled messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Config holds the SMTP endpoint and sender identity.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// TemplatesDir is the root of the notification template files.
	TemplatesDir string

	// TemplateExt defaults to DefaultTemplateExt.
	TemplateExt string
}

// Mailer renders notification templates and ships them over SMTP.
type Mailer struct {
	engine *django.Engine
	sender Sender
	from   string
	logger users.Logger
}

// New creates a Mailer. The template directory is loaded eagerly so a
// missing or broken template fails at boot instead of mid-flow.
func New(cfg Config) (*Mailer, error) {
	if cfg.From == "" {
		return nil, errors.New("mailer requires a sender address", errors.CategoryBadInput)
	}

	ext := cfg.TemplateExt
	if ext == "" {
		ext = DefaultTemplateExt
	}

	engine := django.New(cfg.TemplatesDir, ext)
	if err := engine.Load(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load mail templates")
	}

	return &Mailer{
		engine: engine,
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: users.NewDefaultLogger(),
	}, nil
}

// WithSender overrides the SMTP dialer (useful for tests).
func (m *Mailer) WithSender(sender Sender) *Mailer {
	if sender != nil {
		m.sender = sender
	}
	return m
}

// WithLogger overrides the logger.
func (m *Mailer) WithLogger(logger users.Logger) *Mailer {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// Send implements users.Notifier.
func (m *Mailer) Send(ctx context.Context, msg users.Notification) error {
	if msg.To == "" {
		return errors.New("notification has no recipient", errors.CategoryBadInput)
	}

	body, err := m.render(msg.Template, msg.Vars)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.CategoryOperation, "context cancelled before mail dispatch")
	default:
	}

	out := gomail.NewMessage()
	out.SetHeader("From", m.from)
	out.SetHeader("To", msg.To)
	out.SetHeader("Subject", msg.Subject)
	out.SetBody("text/html", body)

	if err := m.sender.DialAndSend(out); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to deliver notification").
			WithMetadata(map[string]any{
				"template": msg.Template,
			})
	}

	m.logger.Info("notification delivered to %s using template %s", msg.To, msg.Template)

	return nil
}

func (m *Mailer) render(template string, vars map[string]any) (string, error) {
	if template == "" {
		return "", errors.New("notification has no template", errors.CategoryBadInput)
	}

	var buf bytes.Buffer
	if err := m.engine.Render(&buf, template, vars); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to render mail template").
			WithMetadata(map[string]any{
				"template": template,
			})
	}

	return buf.String(), nil
}
