// Package mailer renders transactional emails and hands them to a delivery
// backend (SendGrid in production, the application log otherwise).
package mailer

import (
	"bytes"
	"context"
	"fmt"
	htmltmpl "html/template"
	"net/mail"
	"strings"
	texttmpl "text/template"

	"go.uber.org/zap"

	"github.com/noah-isme/learnpath-api/pkg/config"
)

// Template names.
const (
	TemplateVerification  = "verification"
	TemplatePasswordReset = "password_reset"
	TemplateAdminWelcome  = "admin_welcome"
)

// Message is a fully rendered email.
type Message struct {
	To      []mail.Address
	Subject string
	Text    string
	HTML    string
}

// Sender delivers rendered messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type template struct {
	subject string
	text    *texttmpl.Template
	html    *htmltmpl.Template
}

// Renderer turns a template name plus data into a Message.
type Renderer struct {
	templates map[string]template
}

// NewRenderer parses the built-in templates.
func NewRenderer() *Renderer {
	r := &Renderer{templates: make(map[string]template, len(builtin))}
	for name, src := range builtin {
		r.templates[name] = template{
			subject: src.subject,
			text:    texttmpl.Must(texttmpl.New(name).Parse(src.text)),
			html:    htmltmpl.Must(htmltmpl.New(name).Parse(src.html)),
		}
	}
	return r
}

// Render executes the named template for a single recipient.
func (r *Renderer) Render(name string, to mail.Address, data any) (Message, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return Message{}, fmt.Errorf("unknown mail template %q", name)
	}
	var text, html bytes.Buffer
	if err := tmpl.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	if err := tmpl.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	return Message{
		To:      []mail.Address{to},
		Subject: tmpl.subject,
		Text:    strings.TrimSpace(text.String()),
		HTML:    html.String(),
	}, nil
}

// New picks the sender configured by MAIL_PROVIDER.
func New(cfg config.MailConfig, logger *zap.Logger) Sender {
	if cfg.Provider == "sendgrid" && cfg.SendGridAPIKey != "" {
		return NewSendGrid(cfg.SendGridAPIKey, cfg.FromName, cfg.FromAddress)
	}
	return NewLogSender(logger)
}

type source struct {
	subject string
	text    string
	html    string
}

var builtin = map[string]source{
	TemplateVerification: {
		subject: "Verify your email address",
		text: `Hi {{.Name}},

Your verification code is {{.Code}}. It expires in {{.ExpiresIn}}.
You can also verify at {{.Link}}`,
		html: `<p>Hi {{.Name}},</p>
<p>Your verification code is <strong>{{.Code}}</strong>. It expires in {{.ExpiresIn}}.</p>
<p><a href="{{.Link}}">Verify your email</a></p>`,
	},
	TemplatePasswordReset: {
		subject: "Reset your password",
		text: `Hi {{.Name}},

Use the code {{.Code}} to reset your password. It expires in {{.ExpiresIn}}.
{{.Link}}`,
		html: `<p>Hi {{.Name}},</p>
<p>Use the code <strong>{{.Code}}</strong> to reset your password. It expires in {{.ExpiresIn}}.</p>
<p><a href="{{.Link}}">Reset password</a></p>`,
	},
	TemplateAdminWelcome: {
		subject: "Your LearnPath account",
		text: `Hi {{.Name}},

An account with the {{.Role}} role was created for you.
Email: {{.Email}}
Temporary password: {{.Password}}
Sign in at {{.Link}} and change it right away.`,
		html: `<p>Hi {{.Name}},</p>
<p>An account with the <strong>{{.Role}}</strong> role was created for you.</p>
<p>Email: {{.Email}}<br>Temporary password: <code>{{.Password}}</code></p>
<p><a href="{{.Link}}">Sign in</a> and change it right away.</p>`,
	},
}
