// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

// Package notify mails a generated backup to a recipient.
package notify

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/mysqlbackup4go/backup4go/v4/log"
	"github.com/pkg/errors"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Config is the SMTP configuration of the mailer.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
	Subject  string
	Message  string
}

// Enabled reports whether enough is configured to send a mail.
func (c Config) Enabled() bool {
	return c.Host != "" && c.Port > 0 && c.Username != "" && c.Password != "" &&
		c.From != "" && c.To != ""
}

// Sender delivers messages. *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer sends files as mail attachments.
type Mailer struct {
	cfg    Config
	sender Sender
	now    func() time.Time
}

// NewMailer returns a mailer delivering through an SMTP client with PLAIN
// authentication, upgrading to TLS when the server offers STARTTLS.
func NewMailer(cfg Config) (*Mailer, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create mail client")
	}
	return NewMailerWithSender(cfg, client), nil
}

// NewMailerWithSender returns a mailer delivering through sender.
func NewMailerWithSender(cfg Config, sender Sender) *Mailer {
	return &Mailer{cfg: cfg, sender: sender, now: time.Now}
}

// SendAttachment mails the file at path to the configured recipients.
func (m *Mailer) SendAttachment(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, "stat attachment")
	}
	msg, err := m.buildMessage(path)
	if err != nil {
		return err
	}
	if err = m.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return errors.Wrapf(err, "send mail through %s", m.cfg.Host)
	}
	log.Info("backup mailed",
		zap.String("to", m.cfg.To),
		zap.String("attachment", filepath.Base(path)),
		zap.String("size", units.HumanSize(float64(info.Size()))))
	return nil
}

func (m *Mailer) buildMessage(path string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, errors.Wrapf(err, "invalid sender %q", m.cfg.From)
	}
	if err := msg.To(splitAddresses(m.cfg.To)...); err != nil {
		return nil, errors.Wrapf(err, "invalid recipients %q", m.cfg.To)
	}
	msg.Subject(m.cfg.Subject)
	msg.SetDateWithValue(m.now())
	msg.SetBodyString(mail.TypeTextPlain, m.cfg.Message)
	msg.AttachFile(path)
	return msg, nil
}

func splitAddresses(s string) []string {
	var addrs []string
	for _, addr := range strings.Split(s, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}
