// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func testConfig() Config {
	return Config{
		Host:     "smtp.example.com",
		Port:     1025,
		Username: "username",
		Password: "password",
		From:     "backup@example.com",
		To:       "ops@example.com, dba@example.com",
		Subject:  "shop backup",
		Message:  "Please find attached database backup of shop",
	}
}

type mockSender struct {
	messages []*mail.Msg
	err      error
}

func (s *mockSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, messages...)
	return nil
}

func TestEnabled(t *testing.T) {
	require.True(t, testConfig().Enabled())
	cfg := testConfig()
	cfg.To = ""
	require.False(t, cfg.Enabled())
	require.False(t, Config{}.Enabled())
}

func TestNewMailer(t *testing.T) {
	mailer, err := NewMailer(testConfig())
	require.NoError(t, err)
	require.NotNil(t, mailer)

	_, err = NewMailer(Config{})
	require.Error(t, err)
}

func TestSendAttachment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.zip")
	require.NoError(t, os.WriteFile(path, []byte("archive-bytes"), 0o644))

	sender := &mockSender{}
	mailer := NewMailerWithSender(testConfig(), sender)
	require.NoError(t, mailer.SendAttachment(context.Background(), path))
	require.Len(t, sender.messages, 1)

	msg := sender.messages[0]
	recipients, err := msg.GetRecipients()
	require.NoError(t, err)
	require.Equal(t, []string{"ops@example.com", "dba@example.com"}, recipients)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	require.Contains(t, raw, "backup@example.com")
	require.Contains(t, raw, "shop backup")
	require.Contains(t, raw, "Please find attached database backup of shop")
	require.Contains(t, raw, `filename="dump.zip"`)
	require.Contains(t, raw, base64.StdEncoding.EncodeToString([]byte("archive-bytes")))
}

func TestSendAttachmentFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.zip")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	mailer := NewMailerWithSender(testConfig(), &mockSender{err: errors.New("connection refused")})
	err := mailer.SendAttachment(context.Background(), path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection refused")

	err = mailer.SendAttachment(context.Background(), filepath.Join(t.TempDir(), "missing.zip"))
	require.Error(t, err)

	cfg := testConfig()
	cfg.From = "not an address"
	err = NewMailerWithSender(cfg, &mockSender{}).SendAttachment(context.Background(), path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid sender")
}
