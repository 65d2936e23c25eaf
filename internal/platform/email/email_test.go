package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tbscrm/internal/platform/config"
)

func TestNewFallsBackToNoop(t *testing.T) {
	m := New(config.Config{EmailEnabled: true})
	if _, ok := m.(noopMailer); !ok {
		t.Fatalf("expected noop mailer without SMTP host, got %T", m)
	}
	if err := m.Send(context.Background(), "a@tbs.vn", "b@tbs.vn", "x", "y"); err != nil {
		t.Fatalf("noop send: %v", err)
	}
	if _, ok := New(config.Config{EmailEnabled: true, SMTPHost: "smtp.tbs.vn"}).(*smtpMailer); !ok {
		t.Fatal("expected smtp mailer")
	}
}

func TestBuildMessageEncodesSubject(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	msg := string(buildMessage("no-reply@tbs.vn", "an@tbs.vn", "Đặt lại mật khẩu", "body", now))
	if !strings.Contains(msg, "Subject: =?utf-8?q?") {
		t.Fatalf("subject must be encoded: %s", msg)
	}
	if !strings.Contains(msg, "Date: Mon, 10 Jun 2024 09:00:00 +0000\r\n") {
		t.Fatalf("missing date header: %s", msg)
	}
	if !strings.Contains(msg, "@tbs.vn>\r\n") {
		t.Fatalf("message id should use the sender domain: %s", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\nbody") {
		t.Fatalf("body must follow a blank line: %q", msg)
	}
}

func TestSendRejectsHeaderInjection(t *testing.T) {
	m := New(config.Config{EmailEnabled: true, SMTPHost: "127.0.0.1", SMTPPort: 1})
	err := m.Send(context.Background(), "no-reply@tbs.vn", "an@tbs.vn\r\nBcc: x@evil.test", "Reset", "body")
	if !errors.Is(err, ErrHeaderInjection) {
		t.Fatalf("expected header injection error, got %v", err)
	}
}
