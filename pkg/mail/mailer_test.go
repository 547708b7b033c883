package mail

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewDisabledReturnsSentinel(t *testing.T) {
	mailer, err := New(Settings{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = mailer.Send(context.Background(), Message{To: []string{"crew@example.com"}})
	if !errors.Is(err, ErrDeliveryDisabled) {
		t.Fatalf("expected ErrDeliveryDisabled, got %v", err)
	}
}

func TestNewSelectsProvider(t *testing.T) {
	smtpMailer, err := New(Settings{
		Enabled:  true,
		Provider: "SMTP",
		From:     "crm@example.com",
		SMTP:     SMTPSettings{Host: "smtp.example.com", Port: 587},
	})
	if err != nil {
		t.Fatalf("unexpected smtp error: %v", err)
	}
	sm, ok := smtpMailer.(*smtpMailer)
	if !ok {
		t.Fatalf("expected smtp mailer, got %T", smtpMailer)
	}
	if sm.cfg.From != "crm@example.com" || sm.cfg.Timeout != 10*time.Second {
		t.Fatalf("expected defaults to be applied, got %+v", sm.cfg)
	}

	if _, err := New(Settings{Enabled: true, Provider: "resend"}); err == nil {
		t.Fatal("expected resend without api key to fail")
	}

	if _, err := New(Settings{Enabled: true, Provider: "pigeon"}); err == nil {
		t.Fatal("expected unknown provider to fail")
	}
}

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Enabled: true})
	if err == nil || !strings.Contains(err.Error(), "host is required") {
		t.Fatalf("expected host validation error, got %v", err)
	}

	_, err = NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com"})
	if err == nil || !strings.Contains(err.Error(), "port is required") {
		t.Fatalf("expected port validation error, got %v", err)
	}
}

func TestSMTPMailerSendRequiresRecipients(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "no-reply@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}

	err = mailer.Send(context.Background(), Message{
		To:      []string{"   ", "\t"},
		Subject: "No recipients",
		Body:    "Body",
	})
	if err == nil || !strings.Contains(err.Error(), "at least one recipient") {
		t.Fatalf("expected missing recipient error, got %v", err)
	}
}

func TestSMTPMailerSendValidatesAddresses(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
	})
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}

	err = mailer.Send(context.Background(), Message{
		From: "invalid-from",
		To:   []string{"user@example.com"},
	})
	if err == nil || !strings.Contains(err.Error(), "invalid from address") {
		t.Fatalf("expected invalid from error, got %v", err)
	}

	err = mailer.Send(context.Background(), Message{
		From: "crm@example.com",
		To:   []string{"user@example.com", "bad-address"},
	})
	if err == nil || !strings.Contains(err.Error(), "invalid recipient address") {
		t.Fatalf("expected invalid recipient error, got %v", err)
	}
}

func TestFormatMessagePrefersHTML(t *testing.T) {
	content := formatMessage("from@example.com", []string{"to@example.com"}, Message{
		Subject: "Subject\r\nBreak",
		Body:    "plain",
		HTML:    "<p>rich</p>",
	})
	if !strings.Contains(content, "Subject: Subject  Break") {
		t.Fatalf("expected sanitised subject, got %q", content)
	}
	if !strings.Contains(content, "Content-Type: text/html; charset=UTF-8") {
		t.Fatalf("expected html content type, got %q", content)
	}
	if !strings.HasSuffix(content, "<p>rich</p>") {
		t.Fatalf("expected html body, got %q", content)
	}
}

func TestUniqueAddresses(t *testing.T) {
	result := uniqueAddresses([]string{"alice@example.com", "bob@example.com", " alice@example.com ", "", "bob@example.com"})
	if len(result) != 2 {
		t.Fatalf("expected 2 unique addresses, got %d: %v", len(result), result)
	}
	if result[0] != "alice@example.com" || result[1] != "bob@example.com" {
		t.Fatalf("unexpected result order/content: %v", result)
	}
}
