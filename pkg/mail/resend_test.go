package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/resend/resend-go/v2"
)

func TestResendMailerSend(t *testing.T) {
	var captured resend.SendEmailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/emails" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Errorf("expected bearer authorization")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "email-1"})
	}))
	defer server.Close()

	mailer, err := NewResendMailer(ResendSettings{
		APIKey:  "re_test",
		From:    "crm@example.com",
		BaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = mailer.Send(context.Background(), Message{
		To:      []string{"estimator@example.com"},
		Subject: "Welcome",
		HTML:    "<p>hello</p>",
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if captured.From != "crm@example.com" {
		t.Fatalf("expected default sender, got %q", captured.From)
	}
	if len(captured.To) != 1 || captured.To[0] != "estimator@example.com" {
		t.Fatalf("unexpected recipients: %v", captured.To)
	}
	if captured.Html != "<p>hello</p>" {
		t.Fatalf("unexpected html: %q", captured.Html)
	}
}

func TestResendMailerSurfacesRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-RateLimit-Limit", "2")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", "1")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Too many requests"})
	}))
	defer server.Close()

	mailer, err := NewResendMailer(ResendSettings{APIKey: "re_test", From: "crm@example.com", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = mailer.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s", Body: "b"})
	if err == nil {
		t.Fatal("expected rate limit error")
	}
	if !strings.Contains(err.Error(), "resend:") {
		t.Fatalf("expected resend prefixed error, got %v", err)
	}
}

func TestInvitationMessage(t *testing.T) {
	msg, err := InvitationMessage("new@example.com", InvitationData{
		OrganizationName: "Acme <Siding>",
		InviterName:      "Pat Owner",
		Role:             "estimator",
		AcceptURL:        "https://crm.example.com/accept-invitation?token=abc",
		ExpiresIn:        "7 days",
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	if msg.To[0] != "new@example.com" {
		t.Fatalf("unexpected recipient: %v", msg.To)
	}
	if !strings.Contains(msg.HTML, "Acme &lt;Siding&gt;") {
		t.Fatalf("expected escaped organization name in html, got %q", msg.HTML)
	}
	if !strings.Contains(msg.Body, "https://crm.example.com/accept-invitation?token=abc") {
		t.Fatalf("expected link in text body, got %q", msg.Body)
	}

	_, err = InvitationMessage("new@example.com", InvitationData{AcceptURL: "javascript:alert(1)"})
	if err == nil {
		t.Fatal("expected script link to be rejected")
	}
}
