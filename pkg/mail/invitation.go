package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	texttemplate "text/template"
)

// InvitationData feeds the invitation templates.
type InvitationData struct {
	OrganizationName string
	InviterName      string
	Role             string
	AcceptURL        string
	ExpiresIn        string
}

var (
	invitationHTML = template.Must(template.New("invitation").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<p>{{.InviterName}} invited you to join <strong>{{.OrganizationName}}</strong> as {{.Role}}.</p>
<p><a href="{{.AcceptURL}}">Accept invitation</a></p>
<p>This link expires in {{.ExpiresIn}}.</p>
</body></html>`))

	invitationText = texttemplate.Must(texttemplate.New("invitation").Parse(
		`{{.InviterName}} invited you to join {{.OrganizationName}} as {{.Role}}.

Accept the invitation: {{.AcceptURL}}

This link expires in {{.ExpiresIn}}.
`))
)

// InvitationMessage renders the invitation email for a single recipient.
func InvitationMessage(to string, data InvitationData) (Message, error) {
	if err := validateLink(data.AcceptURL); err != nil {
		return Message{}, err
	}

	var html, text bytes.Buffer
	if err := invitationHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("mail: render invitation html: %w", err)
	}
	if err := invitationText.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("mail: render invitation text: %w", err)
	}

	return Message{
		To:      []string{to},
		Subject: fmt.Sprintf("You're invited to join %s", data.OrganizationName),
		Body:    text.String(),
		HTML:    html.String(),
	}, nil
}

// validateLink rejects non-http(s) links so templates never carry script URLs.
func validateLink(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("mail: invalid link: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("mail: invalid link scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("mail: link must include a host")
	}
	return nil
}
