package app

import "github.com/charlesng35/exteriorcrm/pkg/mail"

// MailSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) MailSettings() mail.Settings {
	return mail.Settings{
		Enabled:  c.Enabled,
		Provider: c.Provider,
		From:     c.From,
		SMTP: mail.SMTPSettings{
			Enabled:  c.Enabled,
			Host:     c.SMTP.Host,
			Port:     c.SMTP.Port,
			Username: c.SMTP.Username,
			Password: c.SMTP.Password,
			From:     c.SMTP.From,
			UseTLS:   c.SMTP.UseTLS,
			Timeout:  c.SMTP.Timeout,
		},
		Resend: mail.ResendSettings{
			APIKey:  c.Resend.APIKey,
			From:    c.From,
			BaseURL: c.Resend.BaseURL,
		},
	}
}
