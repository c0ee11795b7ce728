// Package resend delivers notifications through the Resend email API
package resend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/gmaiocc/itic-website-sub000/pkg/monitoring"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
	"github.com/resend/resend-go/v2"
)

var contactTemplate = template.Must(template.New("contact").Parse(`
<h2>New contact message</h2>
<p><strong>From:</strong> {{.Name}} &lt;{{.Email}}&gt;</p>
{{if .Subject}}<p><strong>Subject:</strong> {{.Subject}}</p>{{end}}
<p style="white-space: pre-wrap">{{.Message}}</p>
<p><small>Received {{.CreatedAt.Format "2006-01-02 15:04 MST"}} &middot; id {{.ID}}</small></p>
`))

// Mailer implements notification.Notifier with Resend
type Mailer struct {
	client *resend.Client
	from   string
	to     []string
}

// NewMailer creates a mailer sending from `from` to the staff inboxes in `to`
func NewMailer(apiKey, from string, to []string) (*Mailer, error) {
	if apiKey == "" {
		return nil, errors.New("RESEND_API_KEY not set")
	}
	if len(to) == 0 {
		return nil, errors.New("CONTACT_NOTIFY_TO not set")
	}
	return &Mailer{client: resend.NewClient(apiKey), from: from, to: to}, nil
}

// BuildContactEmail renders the staff notification for a contact message.
// Replies go straight to the sender.
func (m *Mailer) BuildContactEmail(contact *models.Contact) (*resend.SendEmailRequest, error) {
	var body bytes.Buffer
	if err := contactTemplate.Execute(&body, contact); err != nil {
		return nil, fmt.Errorf("failed to render contact email: %w", err)
	}

	subject := "New contact message from " + contact.Name
	if contact.Subject != "" {
		subject = "[Contact] " + contact.Subject
	}

	return &resend.SendEmailRequest{
		From:    m.from,
		To:      m.to,
		Subject: subject,
		Html:    body.String(),
		ReplyTo: contact.Email,
	}, nil
}

// NotifyContact emails the staff inboxes about a new contact message
func (m *Mailer) NotifyContact(ctx context.Context, contact *models.Contact) (err error) {
	start := time.Now()
	defer func() {
		monitoring.RecordExternalCall(ctx, "resend", "send_email", time.Since(start), err)
	}()

	req, err := m.BuildContactEmail(contact)
	if err != nil {
		return err
	}
	if _, err = m.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("failed to send contact notification: %w", err)
	}
	return nil
}
