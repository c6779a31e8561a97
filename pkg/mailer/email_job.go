package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mailtpl "github.com/oksasatya/go-user-session/pkg/mailer/templates"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either Template (with Data) or Subject plus Text/HTML must be set.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // "welcome" or "login_notification"
	Data     map[string]any `json:"data,omitempty"`
}

// ErrBadJob marks messages that can never be delivered and must not be requeued.
var ErrBadJob = errors.New("bad email job")

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Normalize trims the recipient, fills it from Data["Email"] when empty
// and checks that the job can be rendered.
func (j *EmailJob) Normalize() error {
	j.To = strings.TrimSpace(j.To)
	if j.To == "" {
		if v, ok := j.Data["Email"].(string); ok {
			j.To = strings.TrimSpace(v)
		}
	}
	if j.To == "" {
		return fmt.Errorf("%w: missing recipient", ErrBadJob)
	}
	if j.Template != "" {
		if !mailtpl.Known(j.Template) {
			return fmt.Errorf("%w: unknown template %q", ErrBadJob, j.Template)
		}
		return nil
	}
	if j.Subject == "" || (j.Text == "" && j.HTML == "") {
		return fmt.Errorf("%w: missing subject or body", ErrBadJob)
	}
	return nil
}

// Deliver decodes, renders and sends one queued job.
// Errors wrapping ErrBadJob are permanent; anything else may be retried.
func Deliver(ctx context.Context, s Sender, body []byte) error {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: %v", ErrBadJob, err)
	}
	if err := job.Normalize(); err != nil {
		return err
	}

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		var err error
		subject, text, html, err = mailtpl.Render(job.Template, job.Data)
		if err != nil {
			return fmt.Errorf("%w: render %s: %v", ErrBadJob, job.Template, err)
		}
	}
	return s.Send(ctx, job.To, subject, text, html)
}
